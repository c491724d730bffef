package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/GlebZemlyanikin/RowingModel/internal/apperr"
	"github.com/GlebZemlyanikin/RowingModel/internal/models"
	"github.com/GlebZemlyanikin/RowingModel/internal/osutil"
	"github.com/GlebZemlyanikin/RowingModel/internal/timeutil"
)

const snapshotBucket = "snapshots"

var (
	errDBLocked = &apperr.Error{
		Message: "is RowingModel already running? Only one instance can be active at a time",
	}

	// ErrNoSnapshot is returned when a restore is requested but no snapshot
	// has ever been written.
	ErrNoSnapshot = &apperr.Error{
		Message: "no snapshot found",
	}
)

// Client is a BoltDB database client holding store snapshots.
type Client struct {
	*bolt.DB
}

// NewClient opens or creates the snapshot database at the given path.
func NewClient(path string) (*Client, error) {
	err := os.MkdirAll(filepath.Dir(path), osutil.DirPermission)
	if err != nil {
		return nil, err
	}

	db, err := bolt.Open(
		path,
		osutil.FilePermission,
		&bolt.Options{Timeout: 1 * time.Second},
	)
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return nil, errDBLocked
		}

		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(snapshotBucket))
		return err
	})
	if err != nil {
		return nil, err
	}

	return &Client{db}, nil
}

// SaveSnapshot writes the snapshot keyed by its timestamp.
func (c *Client) SaveSnapshot(snap models.Snapshot) error {
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now()
	}

	value, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	return c.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(snapshotBucket)).
			Put(timeutil.ToKey(snap.Timestamp), value)
	})
}

// LoadLatestSnapshot returns the most recently written snapshot.
func (c *Client) LoadLatestSnapshot() (models.Snapshot, error) {
	var snap models.Snapshot

	err := c.View(func(tx *bolt.Tx) error {
		_, v := tx.Bucket([]byte(snapshotBucket)).Cursor().Last()
		if len(v) == 0 {
			return ErrNoSnapshot
		}

		return json.Unmarshal(v, &snap)
	})

	return snap, err
}

// Prune deletes all but the newest keep snapshots.
func (c *Client) Prune(keep int) error {
	return c.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(snapshotBucket))

		total := b.Stats().KeyN
		if total <= keep {
			return nil
		}

		cur := b.Cursor()

		for k, _ := cur.First(); k != nil && total > keep; k, _ = cur.Next() {
			// Cursor.Delete keeps the cursor position valid, unlike
			// Bucket.Delete during iteration.
			err := cur.Delete()
			if err != nil {
				return err
			}

			total--
		}

		return nil
	})
}
