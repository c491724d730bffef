package store

import (
	"context"
	"log/slog"
	"time"
)

// Snapshotter periodically writes the in-memory store to the snapshot
// database. Failures are logged and swallowed: memory remains the source of
// truth and the conversation flow never blocks on disk.
type Snapshotter struct {
	db       *Client
	mem      *Memory
	interval time.Duration
	keep     int
}

// NewSnapshotter wires a periodic snapshotter. keep limits how many
// snapshots are retained in the database.
func NewSnapshotter(db *Client, mem *Memory, interval time.Duration, keep int) *Snapshotter {
	return &Snapshotter{
		db:       db,
		mem:      mem,
		interval: interval,
		keep:     keep,
	}
}

// Save writes a single snapshot and prunes old ones.
func (s *Snapshotter) Save() error {
	snap := s.mem.Snapshot()
	snap.Timestamp = time.Now()

	err := s.db.SaveSnapshot(snap)
	if err != nil {
		return err
	}

	return s.db.Prune(s.keep)
}

// Run snapshots the store on every tick until the context is cancelled.
func (s *Snapshotter) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := s.Save()
			if err != nil {
				slog.Error("periodic snapshot failed", slog.Any("error", err))
			}
		}
	}
}
