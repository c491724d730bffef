// Package models defines the records shared by the dialog engine, the
// session store, and the report exporter.
package models

import (
	"time"

	"github.com/GlebZemlyanikin/RowingModel/internal/reftable"
)

// State identifies the dialog step a user is currently on.
type State int

const (
	// StateNone means no conversation exists for the user yet.
	StateNone State = iota
	StateWaitingModelType
	StateWaitingMode
	StateWaitingName
	StateWaitingNewName
	StateWaitingAge
	StateWaitingDistance
	StateWaitingBoat
	StateWaitingTime
	StateWaitingNextAction
	StateEditingLastTime
)

var stateNames = map[State]string{
	StateNone:              "none",
	StateWaitingModelType:  "waiting_model_type",
	StateWaitingMode:       "waiting_mode",
	StateWaitingName:       "waiting_name",
	StateWaitingNewName:    "waiting_new_name",
	StateWaitingAge:        "waiting_age",
	StateWaitingDistance:   "waiting_distance",
	StateWaitingBoat:       "waiting_boat",
	StateWaitingTime:       "waiting_time",
	StateWaitingNextAction: "waiting_next_action",
	StateEditingLastTime:   "editing_last_time",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}

	return "unknown"
}

// Mode selects between a one-off calculation and report accumulation.
type Mode string

const (
	ModeNone   Mode = ""
	ModeSingle Mode = "single"
	ModeReport Mode = "report"
)

// Action is one entry in a session's append-only audit log.
type Action struct {
	Time   time.Time `json:"time"`
	Kind   string    `json:"kind"`
	Detail string    `json:"detail"`
}

// Result records one completed time entry. The cached Percent field is a
// projection of the other fields; any code path that changes ElapsedTime
// must recompute it from the same inputs.
type Result struct {
	CreatedAt   time.Time          `json:"created_at"`
	Name        string             `json:"name"`
	Model       reftable.ModelType `json:"model"`
	AgeGroup    string             `json:"age_group"`
	BoatClass   string             `json:"boat_class"`
	Distance    float64            `json:"distance"`
	ElapsedTime float64            `json:"elapsed_time"`
	DisplayTime string             `json:"display_time"`
	Baseline    float64            `json:"baseline"`
	Percent     float64            `json:"percent"`
}

// Session accumulates the results and audit trail for one user. It survives
// dialog restarts and is destroyed only by export or an explicit reset.
type Session struct {
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Actions   []Action  `json:"actions"`
	Results   []Result  `json:"results"`
}

// LogAction appends an entry to the session's audit trail.
func (s *Session) LogAction(kind, detail string) {
	s.Actions = append(s.Actions, Action{
		Time:   time.Now(),
		Kind:   kind,
		Detail: detail,
	})
}

// Clone returns a copy whose Actions and Results do not share backing
// arrays with the original. An in-place edit on one copy can therefore
// never be observed through another.
func (s Session) Clone() Session {
	s.Actions = append([]Action(nil), s.Actions...)
	s.Results = append([]Result(nil), s.Results...)

	return s
}

// LastResult returns the most recent result, or nil if there is none.
func (s *Session) LastResult() *Result {
	if len(s.Results) == 0 {
		return nil
	}

	return &s.Results[len(s.Results)-1]
}

// ConversationState holds the dialog position and the scratch fields
// collected so far. Fields are populated strictly in the order the dialog
// visits them; a field is zero until its owning state has been passed.
type ConversationState struct {
	State     State              `json:"state"`
	Model     reftable.ModelType `json:"model"`
	Mode      Mode               `json:"mode"`
	Name      string             `json:"name"`
	AgeGroup  string             `json:"age_group"`
	Distance  float64            `json:"distance"`
	BoatClass string             `json:"boat_class"`
}

// Settings holds the per-user preferences carried across sessions.
type Settings struct {
	Model reftable.ModelType `json:"model"`
	Mode  Mode               `json:"mode"`
}

// KV is an explicit key-value pair so snapshots can be reconstructed into
// run-time maps without relying on JSON object key ordering.
type KV[V any] struct {
	Key   int64 `json:"key"`
	Value V     `json:"value"`
}

// Snapshot is the persisted image of the whole in-memory store.
type Snapshot struct {
	Timestamp time.Time               `json:"timestamp"`
	Sessions  []KV[Session]           `json:"sessions"`
	States    []KV[ConversationState] `json:"states"`
	Settings  []KV[Settings]          `json:"settings"`
}
