package ledger

import "time"

// Run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusPartial   = "completed-with-skips"
	RunStatusFailed    = "failed"
)

// Entry statuses.
const (
	EntryStatusFitted  = "fitted"
	EntryStatusDrifted = "drifted"
	EntryStatusSkipped = "skipped"
	EntryStatusFailed  = "failed"
)

// Run is one invocation of the narration pipeline.
type Run struct {
	ID          string
	Source      string
	OutputPath  string
	Status      string
	StartedAt   time.Time
	FinishedAt  time.Time
	EntryCount  int
	FailedCount int
}

// EntryRecord is the per-entry outcome persisted for reporting. Error holds
// enough context to re-run just that entry.
type EntryRecord struct {
	Index        int
	StartMS      int64
	EndMS        int64
	Status       string
	Strategy     string
	PreAttempts  int
	PostAttempts int
	EstimatedMS  int64
	RenderedMS   int64
	FinalMS      int64
	SpeedFactor  float64
	Error        string
	Text         string
}

// WindowMS returns the entry's allotted duration.
func (r EntryRecord) WindowMS() int64 {
	return r.EndMS - r.StartMS
}
