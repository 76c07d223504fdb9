package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// MergeConflict records a fuzzy merge that was refused because both sides
// held conflicting non-empty emails. Kept separate, flagged for review.
type MergeConflict struct {
	LeftKey    string `json:"left_key"`
	LeftEmail  string `json:"left_email"`
	RightKey   string `json:"right_key"`
	RightEmail string `json:"right_email"`
	Reason     string `json:"reason"`
}

// Err returns the conflict as an error checkable against ErrAmbiguousMerge.
func (c MergeConflict) Err() error {
	return eris.Wrapf(ErrAmbiguousMerge, "resolver: %s vs %s: %s",
		c.LeftKey, c.RightKey, c.Reason)
}

// RunReport accumulates recoverable errors and stage counts for one run.
type RunReport struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	RecordsIn        int `json:"records_in"`
	RecordsRejected  int `json:"records_rejected"`
	SignalsExtracted int `json:"signals_extracted"`
	Identities       int `json:"identities"`
	Opportunities    int `json:"opportunities"`

	MergeConflicts []MergeConflict     `json:"merge_conflicts,omitempty"`
	StageCounts    map[FunnelStage]int `json:"stage_counts,omitempty"`
}

// NewRunReport returns an initialized report.
func NewRunReport() *RunReport {
	return &RunReport{
		StartedAt:   time.Now().UTC(),
		StageCounts: make(map[FunnelStage]int),
	}
}

// Run is one stored pipeline execution.
type Run struct {
	ID         string     `json:"id"`
	Status     string     `json:"status"`
	Report     *RunReport `json:"report,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Run statuses.
const (
	RunStatusRunning  = "running"
	RunStatusComplete = "complete"
	RunStatusFailed   = "failed"
)
