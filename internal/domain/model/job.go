package model

import "time"

// Stage identifies which lifecycle point triggered an allocation run.
type Stage string

// Known trigger stages.
const (
	StageEarlyBird Stage = "early_bird"
	StageFinal     Stage = "final"
	StageManual    Stage = "manual"
)

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	switch s {
	case StageEarlyBird, StageFinal, StageManual:
		return true
	}
	return false
}

// AllocationJob asks for one allocation run over one university's roster.
type AllocationJob struct {
	JobID        string    // unique id for tracing
	ContestID    string
	UniversityID string
	Stage        Stage
	EnqueuedAt   time.Time
}

// RunSummary describes the outcome of one allocation run.
type RunSummary struct {
	JobID        string        `json:"job_id"`
	ContestID    string        `json:"contest_id"`
	UniversityID string        `json:"university_id"`
	Stage        Stage         `json:"stage"`
	Students     int           `json:"students"`
	Teams        int           `json:"teams"`
	Flagged      int           `json:"flagged"`
	Leftovers    int           `json:"leftovers"`
	Duration     time.Duration `json:"duration_ns"`
	Error        string        `json:"error,omitempty"`
	FinishedAt   time.Time     `json:"finished_at"`
}
