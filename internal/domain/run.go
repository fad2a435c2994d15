package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunContext carries the run-scoped identity threaded through every check
// execution and every persisted row. It is created once per pipeline
// invocation and never mutated.
type RunContext struct {
	ID        string
	StartedAt time.Time
}

// NewRunContext creates a RunContext with a fresh UUIDv7 run id.
func NewRunContext() RunContext {
	return RunContext{
		ID:        uuid.Must(uuid.NewV7()).String(),
		StartedAt: time.Now().UTC(),
	}
}

// Run status constants for the persisted run record.
const (
	RunStatusRunning  = "RUNNING"
	RunStatusPassed   = "PASSED"
	RunStatusFailed   = "FAILED"
	RunStatusDegraded = "DEGRADED"
)
