// Package storage defines the persistence contracts for simulation runs and
// their collected series. Implementations live in subpackages.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// RunStatus describes the lifecycle state of a recorded run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusFailed    RunStatus = "FAILED"
)

// Run is one recorded model execution.
type Run struct {
	ID         string
	Scenario   string
	Model      string
	ParamsJSON string
	Seed       int64
	MaxSteps   int
	Steps      int
	Status     RunStatus
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// ModelSample is one collected model-reporter value.
type ModelSample struct {
	RunID    string
	Step     int
	Reporter string
	Value    string
}

// AgentSample is one collected agent-reporter value.
type AgentSample struct {
	RunID    string
	Step     int
	AgentID  int64
	Reporter string
	Value    string
}

// RunStore persists runs and their collected series.
type RunStore interface {
	PutRun(ctx context.Context, run Run) error
	GetRun(ctx context.Context, id string) (Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	AppendModelSamples(ctx context.Context, samples []ModelSample) error
	AppendAgentSamples(ctx context.Context, samples []AgentSample) error
	ModelSamples(ctx context.Context, runID string) ([]ModelSample, error)
	AgentSamples(ctx context.Context, runID string) ([]AgentSample, error)
}
