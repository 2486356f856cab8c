package stores

import (
	"context"
	"time"
)

// RunStatus is the overall result of a stored check run.
type RunStatus string

const (
	RunStatusPassed RunStatus = "passed"
	RunStatusFailed RunStatus = "failed"
)

// Run is one recorded check run.
type Run struct {
	ID        string    `json:"id"`
	RulesPath string    `json:"rules_path"`
	Documents string    `json:"documents"` // JSON map of ref name to file path
	Status    RunStatus `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Duration  int64     `json:"duration_ms"`

	// Summary counts, denormalized for cheap listing.
	Total        int `json:"total"`
	Passed       int `json:"passed"`
	Failed       int `json:"failed"`
	Missing      int `json:"missing"`
	TypeMismatch int `json:"type_mismatch"`
	Errors       int `json:"errors"`
	Blocking     int `json:"blocking"`
	Warnings     int `json:"warnings"`
}

// FindingRecord is one stored non-passing finding.
type FindingRecord struct {
	ID        int64  `json:"id"`
	RunID     string `json:"run_id"`
	RuleID    string `json:"rule_id"`
	Severity  string `json:"severity"`
	Outcome   string `json:"outcome"`
	Message   string `json:"message"`
	LeftPath  string `json:"left_path,omitempty"`
	RightPath string `json:"right_path,omitempty"`
}

// Store is the run-history persistence interface.
type Store interface {
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	CreateRun(ctx context.Context, run *Run, findings []*FindingRecord) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit, offset int) ([]*Run, error)
	ListFindingsByRun(ctx context.Context, runID string) ([]*FindingRecord, error)
	DeleteRun(ctx context.Context, id string) error

	HealthCheck(ctx context.Context) error
}
