package pipeline

import (
	"context"
	"time"

	"github.com/andresuchdata/ddmrp/internal/domain"
	"github.com/andresuchdata/ddmrp/internal/engine"
)

// WorkerConfig holds configuration for a batch worker
type WorkerConfig struct {
	Name        string
	WorkerCount int // Number of concurrent workers
}

// DefaultWorkerConfig returns sensible defaults
func DefaultWorkerConfig(name string) WorkerConfig {
	return WorkerConfig{
		Name:        name,
		WorkerCount: 4,
	}
}

// RunStatus represents the current state of a recompute run
type RunStatus string

const (
	StatusPending    RunStatus = "pending"
	StatusProcessing RunStatus = "processing"
	StatusCompleted  RunStatus = "completed"
	StatusFailed     RunStatus = "failed"
)

// RecomputeRun tracks a single batch execution over the catalog
type RecomputeRun struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name"`
	Status         RunStatus  `json:"status"`
	ConfigID       *int64     `json:"config_id,omitempty"`
	Degraded       bool       `json:"degraded"`
	TotalItems     int        `json:"total_items"`
	SucceededItems int        `json:"succeeded_items"`
	FailedItems    int        `json:"failed_items"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`
}

// ItemFailure records why one item could not be processed
type ItemFailure struct {
	ItemID string `json:"item_id"`
	Error  string `json:"error"`
}

// BatchResult is returned by every batch, whatever happened to single items
type BatchResult struct {
	RunID     int64         `json:"run_id"`
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Degraded  int           `json:"degraded"`
	Failures  []ItemFailure `json:"failures"`
}

// Outcome is what an item function reports back on success
type Outcome struct {
	Degraded bool
}

// ItemFunc processes one item against the batch snapshot
type ItemFunc func(ctx context.Context, item domain.InventoryItem, snap engine.Snapshot) (Outcome, error)

// RunStore persists recompute run tracking
type RunStore interface {
	CreateRun(ctx context.Context, run *RecomputeRun) error
	UpdateRun(ctx context.Context, run *RecomputeRun) error
	GetRun(ctx context.Context, id int64) (*RecomputeRun, error)
	// ListRuns lists runs of the named worker, newest first. An empty name lists all.
	ListRuns(ctx context.Context, name string, limit int) ([]RecomputeRun, error)
}
