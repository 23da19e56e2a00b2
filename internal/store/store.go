// internal/store/store.go
package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
	// ErrConflict signals an illegal job transition, e.g. completing a job
	// that is already terminal.
	ErrConflict = errors.New("conflicting state")
)

// Store defines the durable persistence contract. Every mutation is saved
// before the call returns; one logical operation holds exclusive access to
// its collection for its duration.
type Store interface {
	// Host registry
	GetHosts(ctx context.Context, environment string) ([]Host, error)
	GetHost(ctx context.Context, environment, id string) (*Host, error)
	CreateHost(ctx context.Context, host *Host) error
	DeleteHost(ctx context.Context, environment, id string) error

	// Status snapshots
	GetStatus(ctx context.Context, environment string) (map[string]CheckResult, error)
	GetHostStatus(ctx context.Context, environment, hostID string) (*CheckResult, error)
	UpdateStatus(ctx context.Context, environment, hostID string, result CheckResult) error
	// UpdateStatusBatch publishes a full batch in one transaction: readers
	// never observe a partially applied batch.
	UpdateStatusBatch(ctx context.Context, environment string, results map[string]CheckResult) error

	// Credentials
	GetCredentials(ctx context.Context, environment string) (*Credentials, error)
	StoreCredentials(ctx context.Context, environment string, creds Credentials) error

	// Report jobs
	CreateReport(ctx context.Context, report *Report) error
	GetReport(ctx context.Context, id string) (*Report, error)
	GetReports(ctx context.Context) ([]Report, error)
	CompleteReport(ctx context.Context, id string, artifact []byte, snapshot []HostStatus) error
	FailReport(ctx context.Context, id, message string) error
	DeleteReport(ctx context.Context, id string) error
	GetReportArtifact(ctx context.Context, id string) ([]byte, error)
	GetReportSnapshot(ctx context.Context, id string) ([]HostStatus, error)

	// Comparison jobs
	CreateComparison(ctx context.Context, cmp *Comparison) error
	GetComparison(ctx context.Context, id string) (*Comparison, error)
	GetComparisons(ctx context.Context) ([]Comparison, error)
	CompleteComparison(ctx context.Context, id string, artifact []byte, diff *ComparisonDiff, summary *ComparisonSummary) error
	FailComparison(ctx context.Context, id, message string) error
	DeleteComparison(ctx context.Context, id string) error
	GetComparisonArtifact(ctx context.Context, id string) ([]byte, error)

	// Maintenance
	Stats(ctx context.Context) (*Stats, error)
	Compact(ctx context.Context) error

	Close() error
}
