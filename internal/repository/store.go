// Package store defines the storage interface and the SQLite implementation.
package store

import (
	"context"

	"github.com/xiaot623/novaflow/internal/domain"
)

// Store defines the interface for data persistence.
type Store interface {
	// Run operations
	CreateRun(ctx context.Context, run *domain.Run) error
	GetRun(ctx context.Context, runID int64) (*domain.Run, error)
	UpdateRunStatus(ctx context.Context, runID int64, status domain.RunStatus) error

	// Run log operations. The log is append-only: a single INSERT per entry,
	// never updated, read back in (ts, id) order.
	AppendRunLog(ctx context.Context, entry *domain.RunLog) error
	GetRunLogs(ctx context.Context, runID int64) ([]domain.RunLog, error)

	// Brand kit operations
	CreateBrandDoc(ctx context.Context, doc *domain.BrandDoc) error
	ListBrandDocs(ctx context.Context) ([]domain.BrandDoc, error)

	// Lifecycle
	Close() error
}
