// Package repository stores diagnostic reports by id.
package repository

import (
	"context"

	"github.com/thread-dump-analysis/pkg/model"
)

// ReportStore defines the report persistence operations.
// Implementations must be safe for concurrent use.
type ReportStore interface {
	// Save inserts the report, replacing any report with the same id.
	Save(ctx context.Context, report *model.Report) error

	// Get retrieves a report by id. Missing ids yield ErrReportNotFound.
	Get(ctx context.Context, id string) (*model.Report, error)

	// List returns report summaries, newest first. limit <= 0 returns all.
	List(ctx context.Context, limit int) ([]model.ReportSummary, error)

	// Delete removes a report by id. Missing ids yield ErrReportNotFound.
	Delete(ctx context.Context, id string) error

	// Count returns the number of stored reports.
	Count(ctx context.Context) (int, error)

	// Close releases the store's resources.
	Close() error
}
