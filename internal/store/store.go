// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/gpotter/worksheetbot/internal/domain"
)

// Repository defines the interface for the generated-worksheet index.
type Repository interface {
	// InsertWorksheet records metadata for a newly generated worksheet.
	InsertWorksheet(ctx context.Context, meta *domain.WorksheetMeta) error

	// GetWorksheet retrieves one worksheet by id. Returns (nil, nil) when
	// the id is unknown.
	GetWorksheet(ctx context.Context, id string) (*domain.WorksheetMeta, error)

	// ListRecentWorksheets returns up to limit worksheets, newest first.
	ListRecentWorksheets(ctx context.Context, limit int) ([]*domain.WorksheetMeta, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
