// Package repository holds the result store and its errors.
package repository

import (
	"context"

	"github.com/okian/stagerank/internal/domain/model"
)

// Store provides read/write access to ingested result records.
type Store interface {
	// Upsert inserts or replaces every record by its unique key as one batch.
	// An invalid batch is rejected whole with ErrInvalidRecord.
	Upsert(ctx context.Context, records []model.ResultRecord) error

	// Scan returns the records matching f in source order.
	Scan(ctx context.Context, f model.Filter) []model.ResultRecord

	// Classes returns the distinct competitor classes.
	Classes(ctx context.Context) []string

	// Competitors returns the distinct competitor names within class.
	Competitors(ctx context.Context, class string) []string

	// Count returns the number of stored records.
	Count(ctx context.Context) int

	// Reset drops every record.
	Reset(ctx context.Context)
}
