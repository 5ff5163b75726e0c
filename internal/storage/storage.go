// Package storage defines the record store that holds lost and found item reports.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/lostfound/internal/models"
)

// ErrNotFound is returned when an item ID has no record.
var ErrNotFound = errors.New("item not found")

// RecordStore defines item record persistence operations.
type RecordStore interface {
	// GetAll returns every record in insertion order.
	GetAll(ctx context.Context) ([]*models.ItemRecord, error)
	Get(ctx context.Context, itemID string) (*models.ItemRecord, error)
	Insert(ctx context.Context, rec *models.ItemRecord) error
	UpdateEmbedding(ctx context.Context, itemID string, embedding []float32) error

	// List returns records matching filter for the discover view.
	List(ctx context.Context, filter models.ItemFilter) ([]*models.ItemRecord, error)
	Count(ctx context.Context) (int64, error)

	Close() error
}
