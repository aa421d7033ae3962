package store

import (
	"context"
	"errors"
	"time"

	"github.com/morshedkoli/macapp/internal/macsvc/models"
)

const MaxResults = 100

var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicateMac = errors.New("mac address already exists")
	ErrInvalidID    = errors.New("invalid record id")
)

// RecordFields holds canonical values ready to be written.
type RecordFields struct {
	Name  *string
	Mac   *string
	Phone *string
}

// RecordStore persists records. Implementations enforce MAC uniqueness with
// the backend's own unique index and report violations as ErrDuplicateMac.
type RecordStore interface {
	// ValidID reports whether id is well formed for this backend.
	ValidID(id string) bool
	Insert(ctx context.Context, rec models.Record) (models.Record, error)
	Get(ctx context.Context, id string) (models.Record, error)
	Update(ctx context.Context, id string, fields RecordFields, updatedAt time.Time) (models.Record, error)
	Delete(ctx context.Context, id string) error
	// Find returns records newest first, at most filter.Limit of them.
	Find(ctx context.Context, filter models.RecordFilter) ([]models.Record, error)
	Stats(ctx context.Context, since time.Time) (models.RecordStats, error)
}

func limitOf(filter models.RecordFilter) int {
	if filter.Limit <= 0 || filter.Limit > MaxResults {
		return MaxResults
	}
	return filter.Limit
}
