package store

import (
	"context"
	"errors"
	"time"

	"github.com/postloom/backend/internal/models"
)

// ErrNotFound is returned when no item matches the (owner, id) pair. Owner
// mismatch and true absence are indistinguishable on purpose.
var ErrNotFound = errors.New("item not found")

// ErrVersionConflict is returned when an update carries a stale version.
var ErrVersionConflict = errors.New("item version conflict")

// ItemStore is the persistence boundary for content items. Every read and
// write is scoped by owner.
type ItemStore interface {
	Insert(ctx context.Context, item models.ContentItem) error
	GetByID(ctx context.Context, ownerID, id string) (models.ContentItem, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.ContentItem, error)
	ListInRange(ctx context.Context, ownerID string, start, end time.Time) ([]models.ContentItem, error)
	Update(ctx context.Context, item models.ContentItem, expectedVersion int) (models.ContentItem, error)
	Delete(ctx context.Context, ownerID, id string) error
}
