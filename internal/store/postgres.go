package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/postloom/backend/internal/models"
)

const itemColumns = `id, owner_id, topic, tone, candidate_captions, selected_caption, platform, scheduled_at, status, version, created_at, updated_at`

// PostgresStore implements ItemStore over public.content_items.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, item models.ContentItem) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO public.content_items
		  (id, owner_id, topic, tone, candidate_captions, selected_caption, platform, scheduled_at, status, version, created_at, updated_at)
		VALUES
		  ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
	`, item.ID, item.OwnerID, item.Topic, item.Tone, pq.Array(item.CandidateCaptions),
		item.SelectedCaption, item.Platform, item.ScheduledAt, item.Status, item.Version, item.CreatedAt)
	return err
}

func (s *PostgresStore) GetByID(ctx context.Context, ownerID, id string) (models.ContentItem, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+itemColumns+`
		  FROM public.content_items
		 WHERE id = $1 AND owner_id = $2
	`, id, ownerID)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return models.ContentItem{}, ErrNotFound
	}
	return item, err
}

func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID string) ([]models.ContentItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+itemColumns+`
		  FROM public.content_items
		 WHERE owner_id = $1
		 ORDER BY scheduled_at ASC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

func (s *PostgresStore) ListInRange(ctx context.Context, ownerID string, start, end time.Time) ([]models.ContentItem, error) {
	// Bounds are inclusive on both ends.
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+itemColumns+`
		  FROM public.content_items
		 WHERE owner_id = $1
		   AND scheduled_at >= $2
		   AND scheduled_at <= $3
		 ORDER BY scheduled_at ASC
	`, ownerID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

// Update persists item only if the stored row still carries expectedVersion.
// The version column is bumped on success. A zero-row update is disambiguated
// with a follow-up read: missing row means ErrNotFound, otherwise the caller
// lost a race and gets ErrVersionConflict.
func (s *PostgresStore) Update(ctx context.Context, item models.ContentItem, expectedVersion int) (models.ContentItem, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE public.content_items
		   SET topic = $3,
		       tone = $4,
		       candidate_captions = $5,
		       selected_caption = $6,
		       platform = $7,
		       scheduled_at = $8,
		       status = $9,
		       version = version + 1,
		       updated_at = NOW()
		 WHERE id = $1
		   AND owner_id = $2
		   AND version = $10
		RETURNING `+itemColumns+`
	`, item.ID, item.OwnerID, item.Topic, item.Tone, pq.Array(item.CandidateCaptions),
		item.SelectedCaption, item.Platform, item.ScheduledAt, item.Status, expectedVersion)

	updated, err := scanItem(row)
	if err == sql.ErrNoRows {
		if _, gerr := s.GetByID(ctx, item.OwnerID, item.ID); gerr == ErrNotFound {
			return models.ContentItem{}, ErrNotFound
		} else if gerr != nil {
			return models.ContentItem{}, gerr
		}
		return models.ContentItem{}, ErrVersionConflict
	}
	return updated, err
}

func (s *PostgresStore) Delete(ctx context.Context, ownerID, id string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM public.content_items
		 WHERE id = $1 AND owner_id = $2
	`, id, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(r rowScanner) (models.ContentItem, error) {
	var item models.ContentItem
	var selected sql.NullString
	err := r.Scan(&item.ID, &item.OwnerID, &item.Topic, &item.Tone,
		pq.Array(&item.CandidateCaptions), &selected, &item.Platform,
		&item.ScheduledAt, &item.Status, &item.Version, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return models.ContentItem{}, err
	}
	if selected.Valid {
		item.SelectedCaption = &selected.String
	}
	return item, nil
}

func scanItems(rows *sql.Rows) ([]models.ContentItem, error) {
	var items []models.ContentItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
