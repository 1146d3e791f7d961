package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/postloom/backend/internal/models"
)

// InvalidRangeError reports an unusable [start, end] interval.
type InvalidRangeError struct {
	Reason string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid range: %s", e.Reason)
}

// RangeLister is the slice of the item store the aggregator needs.
type RangeLister interface {
	ListInRange(ctx context.Context, ownerID string, start, end time.Time) ([]models.ContentItem, error)
}

// Aggregator answers time-range and day-bucketed queries for one owner.
// It is stateless; identical calls against an unchanged store produce
// identical output.
type Aggregator struct {
	store RangeLister
}

func NewAggregator(store RangeLister) *Aggregator {
	return &Aggregator{store: store}
}

// ListInRange returns the owner's items with scheduled_at in [start, end]
// inclusive, ascending by due time.
func (a *Aggregator) ListInRange(ctx context.Context, ownerID string, start, end time.Time) ([]models.ContentItem, error) {
	if start.IsZero() || end.IsZero() {
		return nil, &InvalidRangeError{Reason: "start and end are required"}
	}
	if start.After(end) {
		return nil, &InvalidRangeError{Reason: "start is after end"}
	}
	return a.store.ListInRange(ctx, ownerID, start, end)
}

// Summarize buckets the range by calendar day in UTC. The day boundary is
// midnight UTC derived from the stored timestamp, never a client offset, so
// summaries are comparable across callers. Days with no items are omitted.
func (a *Aggregator) Summarize(ctx context.Context, ownerID string, start, end time.Time, includeItems bool) ([]models.DaySummary, error) {
	items, err := a.ListInRange(ctx, ownerID, start, end)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.DaySummary, 0)
	for _, item := range items {
		day := item.ScheduledAt.UTC().Format("2006-01-02")
		// Items arrive sorted by scheduled_at, so buckets appear in
		// ascending date order and only the tail bucket can grow.
		if n := len(summaries); n > 0 && summaries[n-1].Date == day {
			summaries[n-1].Count++
			if includeItems {
				summaries[n-1].Items = append(summaries[n-1].Items, item)
			}
			continue
		}
		s := models.DaySummary{Date: day, Count: 1}
		if includeItems {
			s.Items = []models.ContentItem{item}
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}
