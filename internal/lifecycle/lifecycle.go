package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/postloom/backend/internal/models"
)

// ValidationError reports malformed or missing input fields. Fields holds the
// offending field names so the API can return them to the caller.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid fields: %s", strings.Join(e.Fields, ", "))
}

// InvalidTransitionError reports a state-machine rule violation.
type InvalidTransitionError struct {
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s", e.Reason)
}

// ForbiddenError reports an ownership mismatch. The API collapses it into the
// same not-found response as a missing item so non-owners can't probe ids.
type ForbiddenError struct {
	ItemID string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("item %s is not owned by caller", e.ItemID)
}

// CreateInput is the caller-supplied shape for a new item. Status may be
// "draft" (default) or "scheduled"; items are never created published.
type CreateInput struct {
	Topic             string    `json:"topic"`
	Tone              string    `json:"tone"`
	CandidateCaptions []string  `json:"candidateCaptions"`
	SelectedCaption   *string   `json:"selectedCaption,omitempty"`
	Platform          string    `json:"platform"`
	ScheduledAt       time.Time `json:"scheduledAt"`
	Status            string    `json:"status"`
}

// Patch is a partial update. Nil means "leave unchanged". OwnerID is
// deliberately absent: ownership is immutable.
type Patch struct {
	Topic             *string    `json:"topic,omitempty"`
	Tone              *string    `json:"tone,omitempty"`
	CandidateCaptions []string   `json:"candidateCaptions,omitempty"`
	SelectedCaption   *string    `json:"selectedCaption,omitempty"`
	Platform          *string    `json:"platform,omitempty"`
	ScheduledAt       *time.Time `json:"scheduledAt,omitempty"`
	Status            *string    `json:"status,omitempty"`
}

// Engine validates item creation and mutation independent of storage. Now is
// overridable so past-date checks are deterministic in tests.
type Engine struct {
	Now func() time.Time
}

func NewEngine() *Engine {
	return &Engine{Now: time.Now}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// ValidateCreate checks input invariants and returns a fully formed item in
// the requested initial state. ID and timestamps are left for the caller to
// assign just before persisting. On failure no partial item is returned.
func (e *Engine) ValidateCreate(ownerID string, in CreateInput) (models.ContentItem, error) {
	var bad []string

	topic := strings.TrimSpace(in.Topic)
	if topic == "" {
		bad = append(bad, "topic")
	}

	tone := strings.TrimSpace(in.Tone)
	if tone == "" {
		tone = models.ToneProfessional
	}
	if !models.ValidTone(tone) {
		bad = append(bad, "tone")
	}

	captions := normalizeCaptions(in.CandidateCaptions)
	if len(captions) == 0 {
		bad = append(bad, "candidateCaptions")
	}

	if !models.ValidPlatform(in.Platform) {
		bad = append(bad, "platform")
	}

	if in.ScheduledAt.IsZero() {
		bad = append(bad, "scheduledAt")
	}

	status := in.Status
	if status == "" {
		status = models.StatusDraft
	}
	switch status {
	case models.StatusDraft:
	case models.StatusScheduled:
		if !in.ScheduledAt.IsZero() && in.ScheduledAt.Before(e.now()) {
			bad = append(bad, "scheduledAt")
		}
	default:
		// Creating directly as published is not a modeled entry point.
		bad = append(bad, "status")
	}

	if in.SelectedCaption != nil && !captionListed(captions, *in.SelectedCaption) {
		bad = append(bad, "selectedCaption")
	}

	if len(bad) > 0 {
		return models.ContentItem{}, &ValidationError{Fields: dedupe(bad)}
	}

	return models.ContentItem{
		OwnerID:           ownerID,
		Topic:             topic,
		Tone:              tone,
		CandidateCaptions: captions,
		SelectedCaption:   in.SelectedCaption,
		Platform:          in.Platform,
		ScheduledAt:       in.ScheduledAt,
		Status:            status,
		Version:           1,
	}, nil
}

// ValidateTransition merges patch onto current and checks the result against
// the state-machine rules. It never mutates current; callers persist the
// returned item themselves.
func (e *Engine) ValidateTransition(current models.ContentItem, patch Patch) (models.ContentItem, error) {
	merged := current
	merged.CandidateCaptions = append([]string(nil), current.CandidateCaptions...)

	var bad []string

	if patch.Topic != nil {
		t := strings.TrimSpace(*patch.Topic)
		if t == "" {
			bad = append(bad, "topic")
		}
		merged.Topic = t
	}
	if patch.Tone != nil {
		if !models.ValidTone(*patch.Tone) {
			bad = append(bad, "tone")
		}
		merged.Tone = *patch.Tone
	}
	if patch.CandidateCaptions != nil {
		captions := normalizeCaptions(patch.CandidateCaptions)
		if len(captions) == 0 {
			bad = append(bad, "candidateCaptions")
		}
		merged.CandidateCaptions = captions
	}
	if patch.Platform != nil {
		if !models.ValidPlatform(*patch.Platform) {
			bad = append(bad, "platform")
		}
		merged.Platform = *patch.Platform
	}
	if patch.ScheduledAt != nil {
		if patch.ScheduledAt.IsZero() {
			bad = append(bad, "scheduledAt")
		}
		merged.ScheduledAt = *patch.ScheduledAt
	}
	if patch.Status != nil {
		if !models.ValidStatus(*patch.Status) {
			bad = append(bad, "status")
		}
		merged.Status = *patch.Status
	}
	if patch.SelectedCaption != nil {
		merged.SelectedCaption = patch.SelectedCaption
	}

	if len(bad) > 0 {
		return models.ContentItem{}, &ValidationError{Fields: dedupe(bad)}
	}

	if models.StatusRank(merged.Status) < models.StatusRank(current.Status) {
		return models.ContentItem{}, &InvalidTransitionError{
			Reason: fmt.Sprintf("status cannot move from %s back to %s", current.Status, merged.Status),
		}
	}

	// The past-date guard applies whenever the resulting state is scheduled,
	// whether the patch changed the status, the time, or both.
	if merged.Status == models.StatusScheduled && (patch.Status != nil || patch.ScheduledAt != nil) {
		if merged.ScheduledAt.Before(e.now()) {
			return models.ContentItem{}, &InvalidTransitionError{
				Reason: "scheduledAt is in the past",
			}
		}
	}

	if merged.SelectedCaption != nil && !captionListed(merged.CandidateCaptions, *merged.SelectedCaption) {
		return models.ContentItem{}, &InvalidTransitionError{
			Reason: "selectedCaption is not one of candidateCaptions",
		}
	}

	return merged, nil
}

// ValidateOwnership must be called with the current persisted item, never a
// caller-supplied copy.
func (e *Engine) ValidateOwnership(item models.ContentItem, callerOwnerID string) error {
	if item.OwnerID != callerOwnerID {
		return &ForbiddenError{ItemID: item.ID}
	}
	return nil
}

func normalizeCaptions(in []string) []string {
	out := make([]string, 0, len(in))
	for _, c := range in {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}

func captionListed(captions []string, want string) bool {
	for _, c := range captions {
		if c == want {
			return true
		}
	}
	return false
}

func dedupe(fields []string) []string {
	seen := map[string]bool{}
	out := fields[:0]
	for _, f := range fields {
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}
