package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/postloom/backend/internal/models"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testEngine() *Engine {
	return &Engine{Now: func() time.Time { return testNow }}
}

func validInput() CreateInput {
	return CreateInput{
		Topic:             "launch",
		Tone:              models.ToneFunny,
		CandidateCaptions: []string{"A", "B"},
		Platform:          models.PlatformTwitter,
		ScheduledAt:       testNow.Add(time.Hour),
	}
}

func strptr(s string) *string { return &s }

func TestValidateCreate_Defaults(t *testing.T) {
	e := testEngine()
	in := validInput()
	in.Tone = ""
	in.Status = ""

	item, err := e.ValidateCreate("u1", in)
	if err != nil {
		t.Fatalf("ValidateCreate: %v", err)
	}
	if item.Status != models.StatusDraft {
		t.Fatalf("expected draft, got %q", item.Status)
	}
	if item.Tone != models.ToneProfessional {
		t.Fatalf("expected Professional default, got %q", item.Tone)
	}
	if item.OwnerID != "u1" {
		t.Fatalf("expected ownerId u1, got %q", item.OwnerID)
	}
	if item.Version != 1 {
		t.Fatalf("expected version 1, got %d", item.Version)
	}
}

func TestValidateCreate_MissingFields(t *testing.T) {
	e := testEngine()

	_, err := e.ValidateCreate("u1", CreateInput{})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := map[string]bool{"topic": true, "candidateCaptions": true, "platform": true, "scheduledAt": true}
	for _, f := range ve.Fields {
		if !want[f] {
			t.Fatalf("unexpected field %q in %v", f, ve.Fields)
		}
		delete(want, f)
	}
	if len(want) != 0 {
		t.Fatalf("missing fields in error: %v (got %v)", want, ve.Fields)
	}
}

func TestValidateCreate_EmptyCaptionsRejected(t *testing.T) {
	e := testEngine()
	in := validInput()
	in.CandidateCaptions = []string{"", "   "}

	_, err := e.ValidateCreate("u1", in)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestValidateCreate_ScheduledInPast(t *testing.T) {
	e := testEngine()
	in := validInput()
	in.Status = models.StatusScheduled
	in.ScheduledAt = testNow.Add(-time.Hour)

	if _, err := e.ValidateCreate("u1", in); err == nil {
		t.Fatalf("expected error for past scheduledAt with status=scheduled")
	}

	// A past due time on a draft is fine; the guard applies at the
	// transition into scheduled, not at creation.
	in.Status = models.StatusDraft
	if _, err := e.ValidateCreate("u1", in); err != nil {
		t.Fatalf("draft with past scheduledAt should pass: %v", err)
	}
}

func TestValidateCreate_PublishedRejected(t *testing.T) {
	e := testEngine()
	in := validInput()
	in.Status = models.StatusPublished

	if _, err := e.ValidateCreate("u1", in); err == nil {
		t.Fatalf("expected error creating directly as published")
	}
}

func existingItem() models.ContentItem {
	return models.ContentItem{
		ID:                "item1",
		OwnerID:           "u1",
		Topic:             "launch",
		Tone:              models.ToneFunny,
		CandidateCaptions: []string{"A", "B"},
		Platform:          models.PlatformTwitter,
		ScheduledAt:       testNow.Add(time.Hour),
		Status:            models.StatusDraft,
		Version:           1,
	}
}

func TestValidateTransition_DraftToScheduled(t *testing.T) {
	e := testEngine()
	merged, err := e.ValidateTransition(existingItem(), Patch{Status: strptr(models.StatusScheduled)})
	if err != nil {
		t.Fatalf("ValidateTransition: %v", err)
	}
	if merged.Status != models.StatusScheduled {
		t.Fatalf("expected scheduled, got %q", merged.Status)
	}
}

func TestValidateTransition_BackwardRejected(t *testing.T) {
	e := testEngine()
	item := existingItem()
	item.Status = models.StatusPublished

	for _, target := range []string{models.StatusScheduled, models.StatusDraft} {
		_, err := e.ValidateTransition(item, Patch{Status: strptr(target)})
		var te *InvalidTransitionError
		if !errors.As(err, &te) {
			t.Fatalf("expected InvalidTransitionError for published->%s, got %v", target, err)
		}
	}
}

func TestValidateTransition_PastDateGuard(t *testing.T) {
	e := testEngine()
	past := testNow.Add(-time.Hour)

	// Moving the due time into the past while scheduled.
	item := existingItem()
	item.Status = models.StatusScheduled
	_, err := e.ValidateTransition(item, Patch{ScheduledAt: &past})
	var te *InvalidTransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}

	// Scheduling a draft whose stored due time already passed.
	stale := existingItem()
	stale.ScheduledAt = past
	if _, err := e.ValidateTransition(stale, Patch{Status: strptr(models.StatusScheduled)}); err == nil {
		t.Fatalf("expected error scheduling with past stored due time")
	}
}

func TestValidateTransition_SelectedCaptionMembership(t *testing.T) {
	// Deliberate strictness: the original system accepted any
	// selectedCaption, including post-hoc manual text. This implementation
	// requires membership in candidateCaptions; loosen here if manual
	// captions become a product requirement.
	e := testEngine()

	_, err := e.ValidateTransition(existingItem(), Patch{SelectedCaption: strptr("C")})
	var te *InvalidTransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected InvalidTransitionError for caption outside candidates, got %v", err)
	}

	merged, err := e.ValidateTransition(existingItem(), Patch{SelectedCaption: strptr("B")})
	if err != nil {
		t.Fatalf("expected caption B accepted: %v", err)
	}
	if merged.SelectedCaption == nil || *merged.SelectedCaption != "B" {
		t.Fatalf("expected selectedCaption B, got %#v", merged.SelectedCaption)
	}
}

func TestValidateTransition_CaptionsReplacedWithSelection(t *testing.T) {
	e := testEngine()
	item := existingItem()
	item.SelectedCaption = strptr("A")

	// Replacing the candidate list must keep the selection consistent.
	_, err := e.ValidateTransition(item, Patch{CandidateCaptions: []string{"X", "Y"}})
	if err == nil {
		t.Fatalf("expected error when new candidates drop the selected caption")
	}
}

func TestValidateTransition_DoesNotMutateCurrent(t *testing.T) {
	e := testEngine()
	item := existingItem()
	_, err := e.ValidateTransition(item, Patch{CandidateCaptions: []string{"X"}, SelectedCaption: strptr("X")})
	if err != nil {
		t.Fatalf("ValidateTransition: %v", err)
	}
	if len(item.CandidateCaptions) != 2 || item.CandidateCaptions[0] != "A" {
		t.Fatalf("current item was mutated: %#v", item.CandidateCaptions)
	}
}

func TestValidateOwnership(t *testing.T) {
	e := testEngine()
	item := existingItem()

	if err := e.ValidateOwnership(item, "u1"); err != nil {
		t.Fatalf("expected owner accepted: %v", err)
	}

	err := e.ValidateOwnership(item, "u2")
	var fe *ForbiddenError
	if !errors.As(err, &fe) {
		t.Fatalf("expected ForbiddenError, got %v", err)
	}
}
