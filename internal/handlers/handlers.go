package handlers

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/postloom/backend/internal/auth"
	"github.com/postloom/backend/internal/calendar"
	"github.com/postloom/backend/internal/generator"
	"github.com/postloom/backend/internal/lifecycle"
	"github.com/postloom/backend/internal/models"
	"github.com/postloom/backend/internal/store"
)

type Handler struct {
	store    store.ItemStore
	engine   *lifecycle.Engine
	agg      *calendar.Aggregator
	gen      generator.CaptionGenerator
	verifier *auth.Verifier
	rt       *realtimeHub
}

// New wires the façade over a Postgres-backed item store.
func New(db *sql.DB, gen generator.CaptionGenerator, verifier *auth.Verifier) *Handler {
	st := store.NewPostgresStore(db)
	return &Handler{
		store:    st,
		engine:   lifecycle.NewEngine(),
		agg:      calendar.NewAggregator(st),
		gen:      gen,
		verifier: verifier,
		rt:       newRealtimeHub(),
	}
}

// NewWithStore is used by tests to swap the persistence layer.
func NewWithStore(st store.ItemStore, gen generator.CaptionGenerator, verifier *auth.Verifier) *Handler {
	return &Handler{
		store:    st,
		engine:   lifecycle.NewEngine(),
		agg:      calendar.NewAggregator(st),
		gen:      gen,
		verifier: verifier,
		rt:       newRealtimeHub(),
	}
}

// Engine exposes the lifecycle engine so tests can pin its clock.
func (h *Handler) Engine() *lifecycle.Engine {
	return h.engine
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// CreateItem validates the input through the lifecycle engine and persists
// the resulting draft (or scheduled) item.
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerID(r)

	var in lifecycle.CreateInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	item, err := h.engine.ValidateCreate(ownerID, in)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	now := time.Now().UTC()
	item.ID = randHex(16)
	item.CreatedAt = now
	item.UpdatedAt = now

	if err := h.store.Insert(r.Context(), item); err != nil {
		log.Printf("[Items] insert failed owner=%s err=%v", ownerID, err)
		writeError(w, http.StatusInternalServerError, "failed to create item")
		return
	}

	h.emitEvent(ownerID, realtimeEvent{Type: "item.created", ItemID: item.ID, Status: item.Status, At: now.Format(time.RFC3339)})
	writeJSON(w, http.StatusCreated, item)
}

// ListItems returns all of the caller's items ordered by due time.
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerID(r)

	items, err := h.store.ListByOwner(r.Context(), ownerID)
	if err != nil {
		log.Printf("[Items] list failed owner=%s err=%v", ownerID, err)
		writeError(w, http.StatusInternalServerError, "failed to fetch items")
		return
	}
	if items == nil {
		items = []models.ContentItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

type updateItemRequest struct {
	lifecycle.Patch
	// Version is the version the caller read; stale values are rejected so
	// concurrent edits can't silently clobber each other.
	Version *int `json:"version"`
}

// UpdateItem fetches the current persisted item, re-checks ownership against
// it (never against the caller's copy), validates the transition, and applies
// the merged result with an optimistic version check.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerID(r)
	id := strings.TrimSpace(pathVar(r, "id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "item id is required")
		return
	}

	var req updateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.Version == nil {
		writeError(w, http.StatusBadRequest, "version is required", "version")
		return
	}

	current, err := h.store.GetByID(r.Context(), ownerID, id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if err := h.engine.ValidateOwnership(current, ownerID); err != nil {
		h.writeDomainError(w, err)
		return
	}

	merged, err := h.engine.ValidateTransition(current, req.Patch)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	updated, err := h.store.Update(r.Context(), merged, *req.Version)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.emitEvent(ownerID, realtimeEvent{Type: "item.updated", ItemID: updated.ID, Status: updated.Status, At: updated.UpdatedAt.UTC().Format(time.RFC3339)})
	writeJSON(w, http.StatusOK, updated)
}

// DeleteItem removes the caller's item. Deletion is the only terminal
// removal; there is no automatic expiry.
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerID(r)
	id := strings.TrimSpace(pathVar(r, "id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "item id is required")
		return
	}

	current, err := h.store.GetByID(r.Context(), ownerID, id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if err := h.engine.ValidateOwnership(current, ownerID); err != nil {
		h.writeDomainError(w, err)
		return
	}
	if err := h.store.Delete(r.Context(), ownerID, id); err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.emitEvent(ownerID, realtimeEvent{Type: "item.deleted", ItemID: id, At: time.Now().UTC().Format(time.RFC3339)})
	w.WriteHeader(http.StatusNoContent)
}

// CalendarList returns items due within [start, end] inclusive.
func (h *Handler) CalendarList(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerID(r)
	start, end, ok := parseRange(w, r)
	if !ok {
		return
	}

	items, err := h.agg.ListInRange(r.Context(), ownerID, start, end)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if items == nil {
		items = []models.ContentItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

// CalendarSummary returns sparse per-UTC-day buckets for [start, end].
func (h *Handler) CalendarSummary(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerID(r)
	start, end, ok := parseRange(w, r)
	if !ok {
		return
	}
	includeItems := r.URL.Query().Get("includeItems") == "true"

	summaries, err := h.agg.Summarize(r.Context(), ownerID, start, end, includeItems)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

type generateRequest struct {
	Topic    string `json:"topic"`
	Tone     string `json:"tone"`
	Platform string `json:"platform"`
}

type generateResponse struct {
	Captions []string `json:"captions"`
}

// GenerateCaptions asks the generation collaborator for caption variants.
// Output is returned to the caller as-is; nothing is persisted here.
func (h *Handler) GenerateCaptions(w http.ResponseWriter, r *http.Request) {
	if h.gen == nil {
		writeError(w, http.StatusServiceUnavailable, "caption generation is not configured")
		return
	}

	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		writeError(w, http.StatusBadRequest, "topic is required", "topic")
		return
	}
	tone := req.Tone
	if tone == "" {
		tone = models.ToneProfessional
	}
	if !models.ValidTone(tone) {
		writeError(w, http.StatusBadRequest, "unknown tone", "tone")
		return
	}
	if req.Platform != "" && !models.ValidPlatform(req.Platform) {
		writeError(w, http.StatusBadRequest, "unknown platform", "platform")
		return
	}

	captions, err := h.gen.Generate(r.Context(), req.Topic, tone, req.Platform)
	if err != nil {
		log.Printf("[Generate] failed owner=%s topic=%q err=%v", auth.OwnerID(r), req.Topic, err)
		writeError(w, http.StatusBadGateway, "failed to generate captions")
		return
	}
	writeJSON(w, http.StatusOK, generateResponse{Captions: captions})
}

// writeDomainError maps the domain error taxonomy onto HTTP statuses.
// Ownership failures and missing items share one 404 so callers can't tell
// other owners' items exist.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	var ve *lifecycle.ValidationError
	var te *lifecycle.InvalidTransitionError
	var fe *lifecycle.ForbiddenError
	var re *calendar.InvalidRangeError

	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, "validation failed", ve.Fields...)
	case errors.As(err, &re):
		writeError(w, http.StatusBadRequest, re.Error())
	case errors.As(err, &te):
		writeError(w, http.StatusUnprocessableEntity, te.Error())
	case errors.As(err, &fe), errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Item not found")
	case errors.Is(err, store.ErrVersionConflict):
		writeError(w, http.StatusConflict, "item was modified concurrently, re-read and retry")
	default:
		log.Printf("[Items] storage error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// parseRange reads RFC3339 start/end query params. Writes the error response
// itself and returns ok=false when the bounds are unusable.
func parseRange(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	q := r.URL.Query()
	start, err := time.Parse(time.RFC3339, q.Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid range: start must be an RFC3339 timestamp", "start")
		return time.Time{}, time.Time{}, false
	}
	end, err := time.Parse(time.RFC3339, q.Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid range: end must be an RFC3339 timestamp", "end")
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func randHex(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
