package models

import "time"

// Tone values accepted for caption generation and stored on items.
const (
	ToneProfessional = "Professional"
	ToneFunny        = "Funny"
	ToneCasual       = "Casual"
	ToneMotivational = "Motivational"
)

// Platform values. Single authoritative list; keep in sync with the
// check constraint in db/migrations.
const (
	PlatformInstagram = "Instagram"
	PlatformLinkedIn  = "LinkedIn"
	PlatformTwitter   = "Twitter"
	PlatformFacebook  = "Facebook"
)

// Item statuses. Transitions are one-way: draft -> scheduled -> published.
const (
	StatusDraft     = "draft"
	StatusScheduled = "scheduled"
	StatusPublished = "published"
)

func ValidTone(t string) bool {
	switch t {
	case ToneProfessional, ToneFunny, ToneCasual, ToneMotivational:
		return true
	}
	return false
}

func ValidPlatform(p string) bool {
	switch p {
	case PlatformInstagram, PlatformLinkedIn, PlatformTwitter, PlatformFacebook:
		return true
	}
	return false
}

func ValidStatus(s string) bool {
	switch s {
	case StatusDraft, StatusScheduled, StatusPublished:
		return true
	}
	return false
}

// StatusRank orders statuses for the monotonic-transition check.
func StatusRank(s string) int {
	switch s {
	case StatusDraft:
		return 0
	case StatusScheduled:
		return 1
	case StatusPublished:
		return 2
	}
	return -1
}

type ContentItem struct {
	ID                string    `json:"id"`
	OwnerID           string    `json:"ownerId"`
	Topic             string    `json:"topic"`
	Tone              string    `json:"tone"`
	CandidateCaptions []string  `json:"candidateCaptions"`
	SelectedCaption   *string   `json:"selectedCaption,omitempty"`
	Platform          string    `json:"platform"`
	ScheduledAt       time.Time `json:"scheduledAt"`
	Status            string    `json:"status"`
	Version           int       `json:"version"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// DaySummary is one calendar bucket. Date is the UTC day in YYYY-MM-DD form.
// Items is populated only when the caller asks for it.
type DaySummary struct {
	Date  string        `json:"date"`
	Count int           `json:"count"`
	Items []ContentItem `json:"items,omitempty"`
}
