package model

import "time"

type MediaType string

const (
	MediaText  MediaType = "text"
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
	MediaAudio MediaType = "audio"
)

// ContentItem is one day's content for one bot. (BotID, Day) is unique; an
// inactive item is treated as absent by the repository.
type ContentItem struct {
	ID         int64
	BotID      int64
	Day        int
	Title      string
	Body       string
	MediaType  MediaType
	MediaURL   *string
	Reflection string // optional follow-up question, empty when none
	IsActive   bool
	CreatedAt  time.Time
}

// HasMedia reports whether the item carries a sendable media attachment.
func (c ContentItem) HasMedia() bool {
	return c.MediaType != MediaText && c.MediaURL != nil && *c.MediaURL != ""
}
