package repo

import (
	"context"

	"github.com/journeykit/delivery/internal/model"
)

type ContentRepository interface {
	// GetByDay returns the active content item for (botID, day), or nil
	// when the day has no active item. Missing and inactive are the same
	// condition to callers: a content gap.
	GetByDay(ctx context.Context, botID int64, day int) (*model.ContentItem, error)
}
