package repo

import (
	"context"
	"errors"
	"time"

	"github.com/journeykit/delivery/internal/model"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict means a guarded update matched no row: the recipient was
	// mutated concurrently (external command, another worker) and the
	// caller's view is stale.
	ErrConflict = errors.New("recipient state changed concurrently")
)

type JourneyRepository interface {
	// ListDue returns active recipients whose last delivery is older than
	// their bot's delivery interval (or who have never been delivered to).
	ListDue(ctx context.Context, now time.Time, limit int) ([]model.Recipient, error)

	Get(ctx context.Context, id int64) (*model.Recipient, error)

	// Advance moves a recipient from fromDay to fromDay+1 and records the
	// delivery time. The update is guarded on (current_day = fromDay,
	// status = active) so it cannot clobber an external restart or pause
	// that landed in between; a miss returns ErrConflict.
	Advance(ctx context.Context, id int64, fromDay int, deliveredAt time.Time, status model.Status) error

	// Pause parks an active recipient (content gap or operator action).
	Pause(ctx context.Context, id int64) error

	// Resume reactivates a paused recipient. Resumption is always an
	// explicit external action; the engine never auto-resumes.
	Resume(ctx context.Context, id int64) error
}
