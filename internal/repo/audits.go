package repo

import (
	"context"

	"github.com/journeykit/delivery/internal/model"
)

// AuditRepository is the append-only delivery log. Records are never
// updated; analytics consumes them out-of-band.
type AuditRepository interface {
	Record(ctx context.Context, a model.DeliveryAudit) error
	ListRecent(ctx context.Context, limit, offset int) ([]model.DeliveryAudit, error)
}
