// Package queue fans delivery audit records out to the analytics consumer
// over AMQP. Publishing is best-effort: the Postgres audit row is the record
// of truth and a broker outage must never fail a delivery.
package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/journeykit/delivery/internal/model"
	"github.com/journeykit/delivery/internal/repo"
)

const auditExchange = "delivery.audit"

type AuditPublisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAuditPublisher(url string) (*AuditPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(auditExchange, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &AuditPublisher{conn: conn, ch: ch}, nil
}

func (p *AuditPublisher) Publish(a model.DeliveryAudit) error {
	body, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return p.ch.Publish(auditExchange, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

func (p *AuditPublisher) Close() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// PublishingAuditRepo decorates an AuditRepository: every stored record is
// also announced on the broker. Listing passes through.
type PublishingAuditRepo struct {
	inner repo.AuditRepository
	pub   *AuditPublisher
}

func NewPublishingAuditRepo(inner repo.AuditRepository, pub *AuditPublisher) *PublishingAuditRepo {
	return &PublishingAuditRepo{inner: inner, pub: pub}
}

func (r *PublishingAuditRepo) Record(ctx context.Context, a model.DeliveryAudit) error {
	if err := r.inner.Record(ctx, a); err != nil {
		return err
	}
	if err := r.pub.Publish(a); err != nil {
		slog.Warn("audit publish failed", "recipient_id", a.RecipientID, "day", a.Day, "error", err)
	}
	return nil
}

func (r *PublishingAuditRepo) ListRecent(ctx context.Context, limit, offset int) ([]model.DeliveryAudit, error) {
	return r.inner.ListRecent(ctx, limit, offset)
}
