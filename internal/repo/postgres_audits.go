package repo

import (
	"context"
	"database/sql"

	"github.com/journeykit/delivery/internal/model"
)

type PostgresAuditRepo struct {
	db *sql.DB
}

func NewPostgresAuditRepo(db *sql.DB) *PostgresAuditRepo {
	return &PostgresAuditRepo{db: db}
}

func (r *PostgresAuditRepo) Record(ctx context.Context, a model.DeliveryAudit) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO delivery_audits
			(recipient_id, day_number, outcome, detail, deactivate, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, a.RecipientID, a.Day, string(a.Outcome), a.Detail, a.Deactivate, a.CreatedAt.UTC())
	return err
}

func (r *PostgresAuditRepo) ListRecent(ctx context.Context, limit, offset int) ([]model.DeliveryAudit, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, recipient_id, day_number, outcome, detail, deactivate, created_at
		FROM delivery_audits
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.DeliveryAudit
	for rows.Next() {
		var (
			a       model.DeliveryAudit
			outcome string
			detail  sql.NullString
		)
		if err := rows.Scan(
			&a.ID,
			&a.RecipientID,
			&a.Day,
			&outcome,
			&detail,
			&a.Deactivate,
			&a.CreatedAt,
		); err != nil {
			return nil, err
		}
		a.Outcome = model.Outcome(outcome)
		if detail.Valid {
			a.Detail = detail.String
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
