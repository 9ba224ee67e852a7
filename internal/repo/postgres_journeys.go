package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/journeykit/delivery/internal/model"
)

type PostgresJourneyRepo struct {
	db *sql.DB
}

func NewPostgresJourneyRepo(db *sql.DB) *PostgresJourneyRepo {
	return &PostgresJourneyRepo{db: db}
}

func (r *PostgresJourneyRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]model.Recipient, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be > 0")
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT r.id, r.bot_id, b.platform, r.destination, r.status,
		       r.current_day, r.journey_days, r.last_delivered_at, r.enrolled_at
		FROM recipients r
		JOIN bots b ON b.id = r.bot_id
		WHERE b.is_active
		  AND r.status = 'active'
		  AND (r.last_delivered_at IS NULL
		       OR r.last_delivered_at <= $1 - b.delivery_interval)
		LIMIT $2
	`, now.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Recipient
	for rows.Next() {
		rec, err := scanRecipient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *PostgresJourneyRepo) Get(ctx context.Context, id int64) (*model.Recipient, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT r.id, r.bot_id, b.platform, r.destination, r.status,
		       r.current_day, r.journey_days, r.last_delivered_at, r.enrolled_at
		FROM recipients r
		JOIN bots b ON b.id = r.bot_id
		WHERE r.id = $1
	`, id)

	rec, err := scanRecipient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *PostgresJourneyRepo) Advance(ctx context.Context, id int64, fromDay int, deliveredAt time.Time, status model.Status) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE recipients
		SET current_day = $2 + 1,
		    status = $3,
		    last_delivered_at = $4,
		    updated_at = now()
		WHERE id = $1
		  AND current_day = $2
		  AND status = 'active'
	`, id, fromDay, string(status), deliveredAt.UTC())
	if err != nil {
		return err
	}
	return oneRowOr(res, ErrConflict)
}

func (r *PostgresJourneyRepo) Pause(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE recipients
		SET status = 'paused', updated_at = now()
		WHERE id = $1 AND status = 'active'
	`, id)
	if err != nil {
		return err
	}
	return oneRowOr(res, ErrConflict)
}

func (r *PostgresJourneyRepo) Resume(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE recipients
		SET status = 'active', updated_at = now()
		WHERE id = $1 AND status = 'paused'
	`, id)
	if err != nil {
		return err
	}
	return oneRowOr(res, ErrConflict)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecipient(row rowScanner) (model.Recipient, error) {
	var (
		rec       model.Recipient
		status    string
		platform  string
		delivered sql.NullTime
	)
	if err := row.Scan(
		&rec.ID,
		&rec.BotID,
		&platform,
		&rec.Destination,
		&status,
		&rec.CurrentDay,
		&rec.JourneyDays,
		&delivered,
		&rec.EnrolledAt,
	); err != nil {
		return model.Recipient{}, err
	}
	rec.Status = model.Status(status)
	rec.Platform = model.Platform(platform)
	if delivered.Valid {
		t := delivered.Time
		rec.LastDeliveredAt = &t
	}
	return rec, nil
}

func oneRowOr(res sql.Result, miss error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return miss
	}
	return nil
}
