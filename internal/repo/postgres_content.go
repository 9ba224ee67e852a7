package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/journeykit/delivery/internal/model"
)

type PostgresContentRepo struct {
	db *sql.DB
}

func NewPostgresContentRepo(db *sql.DB) *PostgresContentRepo {
	return &PostgresContentRepo{db: db}
}

func (r *PostgresContentRepo) GetByDay(ctx context.Context, botID int64, day int) (*model.ContentItem, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, bot_id, day_number, title, body, media_type, media_url,
		       reflection_question, is_active, created_at
		FROM content_items
		WHERE bot_id = $1 AND day_number = $2 AND is_active
	`, botID, day)

	var (
		c          model.ContentItem
		mediaType  string
		mediaURL   sql.NullString
		reflection sql.NullString
	)
	err := row.Scan(
		&c.ID,
		&c.BotID,
		&c.Day,
		&c.Title,
		&c.Body,
		&mediaType,
		&mediaURL,
		&reflection,
		&c.IsActive,
		&c.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	c.MediaType = model.MediaType(mediaType)
	if mediaURL.Valid {
		s := mediaURL.String
		c.MediaURL = &s
	}
	if reflection.Valid {
		c.Reflection = reflection.String
	}
	return &c, nil
}
