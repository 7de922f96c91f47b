package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrSessionNotFound = errors.New("session not found")

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const sessionColumns = `id, user_id, type, pair_link_id, status, start_time, end_time, duration_seconds, minutes_billed, cost_cents, initial_balance, transcript`

func (r *repository) Create(ctx context.Context, userID int, sessionType string, pairLinkID *string, initialBalance int) (*Session, error) {
	var s Session
	err := r.db.GetContext(ctx, &s, `
		INSERT INTO voice_sessions (id, user_id, type, pair_link_id, initial_balance)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+sessionColumns,
		uuid.NewString(), userID, sessionType, pairLinkID, initialBalance,
	)
	if err != nil {
		return nil, err
	}

	return &s, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Session, error) {
	var s Session
	err := r.db.GetContext(ctx, &s, `SELECT `+sessionColumns+` FROM voice_sessions WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	return &s, nil
}

// MarkTerminal is the single gate out of "initiated". The conditional
// WHERE makes close racing safe: exactly one caller claims the
// transition and proceeds to billing.
func (r *repository) MarkTerminal(ctx context.Context, id, status string, endTime time.Time, durationSeconds int) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE voice_sessions
		SET status = $2, end_time = $3, duration_seconds = $4
		WHERE id = $1 AND status = 'initiated'
	`, id, status, endTime, durationSeconds)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected == 1, nil
}

func (r *repository) RecordBilling(ctx context.Context, id string, minutesBilled int, costCents int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE voice_sessions
		SET minutes_billed = $2, cost_cents = $3
		WHERE id = $1
	`, id, minutesBilled, costCents)
	return err
}

func (r *repository) SaveTranscript(ctx context.Context, id string, transcript json.RawMessage) error {
	if len(transcript) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE voice_sessions
		SET transcript = $2
		WHERE id = $1
	`, id, []byte(transcript))
	return err
}

func (r *repository) ListByUser(ctx context.Context, userID, limit, offset int) ([]Session, error) {
	if limit <= 0 {
		limit = 50
	}

	sessions := []Session{}
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT `+sessionColumns+`
		FROM voice_sessions
		WHERE user_id = $1
		ORDER BY start_time DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	return sessions, nil
}

func (r *repository) FindStale(ctx context.Context, olderThan time.Time, limit int) ([]Session, error) {
	sessions := []Session{}
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT `+sessionColumns+`
		FROM voice_sessions
		WHERE status = 'initiated' AND start_time < $1
		ORDER BY start_time ASC
		LIMIT $2
	`, olderThan, limit)
	if err != nil {
		return nil, err
	}

	return sessions, nil
}
