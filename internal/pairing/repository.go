package pairing

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrLinkNotFound    = errors.New("pair link not found")
	ErrLinkUnavailable = errors.New("pair link is not pending or belongs to you")
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const linkColumns = `id, inviter_id, invitee_id, code, status, created_at, accepted_at`

func (r *repository) Create(ctx context.Context, inviterID int) (*PairLink, error) {
	var link PairLink
	err := r.db.GetContext(ctx, &link, `
		INSERT INTO pair_links (id, inviter_id, code)
		VALUES ($1, $2, $3)
		RETURNING `+linkColumns,
		uuid.NewString(), inviterID, uuid.NewString(),
	)
	if err != nil {
		return nil, err
	}

	return &link, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*PairLink, error) {
	var link PairLink
	err := r.db.GetContext(ctx, &link, `SELECT `+linkColumns+` FROM pair_links WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}

	return &link, nil
}

// Accept claims a pending link. The conditional UPDATE makes acceptance
// first-come-first-served: a second accept, or the inviter accepting
// their own code, changes nothing.
func (r *repository) Accept(ctx context.Context, code string, inviteeID int) (*PairLink, error) {
	var link PairLink
	err := r.db.GetContext(ctx, &link, `
		UPDATE pair_links
		SET invitee_id = $2, status = 'accepted', accepted_at = NOW()
		WHERE code = $1 AND status = 'pending' AND inviter_id <> $2
		RETURNING `+linkColumns,
		code, inviteeID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLinkUnavailable
		}
		return nil, err
	}

	return &link, nil
}

func (r *repository) ListForUser(ctx context.Context, userID int) ([]PairLink, error) {
	links := []PairLink{}
	err := r.db.SelectContext(ctx, &links, `
		SELECT `+linkColumns+`
		FROM pair_links
		WHERE inviter_id = $1 OR invitee_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}

	return links, nil
}
