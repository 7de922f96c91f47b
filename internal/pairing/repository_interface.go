package pairing

import "context"

type Repository interface {
	Create(ctx context.Context, inviterID int) (*PairLink, error)
	GetByID(ctx context.Context, id string) (*PairLink, error)
	Accept(ctx context.Context, code string, inviteeID int) (*PairLink, error)
	ListForUser(ctx context.Context, userID int) ([]PairLink, error)
}
