package catalog

import "context"

type Repository interface {
	ListActive(ctx context.Context) ([]Package, error)
	GetByID(ctx context.Context, id int) (*Package, error)
	Create(ctx context.Context, name string, minutes int, priceCents int64, savingsPercent int, popular bool) (*Package, error)
	Deactivate(ctx context.Context, id int) error
}
