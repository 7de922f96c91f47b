package wallet

import "context"

type Repository interface {
	GetOrCreate(ctx context.Context, userID int) (*Wallet, error)
	Credit(ctx context.Context, userID, minutes int, reference string) (*Wallet, error)
	Debit(ctx context.Context, userID, minutes int, reference string) (debited, balance int, err error)
	ListTransactions(ctx context.Context, userID, limit, offset int) ([]Transaction, error)
}
