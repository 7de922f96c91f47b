package wallet

import "time"

// Wallet holds a user's prepaid voice minutes. The balance is derived:
// minutes_balance = lifetime_purchased - lifetime_used, enforced by a
// CHECK constraint, and can never go negative.
type Wallet struct {
	ID                int       `db:"id" json:"id"`
	UserID            int       `db:"user_id" json:"user_id"`
	MinutesBalance    int       `db:"minutes_balance" json:"minutes_balance"`
	LifetimePurchased int       `db:"lifetime_purchased" json:"lifetime_purchased"`
	LifetimeUsed      int       `db:"lifetime_used" json:"lifetime_used"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

const (
	TxTypePurchase = "purchase"
	TxTypeUsage    = "usage"
	TxTypeRefund   = "refund"
)

// Transaction is an append-only ledger entry. Amount is signed: positive
// for credits, negative for debits. Reference is a session id or payment
// id and is unique per type.
type Transaction struct {
	ID        int       `db:"id" json:"id"`
	UserID    int       `db:"user_id" json:"user_id"`
	Amount    int       `db:"amount" json:"amount"`
	Type      string    `db:"type" json:"type"`
	Reference string    `db:"reference" json:"reference"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
