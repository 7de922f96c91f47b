package wallet

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var (
	ErrDuplicateCredit = errors.New("duplicate credit reference")
	ErrDuplicateDebit  = errors.New("duplicate debit reference")
	ErrInvalidAmount   = errors.New("amount must be positive")
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const walletColumns = `id, user_id, minutes_balance, lifetime_purchased, lifetime_used, created_at, updated_at`

func (r *repository) GetOrCreate(ctx context.Context, userID int) (*Wallet, error) {
	w := &Wallet{}
	err := r.db.GetContext(ctx, w, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, userID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO wallets (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`,
		userID,
	)
	if err != nil {
		return nil, err
	}

	err = r.db.GetContext(ctx, w, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}

	return w, nil
}

// Credit applies a purchase to the wallet. The ledger insert and the
// counter increment commit together; the UNIQUE (reference, type) index
// rejects a payment reference that was already credited, so repeated
// webhook delivery cannot double-credit.
func (r *repository) Credit(ctx context.Context, userID, minutes int, reference string) (*Wallet, error) {
	if minutes <= 0 {
		return nil, ErrInvalidAmount
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO wallets (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`,
		userID,
	); err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO minute_transactions (user_id, amount, type, reference)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (reference, type) DO NOTHING`,
		userID, minutes, TxTypePurchase, reference,
	)
	if err != nil {
		return nil, err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if inserted == 0 {
		return nil, ErrDuplicateCredit
	}

	w := &Wallet{}
	err = tx.QueryRowxContext(ctx,
		`UPDATE wallets
		 SET minutes_balance = minutes_balance + $2,
		     lifetime_purchased = lifetime_purchased + $2,
		     updated_at = NOW()
		 WHERE user_id = $1
		 RETURNING `+walletColumns,
		userID, minutes,
	).StructScan(w)
	if err != nil {
		return nil, err
	}

	return w, tx.Commit()
}

// Debit deducts up to the requested minutes, clamped so the balance never
// goes negative, and returns what was actually taken. The decrement is a
// single conditional statement rather than a read-then-write pair, so
// concurrent debits cannot lose updates: the aggregate deduction across
// racing callers never exceeds the balance.
func (r *repository) Debit(ctx context.Context, userID, minutes int, reference string) (int, int, error) {
	if minutes < 0 {
		return 0, 0, ErrInvalidAmount
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO wallets (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`,
		userID,
	); err != nil {
		return 0, 0, err
	}

	var debited, balance int
	err = tx.QueryRowxContext(ctx,
		`WITH prev AS (
		     SELECT id, minutes_balance
		     FROM wallets
		     WHERE user_id = $1
		     FOR UPDATE
		 ), upd AS (
		     UPDATE wallets w
		     SET minutes_balance = w.minutes_balance - LEAST(w.minutes_balance, $2),
		         lifetime_used   = w.lifetime_used + LEAST(w.minutes_balance, $2),
		         updated_at      = NOW()
		     FROM prev
		     WHERE w.id = prev.id
		     RETURNING w.minutes_balance
		 )
		 SELECT prev.minutes_balance - upd.minutes_balance, upd.minutes_balance
		 FROM prev, upd`,
		userID, minutes,
	).Scan(&debited, &balance)
	if err != nil {
		return 0, 0, err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO minute_transactions (user_id, amount, type, reference)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (reference, type) DO NOTHING`,
		userID, -debited, TxTypeUsage, reference,
	)
	if err != nil {
		return 0, 0, err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return 0, 0, err
	}
	if inserted == 0 {
		// A usage entry for this reference already exists; rolling back
		// undoes the decrement so the session is not billed twice.
		return 0, 0, ErrDuplicateDebit
	}

	return debited, balance, tx.Commit()
}

func (r *repository) ListTransactions(ctx context.Context, userID, limit, offset int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 50
	}

	txs := []Transaction{}
	err := r.db.SelectContext(ctx, &txs, `
		SELECT id, user_id, amount, type, reference, created_at
		FROM minute_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	return txs, nil
}
