package billing

import (
	"context"
	"errors"
	"time"

	"github.com/vibex365/luna-heart-guide-sub005/internal/logger"
	"github.com/vibex365/luna-heart-guide-sub005/internal/metrics"
	"github.com/vibex365/luna-heart-guide-sub005/internal/wallet"
)

// RateCentsPerMinute is the fixed price of one voice minute, used only
// for the cost recorded on a closed session.
const RateCentsPerMinute = 25

var ErrAlreadyClosed = errors.New("session already reached a terminal state")

type BalanceStore interface {
	Debit(ctx context.Context, userID, minutes int, reference string) (debited, balance int, err error)
}

type SessionStore interface {
	// MarkTerminal conditionally moves an initiated session to the given
	// terminal status. Returns false when the session was already terminal.
	MarkTerminal(ctx context.Context, id, status string, endTime time.Time, durationSeconds int) (bool, error)
	RecordBilling(ctx context.Context, id string, minutesBilled int, costCents int64) error
}

type Result struct {
	MinutesBilled int   `json:"minutes_billed"`
	NewBalance    int   `json:"new_balance"`
	CostCents     int64 `json:"cost_cents"`
}

type Reconciler struct {
	sessions SessionStore
	balances BalanceStore
}

func NewReconciler(sessions SessionStore, balances BalanceStore) *Reconciler {
	return &Reconciler{
		sessions: sessions,
		balances: balances,
	}
}

// MinutesFor rounds a duration up to whole minutes. A non-positive
// duration bills zero.
func MinutesFor(durationSeconds int) int {
	if durationSeconds <= 0 {
		return 0
	}
	return (durationSeconds + 59) / 60
}

// Close settles an initiated session: it claims the terminal state,
// debits the wallet and records the billing outcome. The claim comes
// first so that two racing close calls bill exactly once; the loser
// gets ErrAlreadyClosed and reads the recorded result instead.
//
// A debit clamped below the requested minutes is accepted as final
// billing: refusing to close a session that already consumed provider
// time would be worse than an under-billed ledger entry.
func (r *Reconciler) Close(ctx context.Context, userID int, sessionID, status string, durationSeconds int) (*Result, error) {
	claimed, err := r.sessions.MarkTerminal(ctx, sessionID, status, time.Now(), durationSeconds)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, ErrAlreadyClosed
	}

	minutes := MinutesFor(durationSeconds)

	debited, balance, err := r.balances.Debit(ctx, userID, minutes, sessionID)
	if err != nil {
		if errors.Is(err, wallet.ErrDuplicateDebit) {
			return nil, ErrAlreadyClosed
		}
		logger.Errorf("Billing debit failed: user=%d session=%s minutes=%d: %v", userID, sessionID, minutes, err)
		return nil, err
	}

	if debited < minutes {
		logger.Warnf("Clamped debit: user=%d session=%s requested=%d debited=%d", userID, sessionID, minutes, debited)
		metrics.RecordClampedDebit()
	}

	cost := int64(debited) * RateCentsPerMinute
	if err := r.sessions.RecordBilling(ctx, sessionID, debited, cost); err != nil {
		// The debit is committed; the session row is reconciled by hand
		// from the ledger if this write is lost.
		logger.Errorf("Failed to record billing: user=%d session=%s minutes=%d: %v", userID, sessionID, debited, err)
		return nil, err
	}

	metrics.RecordSessionClosed(status, debited)

	return &Result{
		MinutesBilled: debited,
		NewBalance:    balance,
		CostCents:     cost,
	}, nil
}
