package session

import (
	"context"
	"testing"
	"time"

	"github.com/vibex365/luna-heart-guide-sub005/internal/billing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSweep_BillsAbandonedSessionsCapped(t *testing.T) {
	sessions := new(MockSessionRepo)
	wallets := new(MockWalletRepo)

	// Started four hours ago; elapsed time is capped at the 1800s
	// session limit, which bills 30 minutes.
	stale := Session{ID: "sess-old", UserID: 3, Status: StatusInitiated, StartTime: time.Now().Add(-4 * time.Hour)}

	sessions.On("FindStale", mock.Anything, mock.Anything, sweepBatchSize).Return([]Session{stale}, nil)
	sessions.On("MarkTerminal", mock.Anything, "sess-old", StatusAbandoned, mock.Anything, 1800).Return(true, nil)
	wallets.On("Debit", mock.Anything, 3, 30, "sess-old").Return(30, 0, nil)
	sessions.On("RecordBilling", mock.Anything, "sess-old", 30, int64(750)).Return(nil)

	sw := NewSweeper(sessions, billing.NewReconciler(sessions, wallets), 2*time.Hour, 1800)
	closed, err := sw.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, closed)
	sessions.AssertExpectations(t)
	wallets.AssertExpectations(t)
}

func TestSweep_SkipsSessionsClosedMeanwhile(t *testing.T) {
	sessions := new(MockSessionRepo)
	wallets := new(MockWalletRepo)

	stale := Session{ID: "sess-raced", UserID: 3, Status: StatusInitiated, StartTime: time.Now().Add(-3 * time.Hour)}

	sessions.On("FindStale", mock.Anything, mock.Anything, sweepBatchSize).Return([]Session{stale}, nil)
	// The client's end call won between the query and the claim.
	sessions.On("MarkTerminal", mock.Anything, "sess-raced", StatusAbandoned, mock.Anything, mock.Anything).Return(false, nil)

	sw := NewSweeper(sessions, billing.NewReconciler(sessions, wallets), 2*time.Hour, 1800)
	closed, err := sw.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, closed)
	wallets.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
