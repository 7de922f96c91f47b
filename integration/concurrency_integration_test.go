package integration_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibex365/luna-heart-guide-sub005/internal/billing"
	"github.com/vibex365/luna-heart-guide-sub005/internal/session"
	"github.com/vibex365/luna-heart-guide-sub005/internal/wallet"
)

func TestConcurrentDebits_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	db := setupTestDB(t)
	defer db.Close()

	cleanDatabase(t, db)

	repo := wallet.NewRepository(db)
	ctx := context.Background()

	userID := createTestUser(t, db, "race-debit@test.com", "Race Debit User")
	_, err := repo.Credit(ctx, userID, 2, "cs_test_race_debit")
	require.NoError(t, err)

	// Two sessions settle at the same moment, each asking for the full
	// balance. The row lock serializes them: together they may take the
	// two minutes that exist and not one more.
	const racers = 2
	debited := make([]int, racers)
	errs := make([]error, racers)

	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			debited[i], _, errs[i] = repo.Debit(ctx, userID, 2, fmt.Sprintf("sess-race-%d", i))
		}(i)
	}
	wg.Wait()

	total := 0
	for i := 0; i < racers; i++ {
		require.NoError(t, errs[i])
		total += debited[i]
	}
	assert.Equal(t, 2, total)

	var balance int
	require.NoError(t, db.Get(&balance, "SELECT minutes_balance FROM wallets WHERE user_id = $1", userID))
	assert.Equal(t, 0, balance)
}

func TestConcurrentSessionClose_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	db := setupTestDB(t)
	defer db.Close()

	cleanDatabase(t, db)

	walletRepo := wallet.NewRepository(db)
	sessionRepo := session.NewRepository(db)
	reconciler := billing.NewReconciler(sessionRepo, walletRepo)
	ctx := context.Background()

	userID := createTestUser(t, db, "race-close@test.com", "Race Close User")
	_, err := walletRepo.Credit(ctx, userID, 30, "cs_test_race_close")
	require.NoError(t, err)

	sess, err := sessionRepo.Create(ctx, userID, session.TypeSolo, nil, 30)
	require.NoError(t, err)

	// Both ends of the call report the hangup at once. Exactly one
	// settlement wins the claim; the loser settles nothing.
	const racers = 2
	results := make([]*billing.Result, racers)
	errs := make([]error, racers)

	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = reconciler.Close(ctx, userID, sess.ID, session.StatusEnded, 125)
		}(i)
	}
	wg.Wait()

	winners := 0
	for i := 0; i < racers; i++ {
		if errs[i] == nil {
			winners++
			assert.Equal(t, 3, results[i].MinutesBilled)
		} else {
			assert.ErrorIs(t, errs[i], billing.ErrAlreadyClosed)
		}
	}
	assert.Equal(t, 1, winners)

	// The wallet was debited exactly once.
	w, err := walletRepo.GetOrCreate(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 27, w.MinutesBalance)

	var usageRows int
	require.NoError(t, db.Get(&usageRows,
		"SELECT COUNT(*) FROM minute_transactions WHERE reference = $1 AND type = 'usage'", sess.ID))
	assert.Equal(t, 1, usageRows)
}
