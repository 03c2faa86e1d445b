package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirhossein-jamali/wallet-gateway/internal/domain/entity"
	errs "github.com/amirhossein-jamali/wallet-gateway/internal/domain/error"
	"github.com/amirhossein-jamali/wallet-gateway/internal/domain/port/core"
	"github.com/amirhossein-jamali/wallet-gateway/internal/domain/port/messaging"
	"github.com/amirhossein-jamali/wallet-gateway/internal/domain/port/usecase"
)

func newTestService() (*Service, *memStore, *memUoW) {
	store := newMemStore()
	uow := newMemUoW(store)
	svc := NewGatewayService(uow, newTestClock(), &nopLogger{}, 5*core.Second)
	return svc, store, uow
}

func debitRequest(reference string, amount string) usecase.DebitRequest {
	return usecase.DebitRequest{
		Reference: reference,
		UserID:    42,
		Currency:  "EUR",
		Amount:    amount,
		Game: usecase.GameContext{
			GameID:   "round-100",
			GameDesc: "casino:slots",
			ActionID: "act-1",
		},
	}
}

func creditRequest(reference string, amount string) usecase.CreditRequest {
	return usecase.CreditRequest{
		Reference: reference,
		UserID:    42,
		Currency:  "EUR",
		Amount:    amount,
		Game: &usecase.GameContext{
			GameID:   "round-100",
			GameDesc: "casino:slots",
			ActionID: "act-2",
		},
	}
}

func TestService_Lifecycle(t *testing.T) {
	svc, store, _ := newTestService()
	walletID := store.addWallet(42, "EUR", 100000, entity.WalletActive)
	ctx := context.Background()

	// Stake of 300.00 settles against the 1000.00 balance
	result, err := svc.Debit(ctx, debitRequest("T1", "300.00"))
	require.NoError(t, err)
	assert.Equal(t, "700.00", result.Balance)
	assert.False(t, result.Replayed)

	// Retrying the same tid replays the original outcome without moving money
	result, err = svc.Debit(ctx, debitRequest("T1", "300.00"))
	require.NoError(t, err)
	assert.Equal(t, "700.00", result.Balance)
	assert.True(t, result.Replayed)
	assert.Equal(t, int64(70000), store.walletBalance(walletID))
	assert.Len(t, store.entriesFor("T1"), 1)

	// Rolling back the stake restores the balance
	outcomes, err := svc.Rollback(ctx, []usecase.RollbackSelection{{BetID: "T1"}})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, int64(100000), outcomes[0].BalanceCents)
	assert.False(t, outcomes[0].AlreadyDone)
	assert.Equal(t, entity.EntryReversed, store.settledFor("T1").Status)

	// A fresh win settles on top
	result, err = svc.Credit(ctx, creditRequest("T2", "500.00"))
	require.NoError(t, err)
	assert.Equal(t, "1500.00", result.Balance)
	assert.Equal(t, int64(150000), store.walletBalance(walletID))
}

func TestService_Debit(t *testing.T) {
	t.Run("settles and records a completed entry", func(t *testing.T) {
		svc, store, _ := newTestService()
		store.addWallet(42, "EUR", 100000, entity.WalletActive)

		result, err := svc.Debit(context.Background(), debitRequest("T1", "300.00"))
		require.NoError(t, err)
		assert.Equal(t, "T1", result.Reference)
		assert.Equal(t, int64(70000), result.BalanceCents)

		entry := store.settledFor("T1")
		require.NotNil(t, entry)
		assert.Equal(t, entity.EntryCompleted, entry.Status)
		assert.Equal(t, entity.EntryDebit, entry.Type)
		assert.Equal(t, int64(70000), entry.BalanceAfterCents)
		assert.Equal(t, CategoryBet, entry.Category)
		assert.Equal(t, "round-100", entry.Metadata.RoundID)
	})

	t.Run("cancel subtype is categorized as correction", func(t *testing.T) {
		svc, store, _ := newTestService()
		store.addWallet(42, "EUR", 100000, entity.WalletActive)

		req := debitRequest("T1", "300.00")
		req.Subtype = SubtypeCancel
		_, err := svc.Debit(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, CategoryCorrection, store.settledFor("T1").Category)
	})

	t.Run("unknown user", func(t *testing.T) {
		svc, _, _ := newTestService()
		_, err := svc.Debit(context.Background(), debitRequest("T1", "300.00"))
		assert.ErrorIs(t, err, errs.ErrUserNotFound)
	})

	t.Run("suspended wallet", func(t *testing.T) {
		svc, store, _ := newTestService()
		walletID := store.addWallet(42, "EUR", 100000, entity.WalletSuspended)

		_, err := svc.Debit(context.Background(), debitRequest("T1", "300.00"))
		assert.ErrorIs(t, err, errs.ErrWalletSuspended)
		assert.Equal(t, int64(100000), store.walletBalance(walletID))
		assert.Empty(t, store.entriesFor("T1"))
	})
}

func TestService_Debit_InsufficientFunds(t *testing.T) {
	svc, store, _ := newTestService()
	walletID := store.addWallet(42, "EUR", 10000, entity.WalletActive)
	ctx := context.Background()

	_, err := svc.Debit(ctx, debitRequest("T1", "300.00"))
	require.ErrorIs(t, err, errs.ErrInsufficientFunds)

	var detailed *errs.InsufficientFundsError
	require.ErrorAs(t, err, &detailed)
	assert.Equal(t, "100.00", detailed.CurrBalance)

	// The rejection leaves the balance untouched and only a FAILED audit row
	assert.Equal(t, int64(10000), store.walletBalance(walletID))
	entries := store.entriesFor("T1")
	require.Len(t, entries, 1)
	assert.Equal(t, entity.EntryFailed, entries[0].Status)

	// A retry of the same tid after funding is a fresh attempt, not a replay
	store.mu.Lock()
	store.wallets[walletID].BalanceCents = 100000
	store.mu.Unlock()

	result, err := svc.Debit(ctx, debitRequest("T1", "300.00"))
	require.NoError(t, err)
	assert.False(t, result.Replayed)
	assert.Equal(t, "700.00", result.Balance)
	assert.Len(t, store.entriesFor("T1"), 2)
}

func TestService_Debit_Validation(t *testing.T) {
	svc, store, _ := newTestService()
	store.addWallet(42, "EUR", 100000, entity.WalletActive)
	ctx := context.Background()

	t.Run("empty reference", func(t *testing.T) {
		req := debitRequest("", "300.00")
		_, err := svc.Debit(ctx, req)
		assert.ErrorIs(t, err, errs.ErrInvalidReference)
	})

	t.Run("zero amount", func(t *testing.T) {
		_, err := svc.Debit(ctx, debitRequest("T1", "0.00"))
		assert.ErrorIs(t, err, errs.ErrInvalidAmount)
	})

	t.Run("negative amount", func(t *testing.T) {
		_, err := svc.Debit(ctx, debitRequest("T1", "-5.00"))
		assert.ErrorIs(t, err, errs.ErrNegativeAmount)
	})

	t.Run("malformed game desc", func(t *testing.T) {
		req := debitRequest("T1", "300.00")
		req.Game.GameDesc = "slots"
		_, err := svc.Debit(ctx, req)
		assert.ErrorIs(t, err, errs.ErrValidationFailed)
	})

	t.Run("rejected requests never touch the store", func(t *testing.T) {
		assert.Empty(t, store.entriesFor("T1"))
	})
}

func TestService_Debit_ConcurrentFirstDelivery(t *testing.T) {
	svc, store, uow := newTestService()
	walletID := store.addWallet(42, "EUR", 100000, entity.WalletActive)
	ctx := context.Background()

	// The competing delivery wins the unique index at insert time; its settled
	// row becomes visible once this transaction rolls back.
	clock := newTestClock()
	store.createHook = func(_ *entity.LedgerEntry) error {
		return errs.ErrDuplicateTransaction
	}
	uow.onRollback = func() {
		winner, err := entity.NewLedgerEntry("T1", walletID, entity.EntryDebit, "300.00", "EUR", CategoryBet, entity.EntryMetadata{}, clock)
		require.NoError(t, err)
		winner.MarkCompleted(70000)
		store.mu.Lock()
		store.entries = append(store.entries, winner)
		store.wallets[walletID].BalanceCents = 70000
		store.mu.Unlock()
	}

	result, err := svc.Debit(ctx, debitRequest("T1", "300.00"))
	require.NoError(t, err)
	assert.True(t, result.Replayed)
	assert.Equal(t, "700.00", result.Balance)

	// Exactly one settled entry and one debit applied
	assert.Equal(t, int64(70000), store.walletBalance(walletID))
	assert.Len(t, store.entriesFor("T1"), 1)
}

func TestService_Debit_DuplicateWithoutVisibleWinner(t *testing.T) {
	svc, store, _ := newTestService()
	walletID := store.addWallet(42, "EUR", 100000, entity.WalletActive)

	// The unique index rejects the insert but the winning row has not become
	// readable yet. The only safe answer is store-unavailable; the provider's
	// retry will resolve as a replay once the winner is visible.
	store.createHook = func(_ *entity.LedgerEntry) error {
		return errs.ErrDuplicateTransaction
	}

	result, err := svc.Debit(context.Background(), debitRequest("T1", "300.00"))
	assert.Nil(t, result)
	assert.ErrorIs(t, err, errs.ErrStoreUnavailable)

	assert.Equal(t, int64(100000), store.walletBalance(walletID))
	assert.Empty(t, store.entriesFor("T1"))
}

func TestService_Debit_ConcurrentRequests(t *testing.T) {
	svc, store, _ := newTestService()
	walletID := store.addWallet(42, "EUR", 100000, entity.WalletActive)

	// Ten distinct stakes of 300.00 race a 1000.00 balance: exactly three can
	// settle, the rest are rejected for insufficient funds.
	const workers = 10
	var wg sync.WaitGroup
	var successes, rejections int32
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := svc.Debit(context.Background(), debitRequest(fmt.Sprintf("T-%d", n), "300.00"))
			switch {
			case err == nil:
				atomic.AddInt32(&successes, 1)
			case errors.Is(err, errs.ErrInsufficientFunds):
				atomic.AddInt32(&rejections, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 3, successes)
	assert.EqualValues(t, 7, rejections)
	assert.Equal(t, int64(10000), store.walletBalance(walletID))

	settled := 0
	for i := 0; i < workers; i++ {
		if store.settledFor(fmt.Sprintf("T-%d", i)) != nil {
			settled++
		}
	}
	assert.Equal(t, 3, settled)
}

func TestService_Debit_CommitFailure(t *testing.T) {
	svc, store, uow := newTestService()
	walletID := store.addWallet(42, "EUR", 100000, entity.WalletActive)
	uow.commitErr = errors.New("connection reset")

	_, err := svc.Debit(context.Background(), debitRequest("T1", "300.00"))
	assert.ErrorIs(t, err, errs.ErrStoreUnavailable)

	// Failing closed leaves no partial state behind
	assert.Equal(t, int64(100000), store.walletBalance(walletID))
	assert.Empty(t, store.entriesFor("T1"))
}

func TestService_Debit_RoundFlags(t *testing.T) {
	tracker := &fakeTracker{}
	svc, store, _ := newTestService()
	svc.WithRoundTracker(tracker)
	store.addWallet(42, "EUR", 100000, entity.WalletActive)
	ctx := context.Background()

	req := debitRequest("T1", "300.00")
	req.RoundStart = true
	_, err := svc.Debit(ctx, req)
	require.NoError(t, err)

	require.Len(t, tracker.reports, 1)
	assert.Equal(t, "round-100", tracker.reports[0].GameRoundID)
	assert.Equal(t, uint64(42), tracker.reports[0].UserID)
	assert.Equal(t, "EUR", tracker.reports[0].Currency)

	// Flags are best effort: a tracker failure never fails the debit
	tracker.err = errors.New("queue unavailable")
	req = debitRequest("T2", "10.00")
	req.RoundEnded = true
	result, err := svc.Debit(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "690.00", result.Balance)
}

func TestService_Credit(t *testing.T) {
	t.Run("settles a win", func(t *testing.T) {
		svc, store, _ := newTestService()
		walletID := store.addWallet(42, "EUR", 100000, entity.WalletActive)

		result, err := svc.Credit(context.Background(), creditRequest("T2", "500.00"))
		require.NoError(t, err)
		assert.Equal(t, "1500.00", result.Balance)
		assert.Equal(t, int64(150000), store.walletBalance(walletID))
		assert.Equal(t, CategoryWin, store.settledFor("T2").Category)
	})

	t.Run("replays on retry", func(t *testing.T) {
		svc, store, _ := newTestService()
		store.addWallet(42, "EUR", 100000, entity.WalletActive)
		ctx := context.Background()

		_, err := svc.Credit(ctx, creditRequest("T2", "500.00"))
		require.NoError(t, err)

		result, err := svc.Credit(ctx, creditRequest("T2", "500.00"))
		require.NoError(t, err)
		assert.True(t, result.Replayed)
		assert.Equal(t, "1500.00", result.Balance)
		assert.Len(t, store.entriesFor("T2"), 1)
	})

	t.Run("promotion without game context", func(t *testing.T) {
		svc, store, _ := newTestService()
		store.addWallet(42, "EUR", 100000, entity.WalletActive)

		req := usecase.CreditRequest{
			Reference: "B1",
			UserID:    42,
			Currency:  "EUR",
			Amount:    "25.00",
			Subtype:   SubtypePromotion,
			BonusID:   "bonus-7",
		}
		result, err := svc.Credit(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "1025.00", result.Balance)

		entry := store.settledFor("B1")
		assert.Equal(t, CategoryPromotion, entry.Category)
		assert.Equal(t, "bonus-7", entry.Metadata.BonusID)
	})

	t.Run("non-promotion credit requires game context", func(t *testing.T) {
		svc, store, _ := newTestService()
		store.addWallet(42, "EUR", 100000, entity.WalletActive)

		req := creditRequest("T2", "500.00")
		req.Game = nil
		_, err := svc.Credit(context.Background(), req)
		assert.ErrorIs(t, err, errs.ErrValidationFailed)
	})
}

func TestService_Rollback(t *testing.T) {
	t.Run("reverses a settled debit", func(t *testing.T) {
		svc, store, _ := newTestService()
		walletID := store.addWallet(42, "EUR", 100000, entity.WalletActive)
		ctx := context.Background()

		_, err := svc.Debit(ctx, debitRequest("T1", "300.00"))
		require.NoError(t, err)

		outcomes, err := svc.Rollback(ctx, []usecase.RollbackSelection{{BetID: "T1"}})
		require.NoError(t, err)
		assert.Equal(t, int64(100000), outcomes[0].BalanceCents)
		assert.Equal(t, int64(100000), store.walletBalance(walletID))

		entry := store.settledFor("T1")
		assert.Equal(t, entity.EntryReversed, entry.Status)
		assert.NotNil(t, entry.ReversedAt)
		assert.NotEmpty(t, entry.Metadata.ReversalID)
	})

	t.Run("reverses a settled credit by debiting back", func(t *testing.T) {
		svc, store, _ := newTestService()
		walletID := store.addWallet(42, "EUR", 100000, entity.WalletActive)
		ctx := context.Background()

		_, err := svc.Credit(ctx, creditRequest("T2", "500.00"))
		require.NoError(t, err)

		outcomes, err := svc.Rollback(ctx, []usecase.RollbackSelection{{BetID: "T2"}})
		require.NoError(t, err)
		assert.Equal(t, int64(100000), outcomes[0].BalanceCents)
		assert.Equal(t, int64(100000), store.walletBalance(walletID))
	})

	t.Run("second rollback is a no-op success", func(t *testing.T) {
		svc, store, _ := newTestService()
		walletID := store.addWallet(42, "EUR", 100000, entity.WalletActive)
		ctx := context.Background()

		_, err := svc.Debit(ctx, debitRequest("T1", "300.00"))
		require.NoError(t, err)
		_, err = svc.Rollback(ctx, []usecase.RollbackSelection{{BetID: "T1"}})
		require.NoError(t, err)

		outcomes, err := svc.Rollback(ctx, []usecase.RollbackSelection{{BetID: "T1"}})
		require.NoError(t, err)
		assert.True(t, outcomes[0].AlreadyDone)
		assert.Equal(t, int64(100000), outcomes[0].BalanceCents)
		assert.Equal(t, int64(100000), store.walletBalance(walletID))
	})

	t.Run("unknown reference is an error", func(t *testing.T) {
		svc, store, _ := newTestService()
		store.addWallet(42, "EUR", 100000, entity.WalletActive)

		_, err := svc.Rollback(context.Background(), []usecase.RollbackSelection{{BetID: "missing"}})
		assert.ErrorIs(t, err, errs.ErrUnknownTransaction)
	})

	t.Run("multiple selections processed in order", func(t *testing.T) {
		svc, store, _ := newTestService()
		store.addWallet(42, "EUR", 100000, entity.WalletActive)
		ctx := context.Background()

		_, err := svc.Debit(ctx, debitRequest("T1", "300.00"))
		require.NoError(t, err)
		_, err = svc.Debit(ctx, debitRequest("T3", "100.00"))
		require.NoError(t, err)

		outcomes, err := svc.Rollback(ctx, []usecase.RollbackSelection{{BetID: "T1"}, {BetID: "T3"}})
		require.NoError(t, err)
		require.Len(t, outcomes, 2)
		assert.Equal(t, "T1", outcomes[0].Reference)
		assert.Equal(t, int64(90000), outcomes[0].BalanceCents)
		assert.Equal(t, "T3", outcomes[1].Reference)
		assert.Equal(t, int64(100000), outcomes[1].BalanceCents)
	})
}

func TestService_Balance(t *testing.T) {
	svc, store, _ := newTestService()
	store.addWallet(42, "EUR", 101500, entity.WalletActive)

	balance, err := svc.Balance(context.Background(), 42, "EUR")
	require.NoError(t, err)
	assert.Equal(t, "1015.00", balance)

	_, err = svc.Balance(context.Background(), 99, "EUR")
	assert.ErrorIs(t, err, errs.ErrUserNotFound)
}

func TestService_CreateWallet(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.CreateWallet(ctx, 7, "USD"))

	balance, err := svc.Balance(ctx, 7, "USD")
	require.NoError(t, err)
	assert.Equal(t, "0.00", balance)

	err = svc.CreateWallet(ctx, 7, "USD")
	assert.ErrorIs(t, err, errs.ErrDuplicateTransaction)
}

func TestService_PublishesLedgerEvents(t *testing.T) {
	publisher := &fakePublisher{}
	svc, store, _ := newTestService()
	svc.WithPublisher(publisher)
	store.addWallet(42, "EUR", 100000, entity.WalletActive)
	ctx := context.Background()

	_, err := svc.Debit(ctx, debitRequest("T1", "300.00"))
	require.NoError(t, err)
	_, err = svc.Rollback(ctx, []usecase.RollbackSelection{{BetID: "T1"}})
	require.NoError(t, err)

	require.Len(t, publisher.events, 2)
	assert.Equal(t, messaging.EventSettled, publisher.events[0].Kind)
	assert.Equal(t, "T1", publisher.events[0].Reference)
	assert.Equal(t, messaging.EventReversed, publisher.events[1].Kind)

	// Publish failures never fail the settlement
	publisher.err = errors.New("broker down")
	result, err := svc.Credit(ctx, creditRequest("T2", "500.00"))
	require.NoError(t, err)
	assert.Equal(t, "1500.00", result.Balance)
}
