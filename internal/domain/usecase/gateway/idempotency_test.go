package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirhossein-jamali/wallet-gateway/internal/domain/entity"
)

func TestReplayDetector(t *testing.T) {
	store := newMemStore()
	repo := &memLedgerRepo{store: store}
	detector := NewReplayDetector(repo)
	clock := newTestClock()
	ctx := context.Background()

	t.Run("unknown reference is not a replay", func(t *testing.T) {
		entry, found, err := detector.CheckReplay(ctx, "never-seen")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, entry)
	})

	t.Run("completed entry is a replay", func(t *testing.T) {
		settled, err := entity.NewLedgerEntry("T1", 7, entity.EntryDebit, "3.00", "EUR", CategoryBet, entity.EntryMetadata{}, clock)
		require.NoError(t, err)
		settled.MarkCompleted(70000)
		require.NoError(t, repo.Create(ctx, settled))

		entry, found, err := detector.CheckReplay(ctx, "T1")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, int64(70000), entry.BalanceAfterCents)
	})

	t.Run("reversed entry is still a replay", func(t *testing.T) {
		settled, err := entity.NewLedgerEntry("T2", 7, entity.EntryCredit, "5.00", "EUR", CategoryWin, entity.EntryMetadata{}, clock)
		require.NoError(t, err)
		settled.MarkCompleted(75000)
		require.NoError(t, repo.Create(ctx, settled))
		settled.MarkReversed(clock, "rev-1")
		require.NoError(t, repo.MarkReversed(ctx, settled))

		entry, found, err := detector.CheckReplay(ctx, "T2")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, entity.EntryReversed, entry.Status)
	})

	t.Run("failed audit row does not consume the reference", func(t *testing.T) {
		failed, err := entity.NewLedgerEntry("T3", 7, entity.EntryDebit, "999.00", "EUR", CategoryBet, entity.EntryMetadata{}, clock)
		require.NoError(t, err)
		failed.MarkFailed("insufficient funds")
		require.NoError(t, repo.Create(ctx, failed))

		_, found, err := detector.CheckReplay(ctx, "T3")
		require.NoError(t, err)
		assert.False(t, found)
	})
}
