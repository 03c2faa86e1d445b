package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/amirhossein-jamali/wallet-gateway/internal/domain/error"
)

func TestNewLedgerEntry(t *testing.T) {
	tp := newStubTimeProvider()

	t.Run("creates pending entry", func(t *testing.T) {
		entry, err := NewLedgerEntry("tid-1", 7, EntryDebit, "300.00", "EUR", "bet", EntryMetadata{GameID: "r-1"}, tp)
		require.NoError(t, err)
		assert.Equal(t, EntryPending, entry.Status)
		assert.Equal(t, int64(30000), entry.AmountCents)
		assert.Equal(t, "tid-1", entry.Reference)
		assert.Equal(t, uint64(7), entry.WalletID)
	})

	t.Run("rejects empty reference", func(t *testing.T) {
		_, err := NewLedgerEntry("", 7, EntryDebit, "1.00", "EUR", "bet", EntryMetadata{}, tp)
		assert.ErrorIs(t, err, errs.ErrInvalidReference)
	})

	t.Run("rejects zero amount", func(t *testing.T) {
		_, err := NewLedgerEntry("tid-1", 7, EntryCredit, "0.00", "EUR", "win", EntryMetadata{}, tp)
		assert.ErrorIs(t, err, errs.ErrInvalidAmount)
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		_, err := NewLedgerEntry("tid-1", 7, EntryType("TRANSFER"), "1.00", "EUR", "bet", EntryMetadata{}, tp)
		assert.ErrorIs(t, err, errs.ErrValidationFailed)
	})
}

func TestLedgerEntry_StatusTransitions(t *testing.T) {
	tp := newStubTimeProvider()

	entry, err := NewLedgerEntry("tid-2", 7, EntryDebit, "3.00", "EUR", "bet", EntryMetadata{}, tp)
	require.NoError(t, err)

	entry.MarkCompleted(70000)
	assert.True(t, entry.IsCompleted())
	assert.Equal(t, int64(70000), entry.BalanceAfterCents)
	assert.Equal(t, "700.00", entry.BalanceAfterString())

	entry.MarkReversed(tp, "rev-1")
	assert.True(t, entry.IsReversed())
	assert.False(t, entry.IsCompleted())
	assert.NotNil(t, entry.ReversedAt)
	assert.Equal(t, "rev-1", entry.Metadata.ReversalID)
}

func TestLedgerEntry_MarkFailed(t *testing.T) {
	tp := newStubTimeProvider()

	entry, err := NewLedgerEntry("tid-3", 7, EntryDebit, "3.00", "EUR", "bet", EntryMetadata{}, tp)
	require.NoError(t, err)

	entry.MarkFailed("insufficient funds")
	assert.Equal(t, EntryFailed, entry.Status)
	assert.Equal(t, "insufficient funds", entry.ErrorMessage)
	assert.Equal(t, int64(0), entry.BalanceAfterCents)
}

func TestLedgerEntry_SignedCents(t *testing.T) {
	debit := &LedgerEntry{Type: EntryDebit, AmountCents: 500}
	credit := &LedgerEntry{Type: EntryCredit, AmountCents: 500}
	assert.Equal(t, int64(-500), debit.SignedCents())
	assert.Equal(t, int64(500), credit.SignedCents())
}
