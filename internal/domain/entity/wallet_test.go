package entity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	errs "github.com/amirhossein-jamali/wallet-gateway/internal/domain/error"
	"github.com/amirhossein-jamali/wallet-gateway/internal/domain/port/core"
)

// stubTimeProvider returns a fixed instant for deterministic entity tests
type stubTimeProvider struct {
	now time.Time
}

func newStubTimeProvider() *stubTimeProvider {
	return &stubTimeProvider{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (s *stubTimeProvider) Now() time.Time { return s.now }

func (s *stubTimeProvider) Since(t time.Time) core.Duration {
	return core.Duration(s.now.Sub(t))
}

func (s *stubTimeProvider) WithTimeout(ctx context.Context, timeout core.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, timeout.Std())
}

func TestNewWallet(t *testing.T) {
	tp := newStubTimeProvider()

	t.Run("creates active zero-balance wallet", func(t *testing.T) {
		wallet, err := NewWallet(42, "EUR", tp)
		assert.NoError(t, err)
		assert.Equal(t, uint64(42), wallet.UserID)
		assert.Equal(t, "EUR", wallet.Currency)
		assert.Equal(t, int64(0), wallet.BalanceCents)
		assert.Equal(t, WalletActive, wallet.Status)
		assert.Equal(t, tp.Now(), wallet.CreatedAt)
	})

	t.Run("rejects zero user id", func(t *testing.T) {
		_, err := NewWallet(0, "EUR", tp)
		assert.ErrorIs(t, err, errs.ErrValidationFailed)
	})

	t.Run("rejects empty currency", func(t *testing.T) {
		_, err := NewWallet(42, "", tp)
		assert.ErrorIs(t, err, errs.ErrValidationFailed)
	})
}

func TestWallet_CanTransact(t *testing.T) {
	testCases := []struct {
		status   WalletStatus
		expected bool
	}{
		{WalletActive, true},
		{WalletSuspended, false},
		{WalletBlocked, false},
	}

	for _, tc := range testCases {
		t.Run(string(tc.status), func(t *testing.T) {
			wallet := &Wallet{Status: tc.status}
			assert.Equal(t, tc.expected, wallet.CanTransact())
		})
	}
}

func TestWallet_BalanceString(t *testing.T) {
	wallet := &Wallet{BalanceCents: 70000}
	assert.Equal(t, "700.00", wallet.BalanceString())
}
