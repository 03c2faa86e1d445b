package messaging

import (
	"context"
	"time"

	"github.com/amirhossein-jamali/wallet-gateway/internal/domain/port/core"
)

// Ledger event kinds
const (
	EventSettled  = "ledger.settled"
	EventReversed = "ledger.reversed"
)

// LedgerEvent is the downstream audit record of one settled or reversed entry
type LedgerEvent struct {
	Kind         string    `json:"kind"`
	Reference    string    `json:"reference"`
	WalletID     uint64    `json:"walletId"`
	UserID       uint64    `json:"userId"`
	Type         string    `json:"type"`
	Amount       string    `json:"amount"`
	Currency     string    `json:"currency"`
	BalanceAfter string    `json:"balanceAfter"`
	OccurredAt   time.Time `json:"occurredAt"`
}

// LedgerEventPublisher emits ledger events to downstream audit consumers.
// Publishing is best-effort: a failed publish never rolls back a settled
// transaction.
type LedgerEventPublisher interface {
	Publish(ctx context.Context, event LedgerEvent) error
	Close() error
}

// ReconcileScheduler enqueues a round reconciliation pass, optionally delayed
// for retry backoff
type ReconcileScheduler interface {
	Schedule(ctx context.Context, gameRoundID string, userID uint64, delay core.Duration) error
}
