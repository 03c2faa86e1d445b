package usecase

import (
	"context"
)

// GameContext carries the game-identifying fields of a debit or credit.
// Promotion-subtype credits arrive without one, which is modeled as a nil
// pointer on CreditRequest rather than scattered optional-field checks.
type GameContext struct {
	GameID   string
	GameDesc string
	ActionID string
}

// DebitRequest represents a provider bet or stake against a wallet
type DebitRequest struct {
	Reference  string
	UserID     uint64
	Currency   string
	Amount     string
	ExtParam   string
	Subtype    string
	Game       GameContext
	RoundStart bool
	RoundEnded bool
}

// CreditRequest represents a provider win, correction, or promotion payout
type CreditRequest struct {
	Reference   string
	UserID      uint64
	Currency    string
	Amount      string
	ExtParam    string
	Subtype     string
	Game        *GameContext
	RollbackRef string
	BonusID     string
	JackpotWin  bool
	Flag        string
}

// RollbackSelection identifies one previously settled transaction to reverse.
// BetID is the canonical reference (the original tid).
type RollbackSelection struct {
	BetID     string
	BetslipID string
	Status    string
}

// TransactionResult is the outcome of a settled or replayed debit/credit
type TransactionResult struct {
	Reference    string
	BalanceCents int64
	Balance      string
	Replayed     bool
}

// RollbackOutcome reports what happened to one rollback selection
type RollbackOutcome struct {
	Reference    string
	BalanceCents int64
	AlreadyDone  bool
}

// GatewayUseCase defines the provider-facing wallet operations
type GatewayUseCase interface {
	// Balance returns the wallet balance string for a user and currency
	Balance(ctx context.Context, userID uint64, currency string) (string, error)

	// Debit settles a stake against the wallet, idempotently by Reference
	Debit(ctx context.Context, req DebitRequest) (*TransactionResult, error)

	// Credit settles a win or promotion payout, idempotently by Reference
	Credit(ctx context.Context, req CreditRequest) (*TransactionResult, error)

	// Rollback reverses previously settled transactions; reversing an already
	// reversed entry is a no-op success, reversing an unknown one is an error
	Rollback(ctx context.Context, selections []RollbackSelection) ([]RollbackOutcome, error)

	// CreateWallet provisions a wallet at account creation time
	CreateWallet(ctx context.Context, userID uint64, currency string) error
}
