package persistence

import (
	"context"
)

// UnitOfWork coordinates writes across the wallet and ledger repositories so
// that a balance mutation and its ledger entry commit in one durable
// transaction. Partial application is forbidden: either both are visible or
// neither is.
type UnitOfWork interface {
	// Begin starts a new transaction and returns a transactional context
	Begin(ctx context.Context) (context.Context, error)

	// Commit commits the transaction in the given context
	Commit(ctx context.Context) error

	// Rollback rolls back the transaction in the given context
	Rollback(ctx context.Context) error

	// GetWalletRepository returns a wallet repository bound to the current transaction
	GetWalletRepository(ctx context.Context) WalletRepository

	// GetLedgerRepository returns a ledger repository bound to the current transaction
	GetLedgerRepository(ctx context.Context) LedgerRepository

	// GetRoundRepository returns a round repository bound to the current transaction
	GetRoundRepository(ctx context.Context) RoundRepository
}
