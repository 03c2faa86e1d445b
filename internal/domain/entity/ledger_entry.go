package entity

import (
	"fmt"
	"time"

	errs "github.com/amirhossein-jamali/wallet-gateway/internal/domain/error"
	tport "github.com/amirhossein-jamali/wallet-gateway/internal/domain/port/core"
)

// EntryType represents the direction of a ledger entry
type EntryType string

// Entry types
const (
	EntryCredit EntryType = "CREDIT"
	EntryDebit  EntryType = "DEBIT"
)

// EntryStatus defines possible status values for a ledger entry
type EntryStatus string

// Entry statuses. Entries only ever move PENDING -> COMPLETED or
// COMPLETED -> REVERSED; rows are never deleted or rewritten.
const (
	EntryPending   EntryStatus = "PENDING"
	EntryCompleted EntryStatus = "COMPLETED"
	EntryFailed    EntryStatus = "FAILED"
	EntryReversed  EntryStatus = "REVERSED"
)

// EntryMetadata carries the provider context of a ledger entry. It is stored
// verbatim for audit and never interpreted by the balance logic.
type EntryMetadata struct {
	GameID      string `json:"gameId,omitempty"`
	GameDesc    string `json:"gameDesc,omitempty"`
	ActionID    string `json:"actionId,omitempty"`
	ExtParam    string `json:"extParam,omitempty"`
	Subtype     string `json:"subtype,omitempty"`
	RollbackRef string `json:"rollbackRef,omitempty"`
	BonusID     string `json:"bonusId,omitempty"`
	RoundID     string `json:"roundId,omitempty"`
	Flag        string `json:"flag,omitempty"`
	JackpotWin  bool   `json:"jackpotWin,omitempty"`
	ReversalID  string `json:"reversalId,omitempty"`
}

// LedgerEntry is the immutable record of one balance-affecting operation.
// Reference is the provider-supplied tid and doubles as the idempotency key.
type LedgerEntry struct {
	ID                uint64
	Reference         string
	WalletID          uint64
	Type              EntryType
	Amount            string
	AmountCents       int64
	Currency          string
	BalanceAfterCents int64
	Category          string
	Status            EntryStatus
	Metadata          EntryMetadata
	ErrorMessage      string
	CreatedAt         time.Time
	ReversedAt        *time.Time
}

// NewLedgerEntry creates a pending ledger entry with basic validation
func NewLedgerEntry(
	reference string,
	walletID uint64,
	entryType EntryType,
	amount string,
	currency string,
	category string,
	metadata EntryMetadata,
	timeProvider tport.TimeProvider,
) (*LedgerEntry, error) {
	if reference == "" {
		return nil, errs.ErrInvalidReference
	}
	if walletID == 0 {
		return nil, errs.NewValidationError("walletId", "wallet ID must be positive")
	}
	if entryType != EntryCredit && entryType != EntryDebit {
		return nil, errs.NewValidationError("type", fmt.Sprintf("invalid entry type %s", entryType))
	}

	amountCents, err := ValidateAndConvertAmount(amount)
	if err != nil {
		return nil, err
	}
	if amountCents == 0 {
		return nil, fmt.Errorf("%w: amount must be greater than zero", errs.ErrInvalidAmount)
	}

	return &LedgerEntry{
		Reference:   reference,
		WalletID:    walletID,
		Type:        entryType,
		Amount:      amount,
		AmountCents: amountCents,
		Currency:    currency,
		Category:    category,
		Status:      EntryPending,
		Metadata:    metadata,
		CreatedAt:   timeProvider.Now(),
	}, nil
}

// MarkCompleted settles the entry and records the resulting balance
func (e *LedgerEntry) MarkCompleted(balanceAfterCents int64) {
	e.Status = EntryCompleted
	e.BalanceAfterCents = balanceAfterCents
}

// MarkFailed records a rejected entry for audit; it must never affect the balance
func (e *LedgerEntry) MarkFailed(reason string) {
	e.Status = EntryFailed
	e.ErrorMessage = reason
}

// MarkReversed flags the entry as compensated by a rollback
func (e *LedgerEntry) MarkReversed(timeProvider tport.TimeProvider, reversalID string) {
	now := timeProvider.Now()
	e.Status = EntryReversed
	e.ReversedAt = &now
	e.Metadata.ReversalID = reversalID
}

// IsCompleted reports whether the entry has settled against the wallet
func (e *LedgerEntry) IsCompleted() bool {
	return e.Status == EntryCompleted
}

// IsReversed reports whether the entry has already been rolled back
func (e *LedgerEntry) IsReversed() bool {
	return e.Status == EntryReversed
}

// SignedCents returns the balance delta this entry applied: positive for
// credits, negative for debits.
func (e *LedgerEntry) SignedCents() int64 {
	if e.Type == EntryDebit {
		return -e.AmountCents
	}
	return e.AmountCents
}

// BalanceAfterString returns the post-entry balance as a two-decimal string
func (e *LedgerEntry) BalanceAfterString() string {
	return CentsToString(e.BalanceAfterCents)
}
