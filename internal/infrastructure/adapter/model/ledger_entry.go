package model

import (
	"time"

	"github.com/amirhossein-jamali/wallet-gateway/internal/domain/entity"
)

// LedgerEntry represents the database model for ledger entries. Reference
// uniqueness is enforced by a partial unique index (FAILED audit rows are
// excluded) created in the migration, so the column only carries a plain
// index here. RoundID is denormalized out of the metadata so the reconciler
// can aggregate per round without JSON scans.
type LedgerEntry struct {
	ID                uint64               `gorm:"primaryKey;autoIncrement"`
	Reference         string               `gorm:"not null;size:32;index"`
	WalletID          uint64               `gorm:"not null;index"`
	Type              string               `gorm:"not null;size:8"`
	Amount            string               `gorm:"not null;size:32"`
	AmountCents       int64                `gorm:"not null"`
	Currency          string               `gorm:"not null;size:8"`
	BalanceAfterCents int64                `gorm:"not null;default:0"`
	Category          string               `gorm:"not null;size:16"`
	Status            string               `gorm:"not null;size:16;index"`
	RoundID           string               `gorm:"size:32;index"`
	Metadata          entity.EntryMetadata `gorm:"type:jsonb;serializer:json"`
	ErrorMessage      string               `gorm:"type:text"`
	CreatedAt         time.Time            `gorm:"not null"`
	ReversedAt        *time.Time

	Wallet Wallet `gorm:"foreignKey:WalletID;references:ID"`
}

// TableName specifies the table name for LedgerEntry
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

// ToEntity converts the model to a domain entity
func (m *LedgerEntry) ToEntity() *entity.LedgerEntry {
	return &entity.LedgerEntry{
		ID:                m.ID,
		Reference:         m.Reference,
		WalletID:          m.WalletID,
		Type:              entity.EntryType(m.Type),
		Amount:            m.Amount,
		AmountCents:       m.AmountCents,
		Currency:          m.Currency,
		BalanceAfterCents: m.BalanceAfterCents,
		Category:          m.Category,
		Status:            entity.EntryStatus(m.Status),
		Metadata:          m.Metadata,
		ErrorMessage:      m.ErrorMessage,
		CreatedAt:         m.CreatedAt,
		ReversedAt:        m.ReversedAt,
	}
}

// LedgerEntryFromEntity converts a domain entity to the database model
func LedgerEntryFromEntity(e *entity.LedgerEntry) *LedgerEntry {
	return &LedgerEntry{
		ID:                e.ID,
		Reference:         e.Reference,
		WalletID:          e.WalletID,
		Type:              string(e.Type),
		Amount:            e.Amount,
		AmountCents:       e.AmountCents,
		Currency:          e.Currency,
		BalanceAfterCents: e.BalanceAfterCents,
		Category:          e.Category,
		Status:            string(e.Status),
		RoundID:           e.Metadata.RoundID,
		Metadata:          e.Metadata,
		ErrorMessage:      e.ErrorMessage,
		CreatedAt:         e.CreatedAt,
		ReversedAt:        e.ReversedAt,
	}
}
