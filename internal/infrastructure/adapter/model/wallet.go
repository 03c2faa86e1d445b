package model

import (
	"time"

	"github.com/amirhossein-jamali/wallet-gateway/internal/domain/entity"
)

// Wallet represents the database model for wallets. The (UserID, Currency)
// pair is unique: one wallet per user per currency.
type Wallet struct {
	ID                uint64 `gorm:"primaryKey;autoIncrement"`
	UserID            uint64 `gorm:"not null;uniqueIndex:idx_wallets_user_currency"`
	Currency          string `gorm:"not null;size:8;uniqueIndex:idx_wallets_user_currency"`
	BalanceCents      int64  `gorm:"not null;default:0"`
	HoldCents         int64  `gorm:"not null;default:0"`
	Status            string `gorm:"not null;size:16;default:'ACTIVE'"`
	LastTransactionAt *time.Time
	CreatedAt         time.Time `gorm:"not null"`
	UpdatedAt         time.Time `gorm:"not null"`
}

// TableName specifies the table name for Wallet
func (Wallet) TableName() string {
	return "wallets"
}

// ToEntity converts the model to a domain entity
func (m *Wallet) ToEntity() *entity.Wallet {
	return &entity.Wallet{
		ID:                m.ID,
		UserID:            m.UserID,
		Currency:          m.Currency,
		BalanceCents:      m.BalanceCents,
		HoldCents:         m.HoldCents,
		Status:            entity.WalletStatus(m.Status),
		LastTransactionAt: m.LastTransactionAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

// WalletFromEntity converts a domain entity to the database model
func WalletFromEntity(w *entity.Wallet) *Wallet {
	return &Wallet{
		ID:                w.ID,
		UserID:            w.UserID,
		Currency:          w.Currency,
		BalanceCents:      w.BalanceCents,
		HoldCents:         w.HoldCents,
		Status:            string(w.Status),
		LastTransactionAt: w.LastTransactionAt,
		CreatedAt:         w.CreatedAt,
		UpdatedAt:         w.UpdatedAt,
	}
}
