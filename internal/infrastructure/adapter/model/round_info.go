package model

import (
	"time"

	"github.com/amirhossein-jamali/wallet-gateway/internal/domain/entity"
)

// RoundInfo represents the database model for round tracking records. The
// (GameRoundID, UserID) pair is unique.
type RoundInfo struct {
	ID          uint64               `gorm:"primaryKey;autoIncrement"`
	GameRoundID string               `gorm:"not null;size:32;uniqueIndex:idx_rounds_round_user"`
	UserID      uint64               `gorm:"not null;uniqueIndex:idx_rounds_round_user"`
	Currency    string               `gorm:"not null;size:8"`
	GameDesc    string               `gorm:"size:64"`
	Actions     []entity.RoundAction `gorm:"type:jsonb;serializer:json"`
	Processed   bool                 `gorm:"not null;default:false;index"`
	RetryCount  int                  `gorm:"not null;default:0"`
	LastRetryAt *time.Time
	NeedsReview bool      `gorm:"not null;default:false;index"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName specifies the table name for RoundInfo
func (RoundInfo) TableName() string {
	return "round_infos"
}

// ToEntity converts the model to a domain entity
func (m *RoundInfo) ToEntity() *entity.RoundInfo {
	return &entity.RoundInfo{
		ID:          m.ID,
		GameRoundID: m.GameRoundID,
		UserID:      m.UserID,
		Currency:    m.Currency,
		GameDesc:    m.GameDesc,
		Actions:     m.Actions,
		Processed:   m.Processed,
		RetryCount:  m.RetryCount,
		LastRetryAt: m.LastRetryAt,
		NeedsReview: m.NeedsReview,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// RoundInfoFromEntity converts a domain entity to the database model
func RoundInfoFromEntity(r *entity.RoundInfo) *RoundInfo {
	return &RoundInfo{
		ID:          r.ID,
		GameRoundID: r.GameRoundID,
		UserID:      r.UserID,
		Currency:    r.Currency,
		GameDesc:    r.GameDesc,
		Actions:     r.Actions,
		Processed:   r.Processed,
		RetryCount:  r.RetryCount,
		LastRetryAt: r.LastRetryAt,
		NeedsReview: r.NeedsReview,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}
