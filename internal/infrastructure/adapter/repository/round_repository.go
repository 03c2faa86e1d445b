package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/amirhossein-jamali/wallet-gateway/internal/domain/entity"
	errs "github.com/amirhossein-jamali/wallet-gateway/internal/domain/error"
	coreport "github.com/amirhossein-jamali/wallet-gateway/internal/domain/port/core"
	"github.com/amirhossein-jamali/wallet-gateway/internal/infrastructure/adapter/model"
)

// RoundRepository implements the RoundRepository interface using GORM
type RoundRepository struct {
	db     *gorm.DB
	logger coreport.Logger
}

// NewRoundRepository creates a new RoundRepository instance
func NewRoundRepository(db *gorm.DB, logger coreport.Logger) *RoundRepository {
	return &RoundRepository{
		db:     db,
		logger: logger,
	}
}

// GetByRoundAndUser retrieves the round record for a (round, user) pair
func (r *RoundRepository) GetByRoundAndUser(ctx context.Context, gameRoundID string, userID uint64) (*entity.RoundInfo, error) {
	var roundModel model.RoundInfo
	result := r.db.WithContext(ctx).
		Where("game_round_id = ? AND user_id = ?", gameRoundID, userID).
		First(&roundModel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errs.ErrRoundNotFound
		}
		return nil, r.storeError("get round", result.Error)
	}
	return roundModel.ToEntity(), nil
}

// Create inserts a new round record
func (r *RoundRepository) Create(ctx context.Context, round *entity.RoundInfo) error {
	roundModel := model.RoundInfoFromEntity(round)
	result := r.db.WithContext(ctx).Create(roundModel)
	if result.Error != nil {
		if isDuplicateKey(result.Error) {
			return errs.ErrDuplicateTransaction
		}
		return r.storeError("create round", result.Error)
	}
	round.ID = roundModel.ID
	return nil
}

// Update persists appended actions and reconciliation state
func (r *RoundRepository) Update(ctx context.Context, round *entity.RoundInfo) error {
	roundModel := model.RoundInfoFromEntity(round)
	// Struct-based update so the actions serializer applies
	result := r.db.WithContext(ctx).Model(&model.RoundInfo{}).
		Where("id = ?", round.ID).
		Select("actions", "processed", "retry_count", "last_retry_at", "needs_review", "updated_at").
		Updates(roundModel)
	if result.Error != nil {
		return r.storeError("update round", result.Error)
	}
	if result.RowsAffected == 0 {
		return errs.ErrRoundNotFound
	}
	return nil
}

// RegisterRetry persists retry bookkeeping conditional on the attempt count
// the pass was computed from. A concurrent pass that already counted the
// attempt leaves this update matching nothing.
func (r *RoundRepository) RegisterRetry(ctx context.Context, round *entity.RoundInfo, expectedRetryCount int) error {
	roundModel := model.RoundInfoFromEntity(round)
	result := r.db.WithContext(ctx).Model(&model.RoundInfo{}).
		Where("id = ? AND retry_count = ?", round.ID, expectedRetryCount).
		Select("retry_count", "last_retry_at", "needs_review", "updated_at").
		Updates(roundModel)
	if result.Error != nil {
		return r.storeError("register round retry", result.Error)
	}
	if result.RowsAffected == 0 {
		return errs.ErrRoundNotFound
	}
	return nil
}

// ListUnprocessed returns rounds that have not reconciled yet and are not
// flagged for manual review, oldest first
func (r *RoundRepository) ListUnprocessed(ctx context.Context, limit int) ([]*entity.RoundInfo, error) {
	var roundModels []model.RoundInfo
	result := r.db.WithContext(ctx).
		Where("processed = ? AND needs_review = ?", false, false).
		Order("created_at ASC").
		Limit(limit).
		Find(&roundModels)
	if result.Error != nil {
		return nil, r.storeError("list unprocessed rounds", result.Error)
	}

	rounds := make([]*entity.RoundInfo, 0, len(roundModels))
	for i := range roundModels {
		rounds = append(rounds, roundModels[i].ToEntity())
	}
	return rounds, nil
}

// storeError wraps infrastructure failures as store-unavailable domain errors
func (r *RoundRepository) storeError(operation string, err error) error {
	r.logger.Error("Round store operation failed", map[string]any{
		"operation": operation,
		"error":     err.Error(),
		"retriable": isTransient(err) || isSerializationFailure(err),
	})
	return fmt.Errorf("%w: %s", errs.ErrStoreUnavailable, err.Error())
}
