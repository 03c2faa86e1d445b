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

// LedgerRepository implements the LedgerRepository interface using GORM.
// Settled entries are never rewritten; the only in-place change is the
// conditional COMPLETED -> REVERSED transition. FAILED audit rows sit outside
// the reference uniqueness guarantee (partial unique index) and are ignored
// by reference lookups.
type LedgerRepository struct {
	db     *gorm.DB
	logger coreport.Logger
}

// NewLedgerRepository creates a new LedgerRepository instance
func NewLedgerRepository(db *gorm.DB, logger coreport.Logger) *LedgerRepository {
	return &LedgerRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a new ledger entry
func (r *LedgerRepository) Create(ctx context.Context, entry *entity.LedgerEntry) error {
	entryModel := model.LedgerEntryFromEntity(entry)
	result := r.db.WithContext(ctx).Create(entryModel)
	if result.Error != nil {
		if isDuplicateKey(result.Error) {
			r.logger.Warn("Duplicate ledger reference", map[string]any{
				"reference": entry.Reference,
				"wallet_id": entry.WalletID,
			})
			return errs.ErrDuplicateTransaction
		}
		return r.storeError("create ledger entry", result.Error)
	}
	entry.ID = entryModel.ID
	return nil
}

// GetByReference retrieves the settled entry for a provider transaction id.
// FAILED audit rows are excluded: a rejected attempt does not consume the
// reference.
func (r *LedgerRepository) GetByReference(ctx context.Context, reference string) (*entity.LedgerEntry, error) {
	var entryModel model.LedgerEntry
	result := r.db.WithContext(ctx).
		Where("reference = ? AND status <> ?", reference, string(entity.EntryFailed)).
		First(&entryModel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errs.ErrUnknownTransaction
		}
		return nil, r.storeError("get ledger entry", result.Error)
	}
	return entryModel.ToEntity(), nil
}

// MarkReversed transitions a COMPLETED entry to REVERSED. The status guard
// makes concurrent rollbacks of the same entry apply at most once.
func (r *LedgerRepository) MarkReversed(ctx context.Context, entry *entity.LedgerEntry) error {
	// Struct-based update so the metadata serializer applies to the new
	// reversal id
	result := r.db.WithContext(ctx).Model(&model.LedgerEntry{}).
		Where("reference = ? AND status = ?", entry.Reference, string(entity.EntryCompleted)).
		Select("status", "reversed_at", "metadata").
		Updates(model.LedgerEntry{
			Status:     string(entity.EntryReversed),
			ReversedAt: entry.ReversedAt,
			Metadata:   entry.Metadata,
		})
	if result.Error != nil {
		return r.storeError("mark entry reversed", result.Error)
	}
	if result.RowsAffected == 0 {
		return errs.ErrUnknownTransaction
	}
	return nil
}

// SettledNetForRound sums the signed movement of COMPLETED entries recorded
// for a game round and wallet. REVERSED entries no longer move money and are
// excluded.
func (r *LedgerRepository) SettledNetForRound(ctx context.Context, roundID string, walletID uint64) (int64, error) {
	var net int64
	result := r.db.WithContext(ctx).Model(&model.LedgerEntry{}).
		Select("COALESCE(SUM(CASE WHEN type = ? THEN amount_cents ELSE -amount_cents END), 0)", string(entity.EntryCredit)).
		Where("round_id = ? AND wallet_id = ? AND status = ?", roundID, walletID, string(entity.EntryCompleted)).
		Scan(&net)
	if result.Error != nil {
		return 0, r.storeError("sum round movement", result.Error)
	}
	return net, nil
}

// storeError wraps infrastructure failures as store-unavailable domain errors
func (r *LedgerRepository) storeError(operation string, err error) error {
	r.logger.Error("Ledger store operation failed", map[string]any{
		"operation": operation,
		"error":     err.Error(),
		"retriable": isTransient(err) || isSerializationFailure(err),
	})
	return fmt.Errorf("%w: %s", errs.ErrStoreUnavailable, err.Error())
}
