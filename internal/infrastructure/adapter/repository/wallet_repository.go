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

// WalletRepository implements the WalletRepository interface using GORM.
// Debit and Credit mutate the balance through a single conditional UPDATE so
// concurrent operations on the same wallet serialize at the storage layer;
// there are no application-level locks and no cached balances.
type WalletRepository struct {
	db           *gorm.DB
	timeProvider coreport.TimeProvider
	logger       coreport.Logger
}

// NewWalletRepository creates a new WalletRepository instance
func NewWalletRepository(db *gorm.DB, timeProvider coreport.TimeProvider, logger coreport.Logger) *WalletRepository {
	return &WalletRepository{
		db:           db,
		timeProvider: timeProvider,
		logger:       logger,
	}
}

// GetByID retrieves a wallet by its internal id
func (r *WalletRepository) GetByID(ctx context.Context, walletID uint64) (*entity.Wallet, error) {
	var walletModel model.Wallet
	result := r.db.WithContext(ctx).First(&walletModel, walletID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errs.ErrWalletNotFound
		}
		return nil, r.storeError("get wallet by id", result.Error)
	}
	return walletModel.ToEntity(), nil
}

// GetByUserAndCurrency retrieves the wallet for a (user, currency) pair
func (r *WalletRepository) GetByUserAndCurrency(ctx context.Context, userID uint64, currency string) (*entity.Wallet, error) {
	var walletModel model.Wallet
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND currency = ?", userID, currency).
		First(&walletModel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errs.ErrUserNotFound
		}
		return nil, r.storeError("get wallet by user", result.Error)
	}
	return walletModel.ToEntity(), nil
}

// Create inserts a new wallet
func (r *WalletRepository) Create(ctx context.Context, wallet *entity.Wallet) error {
	walletModel := model.WalletFromEntity(wallet)
	result := r.db.WithContext(ctx).Create(walletModel)
	if result.Error != nil {
		if isDuplicateKey(result.Error) {
			r.logger.Warn("Wallet already exists", map[string]any{
				"user_id":  wallet.UserID,
				"currency": wallet.Currency,
			})
			return errs.ErrDuplicateTransaction
		}
		return r.storeError("create wallet", result.Error)
	}
	wallet.ID = walletModel.ID
	return nil
}

// Debit atomically subtracts amountCents from an active wallet with enough
// funds and returns the resulting balance. The condition and the mutation are
// one statement, so the balance can never go negative regardless of
// concurrent operations.
func (r *WalletRepository) Debit(ctx context.Context, walletID uint64, amountCents int64) (int64, error) {
	now := r.timeProvider.Now()
	result := r.db.WithContext(ctx).Model(&model.Wallet{}).
		Where("id = ? AND status = ? AND balance_cents >= ?", walletID, string(entity.WalletActive), amountCents).
		Updates(map[string]any{
			"balance_cents":       gorm.Expr("balance_cents - ?", amountCents),
			"last_transaction_at": now,
			"updated_at":          now,
		})
	if result.Error != nil {
		return 0, r.storeError("debit wallet", result.Error)
	}
	if result.RowsAffected == 0 {
		return 0, r.explainConditionalFailure(ctx, walletID, amountCents)
	}
	return r.currentBalance(ctx, walletID)
}

// Credit atomically adds amountCents to an active wallet and returns the
// resulting balance
func (r *WalletRepository) Credit(ctx context.Context, walletID uint64, amountCents int64) (int64, error) {
	now := r.timeProvider.Now()
	result := r.db.WithContext(ctx).Model(&model.Wallet{}).
		Where("id = ? AND status = ?", walletID, string(entity.WalletActive)).
		Updates(map[string]any{
			"balance_cents":       gorm.Expr("balance_cents + ?", amountCents),
			"last_transaction_at": now,
			"updated_at":          now,
		})
	if result.Error != nil {
		return 0, r.storeError("credit wallet", result.Error)
	}
	if result.RowsAffected == 0 {
		return 0, r.explainConditionalFailure(ctx, walletID, 0)
	}
	return r.currentBalance(ctx, walletID)
}

// explainConditionalFailure turns a zero-rows conditional update into the
// precise domain error: missing wallet, non-active wallet, or short funds
func (r *WalletRepository) explainConditionalFailure(ctx context.Context, walletID uint64, amountCents int64) error {
	var walletModel model.Wallet
	result := r.db.WithContext(ctx).First(&walletModel, walletID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return errs.ErrWalletNotFound
		}
		return r.storeError("inspect wallet", result.Error)
	}
	if walletModel.Status != string(entity.WalletActive) {
		return errs.ErrWalletSuspended
	}
	if amountCents > 0 && walletModel.BalanceCents < amountCents {
		return errs.ErrInsufficientFunds
	}
	return errs.ErrInternalServer
}

// currentBalance reads the balance inside the same transaction that just
// mutated it
func (r *WalletRepository) currentBalance(ctx context.Context, walletID uint64) (int64, error) {
	var balance int64
	result := r.db.WithContext(ctx).Model(&model.Wallet{}).
		Where("id = ?", walletID).
		Pluck("balance_cents", &balance)
	if result.Error != nil {
		return 0, r.storeError("read balance", result.Error)
	}
	return balance, nil
}

// storeError wraps infrastructure failures as store-unavailable domain errors
func (r *WalletRepository) storeError(operation string, err error) error {
	r.logger.Error("Wallet store operation failed", map[string]any{
		"operation": operation,
		"error":     err.Error(),
		"retriable": isTransient(err) || isSerializationFailure(err),
	})
	return fmt.Errorf("%w: %s", errs.ErrStoreUnavailable, err.Error())
}
