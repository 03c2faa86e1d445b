package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/amirhossein-jamali/wallet-gateway/internal/domain/entity"
	errs "github.com/amirhossein-jamali/wallet-gateway/internal/domain/error"
	coreport "github.com/amirhossein-jamali/wallet-gateway/internal/domain/port/core"
	"github.com/amirhossein-jamali/wallet-gateway/internal/domain/port/messaging"
	"github.com/amirhossein-jamali/wallet-gateway/internal/domain/port/persistence"
	"github.com/amirhossein-jamali/wallet-gateway/internal/domain/port/usecase"
)

// Ledger categories
const (
	CategoryBet        = "bet"
	CategoryWin        = "win"
	CategoryPromotion  = "promotion"
	CategoryCorrection = "correction"
)

// Service implements the provider-facing wallet operations. Balance mutation
// and ledger append happen in one durable transaction; the per-wallet ordering
// guarantee comes from the store's atomic conditional update combined with the
// unique constraint on the ledger reference, not from in-process locks.
type Service struct {
	uow          persistence.UnitOfWork
	validator    *RequestValidator
	replay       *ReplayDetector
	timeProvider coreport.TimeProvider
	logger       coreport.Logger
	publisher    messaging.LedgerEventPublisher
	tracker      usecase.RoundTrackerUseCase
	opTimeout    coreport.Duration
}

// NewGatewayService creates a new gateway service
func NewGatewayService(
	uow persistence.UnitOfWork,
	timeProvider coreport.TimeProvider,
	logger coreport.Logger,
	opTimeout coreport.Duration,
) *Service {
	return &Service{
		uow:          uow,
		validator:    NewRequestValidator(),
		replay:       NewReplayDetector(uow.GetLedgerRepository(context.Background())),
		timeProvider: timeProvider,
		logger:       logger,
		opTimeout:    opTimeout,
	}
}

// WithPublisher attaches a ledger event publisher for downstream audit
func (s *Service) WithPublisher(publisher messaging.LedgerEventPublisher) *Service {
	s.publisher = publisher
	return s
}

// WithRoundTracker attaches the round tracker that receives round flags
func (s *Service) WithRoundTracker(tracker usecase.RoundTrackerUseCase) *Service {
	s.tracker = tracker
	return s
}

// Balance returns the wallet balance for a user and currency. A missing wallet
// is an error; balance queries never auto-create wallets.
func (s *Service) Balance(ctx context.Context, userID uint64, currency string) (string, error) {
	wallet, err := s.uow.GetWalletRepository(ctx).GetByUserAndCurrency(ctx, userID, currency)
	if err != nil {
		return "", err
	}
	return wallet.BalanceString(), nil
}

// CreateWallet provisions a wallet at account creation time
func (s *Service) CreateWallet(ctx context.Context, userID uint64, currency string) error {
	wallet, err := entity.NewWallet(userID, currency, s.timeProvider)
	if err != nil {
		return err
	}
	if err := s.uow.GetWalletRepository(ctx).Create(ctx, wallet); err != nil {
		return err
	}
	s.logger.Info("Wallet created", map[string]any{
		"user_id":  userID,
		"currency": currency,
	})
	return nil
}

// Debit settles a stake against the wallet, idempotently by reference
func (s *Service) Debit(ctx context.Context, req usecase.DebitRequest) (*usecase.TransactionResult, error) {
	if err := s.validator.ValidateDebit(req); err != nil {
		return nil, err
	}

	if result, err := s.checkReplay(ctx, req.Reference); result != nil || err != nil {
		return result, err
	}

	wallet, err := s.lookupActiveWallet(ctx, req.UserID, req.Currency)
	if err != nil {
		return nil, err
	}

	category := CategoryBet
	if req.Subtype != "" {
		category = CategoryCorrection
	}
	metadata := entity.EntryMetadata{
		GameID:   req.Game.GameID,
		GameDesc: req.Game.GameDesc,
		ActionID: req.Game.ActionID,
		ExtParam: req.ExtParam,
		Subtype:  req.Subtype,
		RoundID:  req.Game.GameID,
	}

	result, err := s.settle(ctx, "debit", wallet, entity.EntryDebit, req.Reference, req.Amount, category, metadata)
	if err != nil {
		return nil, err
	}

	// Round flags carry no money logic; they only feed the tracker
	if req.RoundStart || req.RoundEnded {
		s.forwardRoundFlags(ctx, req.Game.GameID, req.UserID, req.Currency, req.Game.GameDesc)
	}

	return result, nil
}

// Credit settles a win, correction, or promotion payout, idempotently by reference
func (s *Service) Credit(ctx context.Context, req usecase.CreditRequest) (*usecase.TransactionResult, error) {
	if err := s.validator.ValidateCredit(req); err != nil {
		return nil, err
	}

	if result, err := s.checkReplay(ctx, req.Reference); result != nil || err != nil {
		return result, err
	}

	wallet, err := s.lookupActiveWallet(ctx, req.UserID, req.Currency)
	if err != nil {
		return nil, err
	}

	category := CategoryWin
	if req.Subtype == SubtypePromotion {
		category = CategoryPromotion
	} else if req.Subtype == SubtypeCancel {
		category = CategoryCorrection
	}

	metadata := entity.EntryMetadata{
		ExtParam:    req.ExtParam,
		Subtype:     req.Subtype,
		RollbackRef: req.RollbackRef,
		BonusID:     req.BonusID,
		JackpotWin:  req.JackpotWin,
		Flag:        req.Flag,
	}
	if req.Game != nil {
		metadata.GameID = req.Game.GameID
		metadata.GameDesc = req.Game.GameDesc
		metadata.ActionID = req.Game.ActionID
		metadata.RoundID = req.Game.GameID
	}

	return s.settle(ctx, "credit", wallet, entity.EntryCredit, req.Reference, req.Amount, category, metadata)
}

// Rollback reverses previously settled transactions. Reversing an already
// reversed entry is a no-op success; reversing an unknown reference is a
// reported error, never silently ignored.
func (s *Service) Rollback(ctx context.Context, selections []usecase.RollbackSelection) ([]usecase.RollbackOutcome, error) {
	if err := s.validator.ValidateRollback(selections); err != nil {
		return nil, err
	}

	outcomes := make([]usecase.RollbackOutcome, 0, len(selections))
	for _, sel := range selections {
		outcome, err := s.rollbackOne(ctx, sel.BetID)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, *outcome)
	}
	return outcomes, nil
}

// checkReplay resolves retries of an already settled reference to the original
// success payload without touching the wallet
func (s *Service) checkReplay(ctx context.Context, reference string) (*usecase.TransactionResult, error) {
	entry, found, err := s.replay.CheckReplay(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	s.logger.Info("Idempotent replay detected", map[string]any{
		"reference": reference,
		"status":    entry.Status,
	})
	return &usecase.TransactionResult{
		Reference:    entry.Reference,
		BalanceCents: entry.BalanceAfterCents,
		Balance:      entry.BalanceAfterString(),
		Replayed:     true,
	}, nil
}

// lookupActiveWallet re-reads the authoritative wallet row for every operation
func (s *Service) lookupActiveWallet(ctx context.Context, userID uint64, currency string) (*entity.Wallet, error) {
	wallet, err := s.uow.GetWalletRepository(ctx).GetByUserAndCurrency(ctx, userID, currency)
	if err != nil {
		return nil, err
	}
	if !wallet.CanTransact() {
		s.logger.Warn("Operation rejected on non-active wallet", map[string]any{
			"user_id":  userID,
			"currency": currency,
			"status":   wallet.Status,
		})
		return nil, errs.ErrWalletSuspended
	}
	return wallet, nil
}

// settle applies one balance mutation and its ledger entry in a single durable
// transaction. If the atomic step cannot complete in time it fails closed.
func (s *Service) settle(
	ctx context.Context,
	operation string,
	wallet *entity.Wallet,
	entryType entity.EntryType,
	reference string,
	amount string,
	category string,
	metadata entity.EntryMetadata,
) (*usecase.TransactionResult, error) {
	amountCents, err := entity.ValidateAndConvertAmount(amount)
	if err != nil {
		return nil, err
	}

	opCtx, cancel := s.timeProvider.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	txCtx, err := s.uow.Begin(opCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrStoreUnavailable, err.Error())
	}

	walletRepo := s.uow.GetWalletRepository(txCtx)
	ledgerRepo := s.uow.GetLedgerRepository(txCtx)

	var newBalance int64
	if entryType == entity.EntryDebit {
		newBalance, err = walletRepo.Debit(txCtx, wallet.ID, amountCents)
	} else {
		newBalance, err = walletRepo.Credit(txCtx, wallet.ID, amountCents)
	}
	if err != nil {
		_ = s.uow.Rollback(txCtx)
		if errors.Is(err, errs.ErrInsufficientFunds) {
			s.recordFailedEntry(ctx, reference, wallet, entryType, amount, category, metadata)
			return nil, errs.NewInsufficientFundsError(wallet.UserID, wallet.Currency, amount, wallet.BalanceString())
		}
		return nil, errs.NewGatewayError(operation, reference, wallet.UserID, "balance mutation failed", err)
	}

	entry, err := entity.NewLedgerEntry(reference, wallet.ID, entryType, amount, wallet.Currency, category, metadata, s.timeProvider)
	if err != nil {
		_ = s.uow.Rollback(txCtx)
		return nil, err
	}
	entry.MarkCompleted(newBalance)

	if err := ledgerRepo.Create(txCtx, entry); err != nil {
		_ = s.uow.Rollback(txCtx)
		if errors.Is(err, errs.ErrDuplicateTransaction) {
			// Concurrent first delivery of the same reference: the other
			// request won the unique index, so resolve this one as a replay.
			result, replayErr := s.checkReplay(ctx, reference)
			if replayErr != nil {
				return nil, replayErr
			}
			if result == nil {
				// The winning row is not readable yet. Fail closed; the
				// provider's retry will resolve as a replay.
				return nil, fmt.Errorf("%w: reference %s settled concurrently", errs.ErrStoreUnavailable, reference)
			}
			return result, nil
		}
		return nil, errs.NewGatewayError(operation, reference, wallet.UserID, "ledger append failed", err)
	}

	if err := s.uow.Commit(txCtx); err != nil {
		_ = s.uow.Rollback(txCtx)
		return nil, fmt.Errorf("%w: commit failed: %s", errs.ErrStoreUnavailable, err.Error())
	}

	s.logger.Info("Transaction settled", map[string]any{
		"operation":   operation,
		"reference":   reference,
		"user_id":     wallet.UserID,
		"amount":      amount,
		"new_balance": entity.CentsToString(newBalance),
	})

	s.publishEvent(ctx, messaging.EventSettled, entry, wallet.UserID)

	return &usecase.TransactionResult{
		Reference:    reference,
		BalanceCents: newBalance,
		Balance:      entity.CentsToString(newBalance),
	}, nil
}

// rollbackOne reverses a single settled entry identified by its reference
func (s *Service) rollbackOne(ctx context.Context, reference string) (*usecase.RollbackOutcome, error) {
	ledgerRepo := s.uow.GetLedgerRepository(ctx)
	walletRepo := s.uow.GetWalletRepository(ctx)

	entry, err := ledgerRepo.GetByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, errs.ErrUnknownTransaction) {
			s.logger.Warn("Rollback target not found", map[string]any{"reference": reference})
			return nil, errs.NewGatewayError("rollback", reference, 0, "original transaction not found", errs.ErrUnknownTransaction)
		}
		return nil, err
	}

	wallet, err := walletRepo.GetByID(ctx, entry.WalletID)
	if err != nil {
		return nil, err
	}

	if entry.IsReversed() {
		s.logger.Info("Rollback replay on reversed entry", map[string]any{"reference": reference})
		return &usecase.RollbackOutcome{
			Reference:    reference,
			BalanceCents: wallet.BalanceCents,
			AlreadyDone:  true,
		}, nil
	}
	if !entry.IsCompleted() {
		return nil, errs.NewGatewayError("rollback", reference, wallet.UserID, "entry is not settled", errs.ErrUnknownTransaction)
	}

	opCtx, cancel := s.timeProvider.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	txCtx, err := s.uow.Begin(opCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrStoreUnavailable, err.Error())
	}

	txWallets := s.uow.GetWalletRepository(txCtx)
	txLedger := s.uow.GetLedgerRepository(txCtx)

	// Apply the inverse of the original movement
	var newBalance int64
	if entry.Type == entity.EntryDebit {
		newBalance, err = txWallets.Credit(txCtx, entry.WalletID, entry.AmountCents)
	} else {
		newBalance, err = txWallets.Debit(txCtx, entry.WalletID, entry.AmountCents)
	}
	if err != nil {
		_ = s.uow.Rollback(txCtx)
		return nil, errs.NewGatewayError("rollback", reference, wallet.UserID, "inverse adjustment failed", err)
	}

	entry.MarkReversed(s.timeProvider, uuid.NewString())
	if err := txLedger.MarkReversed(txCtx, entry); err != nil {
		_ = s.uow.Rollback(txCtx)
		if errors.Is(err, errs.ErrUnknownTransaction) {
			// A concurrent rollback won the conditional update; treat this
			// delivery as the idempotent replay it is.
			return &usecase.RollbackOutcome{
				Reference:    reference,
				BalanceCents: wallet.BalanceCents,
				AlreadyDone:  true,
			}, nil
		}
		return nil, errs.NewGatewayError("rollback", reference, wallet.UserID, "reversal marking failed", err)
	}

	if err := s.uow.Commit(txCtx); err != nil {
		_ = s.uow.Rollback(txCtx)
		return nil, fmt.Errorf("%w: commit failed: %s", errs.ErrStoreUnavailable, err.Error())
	}

	s.logger.Info("Transaction reversed", map[string]any{
		"reference":   reference,
		"user_id":     wallet.UserID,
		"amount":      entry.Amount,
		"new_balance": entity.CentsToString(newBalance),
	})

	s.publishEvent(ctx, messaging.EventReversed, entry, wallet.UserID)

	return &usecase.RollbackOutcome{
		Reference:    reference,
		BalanceCents: newBalance,
	}, nil
}

// recordFailedEntry writes a FAILED audit row for a rejected debit. The row
// never affects the balance and does not consume the reference.
func (s *Service) recordFailedEntry(
	ctx context.Context,
	reference string,
	wallet *entity.Wallet,
	entryType entity.EntryType,
	amount string,
	category string,
	metadata entity.EntryMetadata,
) {
	entry, err := entity.NewLedgerEntry(reference, wallet.ID, entryType, amount, wallet.Currency, category, metadata, s.timeProvider)
	if err != nil {
		return
	}
	entry.MarkFailed("insufficient funds")
	if err := s.uow.GetLedgerRepository(ctx).Create(ctx, entry); err != nil {
		s.logger.Warn("Failed to record audit row for rejected debit", map[string]any{
			"reference": reference,
			"error":     err.Error(),
		})
	}
}

// publishEvent emits a ledger event, best effort
func (s *Service) publishEvent(ctx context.Context, kind string, entry *entity.LedgerEntry, userID uint64) {
	if s.publisher == nil {
		return
	}
	event := messaging.LedgerEvent{
		Kind:         kind,
		Reference:    entry.Reference,
		WalletID:     entry.WalletID,
		UserID:       userID,
		Type:         string(entry.Type),
		Amount:       entry.Amount,
		Currency:     entry.Currency,
		BalanceAfter: entry.BalanceAfterString(),
		OccurredAt:   s.timeProvider.Now(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish ledger event", map[string]any{
			"kind":      kind,
			"reference": entry.Reference,
			"error":     err.Error(),
		})
	}
}

// forwardRoundFlags feeds round lifecycle flags to the tracker, best effort
func (s *Service) forwardRoundFlags(ctx context.Context, gameRoundID string, userID uint64, currency, gameDesc string) {
	if s.tracker == nil {
		return
	}
	report := usecase.RoundReport{
		GameRoundID: gameRoundID,
		UserID:      userID,
		Currency:    currency,
		GameDesc:    gameDesc,
	}
	if err := s.tracker.Record(ctx, report); err != nil {
		s.logger.Warn("Failed to forward round flags to tracker", map[string]any{
			"game_round_id": gameRoundID,
			"user_id":       userID,
			"error":         err.Error(),
		})
	}
}
