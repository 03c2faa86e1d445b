package round

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirhossein-jamali/wallet-gateway/internal/domain/entity"
	errs "github.com/amirhossein-jamali/wallet-gateway/internal/domain/error"
	coreport "github.com/amirhossein-jamali/wallet-gateway/internal/domain/port/core"
	"github.com/amirhossein-jamali/wallet-gateway/internal/domain/port/messaging"
	"github.com/amirhossein-jamali/wallet-gateway/internal/domain/port/persistence"
	"github.com/amirhossein-jamali/wallet-gateway/internal/domain/port/usecase"
)

// Reconciliation defaults
const (
	DefaultMaxAttempts = 5
	DefaultBaseBackoff = 30 * coreport.Second
)

// Tracker accumulates provider-reported round actions and reconciles each
// round's net movement against the settled ledger. A mismatch is retried with
// exponential backoff up to the attempt cap, then flagged for manual review.
type Tracker struct {
	uow          persistence.UnitOfWork
	scheduler    messaging.ReconcileScheduler
	timeProvider coreport.TimeProvider
	logger       coreport.Logger
	maxAttempts  int
	baseBackoff  coreport.Duration
}

// NewTracker creates a new round tracker
func NewTracker(
	uow persistence.UnitOfWork,
	scheduler messaging.ReconcileScheduler,
	timeProvider coreport.TimeProvider,
	logger coreport.Logger,
	maxAttempts int,
	baseBackoff coreport.Duration,
) *Tracker {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if baseBackoff <= 0 {
		baseBackoff = DefaultBaseBackoff
	}
	return &Tracker{
		uow:          uow,
		scheduler:    scheduler,
		timeProvider: timeProvider,
		logger:       logger,
		maxAttempts:  maxAttempts,
		baseBackoff:  baseBackoff,
	}
}

// Record appends the reported actions to the round record, idempotently by
// action id, and schedules a reconciliation pass. Duplicate action ids are
// skipped, never double counted.
func (t *Tracker) Record(ctx context.Context, report usecase.RoundReport) error {
	actions, err := t.convertActions(report.Actions)
	if err != nil {
		return err
	}

	txCtx, err := t.uow.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %s", errs.ErrStoreUnavailable, err.Error())
	}
	roundRepo := t.uow.GetRoundRepository(txCtx)

	record, err := roundRepo.GetByRoundAndUser(txCtx, report.GameRoundID, report.UserID)
	switch {
	case err == nil:
		appended := 0
		for _, action := range actions {
			if record.AppendAction(action) {
				appended++
			}
		}
		if appended > 0 {
			if err := roundRepo.Update(txCtx, record); err != nil {
				_ = t.uow.Rollback(txCtx)
				return err
			}
		}
	case errors.Is(err, errs.ErrRoundNotFound):
		record, err = entity.NewRoundInfo(report.GameRoundID, report.UserID, report.Currency, report.GameDesc, t.timeProvider)
		if err != nil {
			_ = t.uow.Rollback(txCtx)
			return err
		}
		for _, action := range actions {
			record.AppendAction(action)
		}
		if err := roundRepo.Create(txCtx, record); err != nil {
			_ = t.uow.Rollback(txCtx)
			if errors.Is(err, errs.ErrDuplicateTransaction) {
				// Lost the insert race for this (round, user) pair; replay the
				// report against the winner's record.
				return t.Record(ctx, report)
			}
			return err
		}
	default:
		_ = t.uow.Rollback(txCtx)
		return err
	}

	if err := t.uow.Commit(txCtx); err != nil {
		_ = t.uow.Rollback(txCtx)
		return fmt.Errorf("%w: commit failed: %s", errs.ErrStoreUnavailable, err.Error())
	}

	t.logger.Debug("Round report recorded", map[string]any{
		"game_round_id": report.GameRoundID,
		"user_id":       report.UserID,
		"actions":       len(actions),
	})

	t.schedule(ctx, report.GameRoundID, report.UserID, 0)
	return nil
}

// Reconcile compares the round's reported net movement with the settled
// ledger. On agreement the round is marked processed; on mismatch a retry is
// scheduled with exponential backoff until the attempt cap flags the round for
// manual review.
func (t *Tracker) Reconcile(ctx context.Context, gameRoundID string, userID uint64) (usecase.ReconcileOutcome, error) {
	roundRepo := t.uow.GetRoundRepository(ctx)

	record, err := roundRepo.GetByRoundAndUser(ctx, gameRoundID, userID)
	if err != nil {
		return usecase.ReconcileSkipped, err
	}
	if record.Processed || record.NeedsReview {
		return usecase.ReconcileSkipped, nil
	}

	wallet, err := t.uow.GetWalletRepository(ctx).GetByUserAndCurrency(ctx, userID, record.Currency)
	if err != nil {
		return usecase.ReconcileSkipped, err
	}

	settledNet, err := t.uow.GetLedgerRepository(ctx).SettledNetForRound(ctx, gameRoundID, wallet.ID)
	if err != nil {
		return usecase.ReconcileSkipped, err
	}

	reportedNet := record.NetCents()
	if settledNet == reportedNet {
		record.MarkProcessed(t.timeProvider)
		if err := roundRepo.Update(ctx, record); err != nil {
			return usecase.ReconcileSkipped, err
		}
		t.logger.Info("Round reconciled", map[string]any{
			"game_round_id": gameRoundID,
			"user_id":       userID,
			"net_cents":     reportedNet,
		})
		return usecase.ReconcileMatched, nil
	}

	prevAttempts := record.RetryCount
	record.RegisterRetry(t.timeProvider)
	flagged := record.ExceededAttempts(t.maxAttempts)
	if flagged {
		record.FlagForReview(t.timeProvider)
	}
	// The write is conditional on the attempt count the pass started from, so
	// two passes racing over the same mismatch count one attempt once.
	if err := roundRepo.RegisterRetry(ctx, record, prevAttempts); err != nil {
		if errors.Is(err, errs.ErrRoundNotFound) {
			t.logger.Debug("Reconcile attempt already counted by a competing pass", map[string]any{
				"game_round_id": gameRoundID,
				"user_id":       userID,
			})
			return usecase.ReconcileSkipped, nil
		}
		return usecase.ReconcileSkipped, err
	}

	if flagged {
		t.logger.Error("Round flagged for manual review after retry cap", map[string]any{
			"game_round_id": gameRoundID,
			"user_id":       userID,
			"reported_net":  reportedNet,
			"settled_net":   settledNet,
			"attempts":      record.RetryCount,
		})
		return usecase.ReconcileFlagged, nil
	}

	delay := t.backoff(record.RetryCount)
	t.logger.Warn("Round net mismatch, retry scheduled", map[string]any{
		"game_round_id": gameRoundID,
		"user_id":       userID,
		"reported_net":  reportedNet,
		"settled_net":   settledNet,
		"attempt":       record.RetryCount,
		"retry_in":      delay.Std().String(),
	})
	t.schedule(ctx, gameRoundID, userID, delay)
	return usecase.ReconcileRetryScheduled, nil
}

// convertActions validates and converts reported actions to domain actions
func (t *Tracker) convertActions(reported []usecase.ReportedAction) ([]entity.RoundAction, error) {
	actions := make([]entity.RoundAction, 0, len(reported))
	for _, action := range reported {
		if action.ActionID == "" {
			return nil, errs.NewValidationError("i_actionid", "action ID cannot be empty")
		}
		kind := entity.ActionKind(action.Kind)
		if kind != entity.ActionBet && kind != entity.ActionWin {
			return nil, errs.NewValidationError("kind", fmt.Sprintf("unknown action kind %s", action.Kind))
		}
		cents, err := entity.ValidateAndConvertAmount(action.Amount)
		if err != nil {
			return nil, err
		}
		actions = append(actions, entity.RoundAction{
			ActionID:    action.ActionID,
			Kind:        kind,
			AmountCents: cents,
			Timestamp:   action.Timestamp,
		})
	}
	return actions, nil
}

// backoff doubles the base delay per attempt: base, 2*base, 4*base, ...
func (t *Tracker) backoff(attempt int) coreport.Duration {
	delay := t.baseBackoff
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	return delay
}

// schedule enqueues a reconciliation pass, best effort. A lost schedule is
// recovered by the periodic sweep over unprocessed rounds.
func (t *Tracker) schedule(ctx context.Context, gameRoundID string, userID uint64, delay coreport.Duration) {
	if t.scheduler == nil {
		return
	}
	if err := t.scheduler.Schedule(ctx, gameRoundID, userID, delay); err != nil {
		t.logger.Warn("Failed to schedule round reconciliation", map[string]any{
			"game_round_id": gameRoundID,
			"user_id":       userID,
			"error":         err.Error(),
		})
	}
}

// Sweep re-enqueues reconciliation for unprocessed rounds. Runs on a cron
// schedule in the worker to recover rounds whose scheduled task was lost.
func (t *Tracker) Sweep(ctx context.Context, limit int) error {
	records, err := t.uow.GetRoundRepository(ctx).ListUnprocessed(ctx, limit)
	if err != nil {
		return err
	}
	for _, record := range records {
		t.schedule(ctx, record.GameRoundID, record.UserID, 0)
	}
	if len(records) > 0 {
		t.logger.Info("Unprocessed round sweep enqueued", map[string]any{"count": len(records)})
	}
	return nil
}
