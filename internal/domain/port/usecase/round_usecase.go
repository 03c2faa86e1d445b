package usecase

import (
	"context"
	"time"
)

// ReportedAction is one action inside a roundinfo report
type ReportedAction struct {
	ActionID  string
	Kind      string
	Amount    string
	Timestamp time.Time
}

// RoundReport is the payload of a roundinfo operation
type RoundReport struct {
	GameRoundID string
	UserID      uint64
	Currency    string
	GameDesc    string
	Actions     []ReportedAction
}

// ReconcileOutcome reports how a reconciliation pass ended
type ReconcileOutcome int

// Reconciliation outcomes
const (
	// ReconcileSkipped: the round was already settled or flagged, or a
	// competing pass owns the current attempt
	ReconcileSkipped ReconcileOutcome = iota
	// ReconcileMatched: the reported net matched the settled ledger
	ReconcileMatched
	// ReconcileRetryScheduled: a mismatch was found and a backoff retry scheduled
	ReconcileRetryScheduled
	// ReconcileFlagged: the attempt cap was reached and the round needs review
	ReconcileFlagged
)

// RoundTrackerUseCase accumulates round actions and reconciles them against
// the settled ledger
type RoundTrackerUseCase interface {
	// Record appends the reported actions (idempotently by action id) and
	// schedules a reconciliation pass
	Record(ctx context.Context, report RoundReport) error

	// Reconcile compares the round's reported net movement with the settled
	// ledger and either marks the round processed, schedules a retry with
	// backoff, or flags it for manual review once the attempt cap is reached
	Reconcile(ctx context.Context, gameRoundID string, userID uint64) (ReconcileOutcome, error)
}
