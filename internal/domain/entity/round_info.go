package entity

import (
	"time"

	errs "github.com/amirhossein-jamali/wallet-gateway/internal/domain/error"
	tport "github.com/amirhossein-jamali/wallet-gateway/internal/domain/port/core"
)

// ActionKind represents the kind of a provider-reported round action
type ActionKind string

// Action kinds
const (
	ActionBet ActionKind = "BET"
	ActionWin ActionKind = "WIN"
)

// RoundAction is one provider-reported money movement inside a game round
type RoundAction struct {
	ActionID    string     `json:"actionId"`
	Kind        ActionKind `json:"kind"`
	AmountCents int64      `json:"amountCents"`
	Timestamp   time.Time  `json:"timestamp"`
}

// RoundInfo accumulates the provider-reported actions of one game round for one
// user. The (GameRoundID, UserID) pair is unique. The reconciler compares the
// round's net movement with the settled ledger and retries mismatches with
// backoff until the attempt cap, after which the round is flagged for manual
// review rather than retried forever.
type RoundInfo struct {
	ID          uint64
	GameRoundID string
	UserID      uint64
	Currency    string
	GameDesc    string
	Actions     []RoundAction
	Processed   bool
	RetryCount  int
	LastRetryAt *time.Time
	NeedsReview bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewRoundInfo creates an empty round record for a (round, user) pair
func NewRoundInfo(gameRoundID string, userID uint64, currency, gameDesc string, timeProvider tport.TimeProvider) (*RoundInfo, error) {
	if gameRoundID == "" {
		return nil, errs.NewValidationError("gameid", "game round ID cannot be empty")
	}
	if userID == 0 {
		return nil, errs.NewValidationError("userid", "user ID must be positive")
	}
	if currency == "" {
		return nil, errs.NewValidationError("currency", "currency cannot be empty")
	}

	now := timeProvider.Now()
	return &RoundInfo{
		GameRoundID: gameRoundID,
		UserID:      userID,
		Currency:    currency,
		GameDesc:    gameDesc,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// AppendAction adds an action to the round unless its ActionID is already
// present. Returns true when the action was appended.
func (r *RoundInfo) AppendAction(action RoundAction) bool {
	for _, existing := range r.Actions {
		if existing.ActionID == action.ActionID {
			return false
		}
	}
	r.Actions = append(r.Actions, action)
	return true
}

// NetCents returns the round's reported net movement: sum of wins minus sum of bets
func (r *RoundInfo) NetCents() int64 {
	var net int64
	for _, action := range r.Actions {
		switch action.Kind {
		case ActionWin:
			net += action.AmountCents
		case ActionBet:
			net -= action.AmountCents
		}
	}
	return net
}

// MarkProcessed flags the round as reconciled against the ledger
func (r *RoundInfo) MarkProcessed(timeProvider tport.TimeProvider) {
	r.Processed = true
	r.UpdatedAt = timeProvider.Now()
}

// RegisterRetry records a failed reconciliation attempt
func (r *RoundInfo) RegisterRetry(timeProvider tport.TimeProvider) {
	now := timeProvider.Now()
	r.Processed = false
	r.RetryCount++
	r.LastRetryAt = &now
	r.UpdatedAt = now
}

// ExceededAttempts reports whether the retry cap has been reached
func (r *RoundInfo) ExceededAttempts(maxAttempts int) bool {
	return r.RetryCount >= maxAttempts
}

// FlagForReview marks the round as a manual-intervention case
func (r *RoundInfo) FlagForReview(timeProvider tport.TimeProvider) {
	r.NeedsReview = true
	r.UpdatedAt = timeProvider.Now()
}
