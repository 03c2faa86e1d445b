package worker

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Task type names
const (
	TypeReconcileRound = "round:reconcile"
)

// ReconcileRoundPayload identifies the round to reconcile
type ReconcileRoundPayload struct {
	GameRoundID string `json:"gameRoundId"`
	UserID      uint64 `json:"userId"`
}

// NewReconcileRoundTask builds a reconcile task for a (round, user) pair
func NewReconcileRoundTask(gameRoundID string, userID uint64) (*asynq.Task, error) {
	data, err := json.Marshal(ReconcileRoundPayload{
		GameRoundID: gameRoundID,
		UserID:      userID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeReconcileRound, data), nil
}
