package worker

import (
	"context"

	"github.com/hibiken/asynq"

	coreport "github.com/amirhossein-jamali/wallet-gateway/internal/domain/port/core"
)

// AsynqScheduler enqueues reconcile tasks on the Redis-backed task queue.
// Implements the ReconcileScheduler port.
type AsynqScheduler struct {
	client *asynq.Client
	logger coreport.Logger
}

// NewAsynqScheduler creates a scheduler backed by an asynq client
func NewAsynqScheduler(redisOpt asynq.RedisClientOpt, logger coreport.Logger) *AsynqScheduler {
	return &AsynqScheduler{
		client: asynq.NewClient(redisOpt),
		logger: logger,
	}
}

// Schedule enqueues a reconcile pass, delayed by the backoff when retrying.
// Reconciliation is idempotent, so enqueueing the same round twice is
// harmless.
func (s *AsynqScheduler) Schedule(ctx context.Context, gameRoundID string, userID uint64, delay coreport.Duration) error {
	task, err := NewReconcileRoundTask(gameRoundID, userID)
	if err != nil {
		return err
	}

	opts := []asynq.Option{asynq.Queue("default")}
	if delay > 0 {
		opts = append(opts, asynq.ProcessIn(delay.Std()))
	}

	info, err := s.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return err
	}

	s.logger.Debug("Reconcile task enqueued", map[string]any{
		"task_id":       info.ID,
		"game_round_id": gameRoundID,
		"user_id":       userID,
		"delay":         delay.Std().String(),
	})
	return nil
}

// Close releases the underlying client connection
func (s *AsynqScheduler) Close() error {
	return s.client.Close()
}
