package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"

	errs "github.com/amirhossein-jamali/wallet-gateway/internal/domain/error"
	coreport "github.com/amirhossein-jamali/wallet-gateway/internal/domain/port/core"
	"github.com/amirhossein-jamali/wallet-gateway/internal/domain/port/usecase"
	"github.com/amirhossein-jamali/wallet-gateway/internal/domain/usecase/round"
	"github.com/amirhossein-jamali/wallet-gateway/internal/infrastructure/adapter/metrics"
)

// Worker processes round reconciliation tasks
type Worker struct {
	tracker usecase.RoundTrackerUseCase
	logger  coreport.Logger
	metrics *metrics.Metrics
}

// NewWorker creates a new worker
func NewWorker(tracker usecase.RoundTrackerUseCase, logger coreport.Logger, m *metrics.Metrics) *Worker {
	return &Worker{
		tracker: tracker,
		logger:  logger,
		metrics: m,
	}
}

// HandleReconcileRound runs one reconciliation pass for a round. The tracker
// schedules its own backoff retries, so a handled mismatch is a success from
// the queue's point of view.
func (w *Worker) HandleReconcileRound(ctx context.Context, t *asynq.Task) error {
	var p ReconcileRoundPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	outcome, err := w.tracker.Reconcile(ctx, p.GameRoundID, p.UserID)
	if err != nil {
		// A round that vanished is not retriable
		if errors.Is(err, errs.ErrRoundNotFound) {
			w.logger.Warn("Reconcile task for unknown round", map[string]any{
				"game_round_id": p.GameRoundID,
				"user_id":       p.UserID,
			})
			return fmt.Errorf("round not found: %w", asynq.SkipRetry)
		}
		return err
	}

	if w.metrics != nil {
		switch outcome {
		case usecase.ReconcileMatched:
			w.metrics.RoundsReconciled.Inc()
		case usecase.ReconcileRetryScheduled:
			w.metrics.RoundRetriesTotal.Inc()
		case usecase.ReconcileFlagged:
			w.metrics.RoundsFlagged.Inc()
		}
	}
	return nil
}

// ServerConfig bundles the worker's runtime settings
type ServerConfig struct {
	RedisOpt      asynq.RedisClientOpt
	Concurrency   int
	SweepSchedule string
	SweepLimit    int
}

// Server wraps the asynq server and the periodic sweep cron
type Server struct {
	srv     *asynq.Server
	mux     *asynq.ServeMux
	cron    *cron.Cron
	tracker *round.Tracker
	logger  coreport.Logger
	cfg     ServerConfig
}

// NewServer builds the worker server with its task mux and sweep schedule
func NewServer(cfg ServerConfig, tracker *round.Tracker, logger coreport.Logger, m *metrics.Metrics) *Server {
	srv := asynq.NewServer(
		cfg.RedisOpt,
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	worker := NewWorker(tracker, logger, m)
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeReconcileRound, worker.HandleReconcileRound)

	return &Server{
		srv:     srv,
		mux:     mux,
		cron:    cron.New(),
		tracker: tracker,
		logger:  logger,
		cfg:     cfg,
	}
}

// Start runs the task server and the periodic sweep. Blocks until the server
// stops.
func (s *Server) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.SweepSchedule, s.runSweep); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.cfg.SweepSchedule, err)
	}
	s.cron.Start()

	s.logger.Info("Worker started", map[string]any{
		"concurrency":    s.cfg.Concurrency,
		"sweep_schedule": s.cfg.SweepSchedule,
	})
	return s.srv.Run(s.mux)
}

// Shutdown stops the sweep cron and drains in-flight tasks
func (s *Server) Shutdown() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.srv.Shutdown()
}

// runSweep re-enqueues unprocessed rounds whose scheduled task was lost
func (s *Server) runSweep() {
	if err := s.tracker.Sweep(context.Background(), s.cfg.SweepLimit); err != nil {
		s.logger.Error("Round sweep failed", map[string]any{"error": err.Error()})
	}
}
