package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"staking_tracker/internal/app/port"
	"staking_tracker/internal/domain/entity"
	"staking_tracker/internal/pkg/logger"
	"staking_tracker/internal/pkg/metrics"
	"staking_tracker/internal/pkg/utils"
)

// ErrInvalidBatchSize is returned for a batch size below 1.
var ErrInvalidBatchSize = errors.New("batch size must be a positive integer")

// Scheduler implements port.SnapshotEngine: it splits the wallet list into
// batches and aggregates them one at a time against a single endpoint.
type Scheduler struct {
	provider   port.CallerProvider
	aggregator port.BatchAggregator
	pause      time.Duration
	logger     port.Logger
	metrics    *metrics.Metrics
}

func NewScheduler(provider port.CallerProvider, aggregator port.BatchAggregator, pause time.Duration, l port.Logger, m *metrics.Metrics) *Scheduler {
	if l == nil {
		l = logger.NewSlogAdapter()
	}
	return &Scheduler{provider: provider, aggregator: aggregator, pause: pause, logger: l, metrics: m}
}

// Run returns one snapshot per wallet keyed by the primary address exactly as supplied.
// Case-insensitive duplicates are not merged here.
//
// An unreachable endpoint aborts the run with an *entity.EndpointError. When ctx
// is done before the next batch starts, the snapshots gathered so far are
// returned together with the context error.
func (s *Scheduler) Run(ctx context.Context, wallets []entity.WalletEntry, batchSize int, endpoint string) (map[string]entity.StakingSnapshot, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBatchSize, batchSize)
	}
	started := time.Now()
	snapshots := make(map[string]entity.StakingSnapshot, len(wallets))
	if len(wallets) == 0 {
		return snapshots, nil
	}

	caller, err := s.provider.GetClient(ctx, endpoint)
	if err != nil {
		s.metrics.ObserveRun("endpoint_error", started)
		return nil, err
	}

	batches := utils.Chunk(wallets, batchSize)
	log := s.logger.With("rpc", caller.Endpoint())
	log.Info("Starting snapshot run",
		"wallets", len(wallets), "batches", len(batches), "batch_size", batchSize)

	for i, batch := range batches {
		if i > 0 && s.pause > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(s.pause):
			}
		}
		if err := ctx.Err(); err != nil {
			log.Warn("Snapshot run cancelled", "completed_batches", i, "batches", len(batches))
			s.metrics.ObserveRun("cancelled", started)
			return snapshots, err
		}

		result, err := s.aggregator.AggregateBatch(ctx, caller, batch)
		if err != nil {
			log.Error("Snapshot run aborted", "batch", i+1, "batches", len(batches), "error", err)
			outcome := "failed"
			if errors.Is(err, entity.ErrEndpointUnreachable) {
				outcome = "endpoint_error"
			}
			s.metrics.ObserveRun(outcome, started)
			return snapshots, fmt.Errorf("batch %d/%d: %w", i+1, len(batches), err)
		}
		for addr, snap := range result {
			snapshots[addr] = snap
		}
		log.Debug("Batch done", "batch", i+1, "batches", len(batches), "wallets", len(batch))
	}

	s.metrics.ObserveRun("ok", started)
	log.Info("Snapshot run finished", "wallets", len(snapshots), "duration", time.Since(started).String())
	return snapshots, nil
}
