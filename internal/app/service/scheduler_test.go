package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staking_tracker/internal/app/port"
	"staking_tracker/internal/domain/entity"
	"staking_tracker/internal/pkg/logger"
)

// recordingAggregator answers every wallet with a snapshot carrying its batch number.
type recordingAggregator struct {
	mu      sync.Mutex
	batches [][]entity.WalletEntry
	failAt  int // 1-based batch number, 0 disables
	err     error
	onBatch func(n int)
}

func (r *recordingAggregator) AggregateBatch(_ context.Context, _ port.ContractCaller, wallets []entity.WalletEntry) (map[string]entity.StakingSnapshot, error) {
	r.mu.Lock()
	r.batches = append(r.batches, wallets)
	n := len(r.batches)
	r.mu.Unlock()

	if r.onBatch != nil {
		r.onBatch(n)
	}
	if n == r.failAt {
		return nil, r.err
	}
	out := make(map[string]entity.StakingSnapshot, len(wallets))
	for _, w := range wallets {
		out[w.PrimaryAddress] = entity.StakingSnapshot{TotalStaked: fmt.Sprintf("%d.0", n)}
	}
	return out, nil
}

func walletList(n int) []entity.WalletEntry {
	out := make([]entity.WalletEntry, n)
	for i := range out {
		out[i] = entity.WalletEntry{PrimaryAddress: fmt.Sprintf("0x%040x", i+1)}
	}
	return out
}

func TestSchedulerPartitionsWallets(t *testing.T) {
	tests := []struct {
		wallets     int
		batchSize   int
		wantBatches int
	}{
		{wallets: 1, batchSize: 1, wantBatches: 1},
		{wallets: 10, batchSize: 3, wantBatches: 4},
		{wallets: 10, batchSize: 10, wantBatches: 1},
		{wallets: 10, batchSize: 50, wantBatches: 1},
		{wallets: 25, batchSize: 5, wantBatches: 5},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_by_%d", tt.wallets, tt.batchSize), func(t *testing.T) {
			agg := &recordingAggregator{}
			s := NewScheduler(&staticProvider{}, agg, 0, logger.Nop(), nil)
			wallets := walletList(tt.wallets)

			out, err := s.Run(context.Background(), wallets, tt.batchSize, "")
			require.NoError(t, err)
			require.Len(t, agg.batches, tt.wantBatches)
			require.Len(t, out, tt.wallets)

			var seen []entity.WalletEntry
			for i, b := range agg.batches {
				assert.LessOrEqual(t, len(b), tt.batchSize)
				if i < len(agg.batches)-1 {
					assert.Len(t, b, tt.batchSize)
				}
				seen = append(seen, b...)
			}
			assert.Equal(t, wallets, seen)
		})
	}
}

func TestSchedulerKeysByAddressAsSupplied(t *testing.T) {
	wallets := []entity.WalletEntry{
		{PrimaryAddress: "0xAbCd000000000000000000000000000000000001"},
		{PrimaryAddress: "0xabcd000000000000000000000000000000000001"},
	}
	s := NewScheduler(&staticProvider{}, &recordingAggregator{}, 0, logger.Nop(), nil)

	out, err := s.Run(context.Background(), wallets, 1, "")
	require.NoError(t, err)
	assert.Len(t, out, 2)
	assert.Contains(t, out, wallets[0].PrimaryAddress)
	assert.Contains(t, out, wallets[1].PrimaryAddress)
}

func TestSchedulerRejectsInvalidBatchSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		provider := &staticProvider{}
		s := NewScheduler(provider, &recordingAggregator{}, 0, logger.Nop(), nil)

		_, err := s.Run(context.Background(), walletList(3), size, "")
		require.ErrorIs(t, err, ErrInvalidBatchSize)
		assert.Empty(t, provider.asked, "no endpoint should be dialled")
	}
}

func TestSchedulerEmptyWalletList(t *testing.T) {
	provider := &staticProvider{err: errors.New("must not dial")}
	s := NewScheduler(provider, &recordingAggregator{}, 0, logger.Nop(), nil)

	out, err := s.Run(context.Background(), nil, 10, "http://rpc")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Empty(t, provider.asked)
}

func TestSchedulerEndpointFailureIsFatal(t *testing.T) {
	dialErr := &entity.EndpointError{Endpoint: "http://down", Op: "dial", Err: errors.New("connection refused")}
	agg := &recordingAggregator{}
	s := NewScheduler(&staticProvider{err: dialErr}, agg, 0, logger.Nop(), nil)

	out, err := s.Run(context.Background(), walletList(4), 2, "http://down")
	require.ErrorIs(t, err, entity.ErrEndpointUnreachable)
	assert.Nil(t, out)
	assert.Empty(t, agg.batches)
}

func TestSchedulerAbortsOnBatchError(t *testing.T) {
	agg := &recordingAggregator{
		failAt: 2,
		err:    &entity.EndpointError{Endpoint: "http://rpc", Op: "eth_call", Err: errors.New("connection reset")},
	}
	s := NewScheduler(&staticProvider{}, agg, 0, logger.Nop(), nil)

	out, err := s.Run(context.Background(), walletList(6), 2, "http://rpc")
	require.ErrorIs(t, err, entity.ErrEndpointUnreachable)
	assert.Contains(t, err.Error(), "batch 2/3")
	assert.Len(t, agg.batches, 2, "no batch should start after the failure")
	assert.Len(t, out, 2)
}

func TestSchedulerUsesRequestedEndpoint(t *testing.T) {
	provider := &staticProvider{}
	s := NewScheduler(provider, &recordingAggregator{}, 0, logger.Nop(), nil)

	_, err := s.Run(context.Background(), walletList(2), 5, "http://custom")
	require.NoError(t, err)
	assert.Equal(t, []string{"http://custom"}, provider.asked)
}

func TestSchedulerStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	agg := &recordingAggregator{onBatch: func(n int) {
		if n == 1 {
			cancel()
		}
	}}
	s := NewScheduler(&staticProvider{}, agg, time.Hour, logger.Nop(), nil)

	done := make(chan struct{})
	var (
		out map[string]entity.StakingSnapshot
		err error
	)
	go func() {
		defer close(done)
		out, err = s.Run(ctx, walletList(10), 2, "")
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after cancellation")
	}
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, agg.batches, 1)
	assert.Len(t, out, 2)
}
