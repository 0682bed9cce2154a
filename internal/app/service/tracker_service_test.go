package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staking_tracker/internal/domain/entity"
	"staking_tracker/internal/pkg/logger"
)

type memoryWallets struct {
	items []entity.WalletEntry
}

func (m *memoryWallets) ListWallets(context.Context) ([]entity.WalletEntry, error) {
	return append([]entity.WalletEntry(nil), m.items...), nil
}

func (m *memoryWallets) SaveWallets(_ context.Context, wallets []entity.WalletEntry) (int, error) {
	added := 0
	for _, w := range wallets {
		found := false
		for i := range m.items {
			if m.items[i].Key() == w.Key() {
				m.items[i] = w
				found = true
			}
		}
		if !found {
			m.items = append(m.items, w)
			added++
		}
	}
	return added, nil
}

func (m *memoryWallets) ReplaceWallets(_ context.Context, wallets []entity.WalletEntry) error {
	m.items = append([]entity.WalletEntry(nil), wallets...)
	return nil
}

func (m *memoryWallets) UpdateLabel(_ context.Context, primary, label string) error {
	for i := range m.items {
		if m.items[i].Key() == primary {
			m.items[i].Label = label
			return nil
		}
	}
	return entity.ErrWalletNotFound
}

type memorySnapshots struct {
	items map[string]entity.StakingSnapshot
	lists int
	// afterList runs once the rows are copied, before they are returned.
	afterList func()
}

func (m *memorySnapshots) ListSnapshots(context.Context) (map[string]entity.StakingSnapshot, error) {
	m.lists++
	out := make(map[string]entity.StakingSnapshot, len(m.items))
	for k, v := range m.items {
		out[k] = v
	}
	if hook := m.afterList; hook != nil {
		m.afterList = nil
		hook()
	}
	return out, nil
}

func (m *memorySnapshots) ReplaceSnapshots(_ context.Context, snapshots map[string]entity.StakingSnapshot) error {
	if m.items == nil {
		m.items = map[string]entity.StakingSnapshot{}
	}
	for k, v := range snapshots {
		m.items[k] = v
	}
	return nil
}

type engineFunc func(ctx context.Context, wallets []entity.WalletEntry, batchSize int, endpoint string) (map[string]entity.StakingSnapshot, error)

func (f engineFunc) Run(ctx context.Context, wallets []entity.WalletEntry, batchSize int, endpoint string) (map[string]entity.StakingSnapshot, error) {
	return f(ctx, wallets, batchSize, endpoint)
}

func snapshotOf(total string) entity.StakingSnapshot {
	return entity.StakingSnapshot{
		TotalStaked:                  total,
		MintPoolPrincipal:            total,
		BondPayout:                   "0.0",
		FixedTermPrincipal:           "0.0",
		AccruedReward:                "0.5",
		LiquidityBalance:             "0.0",
		GovernanceTokenBalance:       "0.0",
		LiquidGovernanceTokenBalance: "0.0",
	}
}

func TestImportWalletsDedupesAndValidates(t *testing.T) {
	wallets := &memoryWallets{items: []entity.WalletEntry{{PrimaryAddress: walletA, Label: "old"}}}
	svc := NewTrackerService(wallets, &memorySnapshots{}, nil, TrackerConfig{}, logger.Nop())

	imported, total, err := svc.ImportWallets(context.Background(), []entity.WalletEntry{
		{PrimaryAddress: " " + walletB + " ", Label: "first"},
		{PrimaryAddress: "0X1000000000000000000000000000000000000003", Label: "duplicate"},
		{PrimaryAddress: "garbage"},
		{PrimaryAddress: ""},
	}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	assert.Equal(t, 2, total)
	assert.Equal(t, walletB, wallets.items[1].PrimaryAddress)
	assert.Equal(t, "first", wallets.items[1].Label)
}

func TestImportWalletsReplaceSwapsList(t *testing.T) {
	wallets := &memoryWallets{items: []entity.WalletEntry{
		{PrimaryAddress: walletA, Label: "old"},
		{PrimaryAddress: walletB},
	}}
	svc := NewTrackerService(wallets, &memorySnapshots{}, nil, TrackerConfig{}, logger.Nop())

	imported, total, err := svc.ImportWallets(context.Background(), []entity.WalletEntry{
		{PrimaryAddress: walletB, Label: "kept"},
		{PrimaryAddress: "garbage"},
	}, true)
	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	assert.Equal(t, 1, total)
	require.Len(t, wallets.items, 1)
	assert.Equal(t, walletB, wallets.items[0].PrimaryAddress)
	assert.Equal(t, "kept", wallets.items[0].Label)
}

func TestUpdateLabelNormalisesAddress(t *testing.T) {
	wallets := &memoryWallets{items: []entity.WalletEntry{{PrimaryAddress: walletA}}}
	svc := NewTrackerService(wallets, &memorySnapshots{}, nil, TrackerConfig{}, logger.Nop())

	require.NoError(t, svc.UpdateLabel(context.Background(), "  0X1000000000000000000000000000000000000001 ", " main "))
	assert.Equal(t, "main", wallets.items[0].Label)

	err := svc.UpdateLabel(context.Background(), walletB, "x")
	assert.ErrorIs(t, err, entity.ErrWalletNotFound)
}

func TestRefreshStoresSnapshotsUnderLowerCaseKeys(t *testing.T) {
	mixed := "0xAbCd000000000000000000000000000000000001"
	wallets := &memoryWallets{items: []entity.WalletEntry{{PrimaryAddress: mixed}}}
	snapshots := &memorySnapshots{}

	var gotEndpoint string
	var gotBatch int
	engine := engineFunc(func(_ context.Context, ws []entity.WalletEntry, batchSize int, endpoint string) (map[string]entity.StakingSnapshot, error) {
		gotEndpoint, gotBatch = endpoint, batchSize
		return map[string]entity.StakingSnapshot{ws[0].PrimaryAddress: snapshotOf("1.0")}, nil
	})
	svc := NewTrackerService(wallets, snapshots, engine, TrackerConfig{DefaultEndpoint: "http://default", DefaultBatchSize: 7}, logger.Nop())

	out, err := svc.Refresh(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Contains(t, out, mixed)
	assert.Equal(t, "http://default", gotEndpoint)
	assert.Equal(t, 7, gotBatch)
	assert.Contains(t, snapshots.items, "0xabcd000000000000000000000000000000000001")

	snap, err := svc.Snapshot(context.Background(), mixed)
	require.NoError(t, err)
	assert.Equal(t, "1.0", snap.TotalStaked)
}

func TestRefreshFailureKeepsStoredSnapshots(t *testing.T) {
	wallets := &memoryWallets{items: []entity.WalletEntry{{PrimaryAddress: walletA}}}
	snapshots := &memorySnapshots{items: map[string]entity.StakingSnapshot{walletA: snapshotOf("2.0")}}
	runErr := &entity.EndpointError{Endpoint: "http://down", Op: "dial", Err: errors.New("refused")}
	engine := engineFunc(func(context.Context, []entity.WalletEntry, int, string) (map[string]entity.StakingSnapshot, error) {
		return nil, runErr
	})
	svc := NewTrackerService(wallets, snapshots, engine, TrackerConfig{}, logger.Nop())

	_, err := svc.Refresh(context.Background(), "http://down", 5)
	require.ErrorIs(t, err, entity.ErrEndpointUnreachable)
	assert.Equal(t, "2.0", snapshots.items[walletA].TotalStaked)
}

func TestRefreshRejectsConcurrentRuns(t *testing.T) {
	wallets := &memoryWallets{items: []entity.WalletEntry{{PrimaryAddress: walletA}}}
	started := make(chan struct{})
	release := make(chan struct{})
	engine := engineFunc(func(context.Context, []entity.WalletEntry, int, string) (map[string]entity.StakingSnapshot, error) {
		close(started)
		<-release
		return map[string]entity.StakingSnapshot{}, nil
	})
	svc := NewTrackerService(wallets, &memorySnapshots{}, engine, TrackerConfig{}, logger.Nop())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := svc.Refresh(context.Background(), "", 1)
		assert.NoError(t, err)
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("first refresh did not start")
	}
	_, err := svc.Refresh(context.Background(), "", 1)
	assert.ErrorIs(t, err, ErrRefreshInProgress)

	close(release)
	wg.Wait()
}

func TestRefreshDuringSnapshotReadDoesNotCacheOldRows(t *testing.T) {
	ctx := context.Background()
	wallets := &memoryWallets{items: []entity.WalletEntry{{PrimaryAddress: walletA}}}
	snapshots := &memorySnapshots{items: map[string]entity.StakingSnapshot{walletA: snapshotOf("1.0")}}

	listed := make(chan struct{})
	release := make(chan struct{})
	snapshots.afterList = func() {
		close(listed)
		<-release
	}
	engine := engineFunc(func(context.Context, []entity.WalletEntry, int, string) (map[string]entity.StakingSnapshot, error) {
		return map[string]entity.StakingSnapshot{walletA: snapshotOf("2.0")}, nil
	})
	svc := NewTrackerService(wallets, snapshots, engine, TrackerConfig{}, logger.Nop())

	readDone := make(chan error, 1)
	go func() {
		_, err := svc.Snapshot(ctx, walletA)
		readDone <- err
	}()
	select {
	case <-listed:
	case <-time.After(5 * time.Second):
		t.Fatal("snapshot read did not reach the store")
	}

	refreshDone := make(chan error, 1)
	go func() {
		_, err := svc.Refresh(ctx, "", 1)
		refreshDone <- err
	}()
	// let the refresh reach the store while the read still holds the old rows
	time.Sleep(50 * time.Millisecond)
	close(release)

	require.NoError(t, <-readDone)
	require.NoError(t, <-refreshDone)

	snap, err := svc.Snapshot(ctx, walletA)
	require.NoError(t, err)
	assert.Equal(t, "2.0", snap.TotalStaked)
}

func TestSnapshotsFiltersAndTotals(t *testing.T) {
	wallets := &memoryWallets{items: []entity.WalletEntry{
		{PrimaryAddress: walletA, Label: "Treasury"},
		{PrimaryAddress: walletB, DerivedAddress: derivedA, Label: "ops"},
		{PrimaryAddress: "0x1000000000000000000000000000000000000009", Label: "new"},
	}}
	snapshots := &memorySnapshots{items: map[string]entity.StakingSnapshot{
		walletA: snapshotOf("1.5"),
		walletB: snapshotOf("2.25"),
	}}
	svc := NewTrackerService(wallets, snapshots, nil, TrackerConfig{}, logger.Nop())

	rows, totals, err := svc.Snapshots(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Nil(t, rows[2].Snapshot)
	assert.Equal(t, 3, totals.Wallets)
	assert.Equal(t, "3.75", totals.TotalStaked)
	assert.Equal(t, "1.0", totals.AccruedReward)
	assert.Equal(t, "0.0", totals.BondPayout)

	rows, totals, err = svc.Snapshots(context.Background(), "TREAS")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, walletA, rows[0].Wallet.PrimaryAddress)
	assert.Equal(t, "1.5", totals.TotalStaked)

	rows, _, err = svc.Snapshots(context.Background(), "0x2000")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, walletB, rows[0].Wallet.PrimaryAddress)

	assert.Equal(t, 1, snapshots.lists, "snapshot reads should be served from cache")
}

func TestSnapshotNotFound(t *testing.T) {
	svc := NewTrackerService(&memoryWallets{}, &memorySnapshots{}, nil, TrackerConfig{}, logger.Nop())
	_, err := svc.Snapshot(context.Background(), walletA)
	assert.ErrorIs(t, err, entity.ErrSnapshotNotFound)
}
