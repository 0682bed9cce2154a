package port

import (
	"context"

	"staking_tracker/internal/domain/entity"
)

// BatchAggregator produces one snapshot per wallet of a single scheduling batch.
type BatchAggregator interface {
	AggregateBatch(ctx context.Context, caller ContractCaller, wallets []entity.WalletEntry) (map[string]entity.StakingSnapshot, error)
}

// SnapshotEngine turns a wallet list into snapshots keyed by primary address as supplied.
type SnapshotEngine interface {
	Run(ctx context.Context, wallets []entity.WalletEntry, batchSize int, endpoint string) (map[string]entity.StakingSnapshot, error)
}

// TrackerService is the application facade used by the REST layer.
type TrackerService interface {
	Wallets(ctx context.Context) ([]entity.WalletEntry, error)
	// ImportWallets merges wallets into the tracked list, or swaps the list for them when replace is set.
	ImportWallets(ctx context.Context, wallets []entity.WalletEntry, replace bool) (imported int, total int, err error)
	UpdateLabel(ctx context.Context, primaryAddress, label string) error
	Refresh(ctx context.Context, endpoint string, batchSize int) (map[string]entity.StakingSnapshot, error)
	Snapshots(ctx context.Context, query string) ([]entity.WalletSnapshot, entity.SnapshotTotals, error)
	Snapshot(ctx context.Context, primaryAddress string) (*entity.StakingSnapshot, error)
}
