package port

import (
	"context"

	"staking_tracker/internal/domain/entity"
)

// WalletStore persists the tracked wallet list.
type WalletStore interface {
	ListWallets(ctx context.Context) ([]entity.WalletEntry, error)
	// SaveWallets upserts wallets keyed by lower-cased primary address and returns how many were new.
	SaveWallets(ctx context.Context, wallets []entity.WalletEntry) (int, error)
	// ReplaceWallets drops the tracked list and stores wallets in the given order.
	ReplaceWallets(ctx context.Context, wallets []entity.WalletEntry) error
	UpdateLabel(ctx context.Context, primaryAddress, label string) error
}

// SnapshotStore persists the latest snapshot per wallet.
type SnapshotStore interface {
	ListSnapshots(ctx context.Context) (map[string]entity.StakingSnapshot, error)
	// ReplaceSnapshots overwrites the stored snapshot of every address in the map.
	ReplaceSnapshots(ctx context.Context, snapshots map[string]entity.StakingSnapshot) error
}
