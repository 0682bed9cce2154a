package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"staking_tracker/internal/app/port"
	"staking_tracker/internal/domain/entity"
	"staking_tracker/internal/pkg/logger"
	"staking_tracker/internal/pkg/utils"
)

// ErrRefreshInProgress is returned when a refresh is requested while another one runs.
var ErrRefreshInProgress = errors.New("snapshot refresh already in progress")

const snapshotsCacheKey = "snapshots"

type TrackerConfig struct {
	DefaultEndpoint  string
	DefaultBatchSize int
	CacheTTL         time.Duration
}

// trackerServiceImpl implements port.TrackerService on top of the stores and the snapshot engine.
type trackerServiceImpl struct {
	wallets   port.WalletStore
	snapshots port.SnapshotStore
	engine    port.SnapshotEngine
	cfg       TrackerConfig
	logger    port.Logger
	cache     *cache.Cache // latest snapshots keyed by lower-cased primary address

	refreshing sync.Mutex
	// snapshotsMu orders cache fills against store replacement so a read that
	// started before a refresh cannot cache the old rows after it.
	snapshotsMu sync.Mutex
}

func NewTrackerService(
	wallets port.WalletStore,
	snapshots port.SnapshotStore,
	engine port.SnapshotEngine,
	cfg TrackerConfig,
	l port.Logger,
) port.TrackerService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	if cfg.DefaultBatchSize <= 0 {
		cfg.DefaultBatchSize = 10
	}
	if l == nil {
		l = logger.NewSlogAdapter()
	}
	return &trackerServiceImpl{
		wallets:   wallets,
		snapshots: snapshots,
		engine:    engine,
		cfg:       cfg,
		logger:    l,
		cache:     cache.New(cfg.CacheTTL, 10*time.Minute),
	}
}

func (s *trackerServiceImpl) Wallets(ctx context.Context) ([]entity.WalletEntry, error) {
	return s.wallets.ListWallets(ctx)
}

// ImportWallets stores wallets. Duplicates within the input are dropped, first
// occurrence wins. Entries whose primary address is not a valid hex address are
// rejected. Without replace, wallets already tracked are updated in place and
// new ones appended; with replace the tracked list becomes exactly the input.
func (s *trackerServiceImpl) ImportWallets(ctx context.Context, wallets []entity.WalletEntry, replace bool) (int, int, error) {
	valid := make([]entity.WalletEntry, 0, len(wallets))
	for _, w := range entity.DedupeWallets(wallets) {
		if _, ok := utils.ParseAddress(w.PrimaryAddress); !ok {
			s.logger.Warn("Skipping wallet with invalid address", "address", w.PrimaryAddress)
			continue
		}
		w.PrimaryAddress = strings.TrimSpace(w.PrimaryAddress)
		w.DerivedAddress = strings.TrimSpace(w.DerivedAddress)
		valid = append(valid, w)
	}

	var imported int
	if replace {
		if err := s.wallets.ReplaceWallets(ctx, valid); err != nil {
			return 0, 0, fmt.Errorf("replace wallets: %w", err)
		}
		imported = len(valid)
	} else {
		var err error
		if imported, err = s.wallets.SaveWallets(ctx, valid); err != nil {
			return 0, 0, fmt.Errorf("save wallets: %w", err)
		}
	}
	all, err := s.wallets.ListWallets(ctx)
	if err != nil {
		return imported, 0, fmt.Errorf("list wallets: %w", err)
	}
	s.logger.Info("Wallets imported", "received", len(wallets), "imported", imported, "replace", replace, "total", len(all))
	return imported, len(all), nil
}

func (s *trackerServiceImpl) UpdateLabel(ctx context.Context, primaryAddress, label string) error {
	return s.wallets.UpdateLabel(ctx, utils.NormalizeAddress(primaryAddress), strings.TrimSpace(label))
}

// Refresh runs the engine over every tracked wallet and replaces the stored snapshots.
// Nothing is stored when the run fails.
func (s *trackerServiceImpl) Refresh(ctx context.Context, endpoint string, batchSize int) (map[string]entity.StakingSnapshot, error) {
	if !s.refreshing.TryLock() {
		return nil, ErrRefreshInProgress
	}
	defer s.refreshing.Unlock()

	if strings.TrimSpace(endpoint) == "" {
		endpoint = s.cfg.DefaultEndpoint
	}
	if batchSize == 0 {
		batchSize = s.cfg.DefaultBatchSize
	}

	wallets, err := s.wallets.ListWallets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}

	result, err := s.engine.Run(ctx, wallets, batchSize, endpoint)
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]entity.StakingSnapshot, len(result))
	for addr, snap := range result {
		byKey[utils.NormalizeAddress(addr)] = snap
	}
	s.snapshotsMu.Lock()
	defer s.snapshotsMu.Unlock()
	if err := s.snapshots.ReplaceSnapshots(ctx, byKey); err != nil {
		return nil, fmt.Errorf("store snapshots: %w", err)
	}
	s.cache.Delete(snapshotsCacheKey)
	return result, nil
}

func (s *trackerServiceImpl) latest(ctx context.Context) (map[string]entity.StakingSnapshot, error) {
	if cached, ok := s.cache.Get(snapshotsCacheKey); ok {
		if m, ok := cached.(map[string]entity.StakingSnapshot); ok {
			return m, nil
		}
	}
	s.snapshotsMu.Lock()
	defer s.snapshotsMu.Unlock()
	if cached, ok := s.cache.Get(snapshotsCacheKey); ok {
		if m, ok := cached.(map[string]entity.StakingSnapshot); ok {
			return m, nil
		}
	}
	m, err := s.snapshots.ListSnapshots(ctx)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	s.cache.SetDefault(snapshotsCacheKey, m)
	return m, nil
}

// Snapshots lists tracked wallets matching query together with their latest
// snapshots, and the totals over exactly those rows.
func (s *trackerServiceImpl) Snapshots(ctx context.Context, query string) ([]entity.WalletSnapshot, entity.SnapshotTotals, error) {
	wallets, err := s.wallets.ListWallets(ctx)
	if err != nil {
		return nil, entity.SnapshotTotals{}, fmt.Errorf("list wallets: %w", err)
	}
	latest, err := s.latest(ctx)
	if err != nil {
		return nil, entity.SnapshotTotals{}, err
	}

	rows := make([]entity.WalletSnapshot, 0, len(wallets))
	for _, w := range wallets {
		if !matches(w, query) {
			continue
		}
		row := entity.WalletSnapshot{Wallet: w}
		if snap, ok := latest[w.Key()]; ok {
			row.Snapshot = &snap
		}
		rows = append(rows, row)
	}
	return rows, Totals(rows), nil
}

func (s *trackerServiceImpl) Snapshot(ctx context.Context, primaryAddress string) (*entity.StakingSnapshot, error) {
	latest, err := s.latest(ctx)
	if err != nil {
		return nil, err
	}
	snap, ok := latest[utils.NormalizeAddress(primaryAddress)]
	if !ok {
		return nil, entity.ErrSnapshotNotFound
	}
	return &snap, nil
}

// matches is a case-insensitive substring search over label and both addresses.
func matches(w entity.WalletEntry, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(w.Label), q) ||
		strings.Contains(strings.ToLower(w.PrimaryAddress), q) ||
		strings.Contains(strings.ToLower(w.DerivedAddress), q)
}

// Totals sums every numeric field over rows. Rows without a snapshot count as zero.
func Totals(rows []entity.WalletSnapshot) entity.SnapshotTotals {
	var fields [8][]string
	for _, r := range rows {
		if r.Snapshot == nil {
			continue
		}
		for i, v := range []string{
			r.Snapshot.TotalStaked,
			r.Snapshot.MintPoolPrincipal,
			r.Snapshot.BondPayout,
			r.Snapshot.FixedTermPrincipal,
			r.Snapshot.AccruedReward,
			r.Snapshot.LiquidityBalance,
			r.Snapshot.GovernanceTokenBalance,
			r.Snapshot.LiquidGovernanceTokenBalance,
		} {
			fields[i] = append(fields[i], v)
		}
	}
	return entity.SnapshotTotals{
		Wallets:                      len(rows),
		TotalStaked:                  utils.SumUnits(fields[0]...),
		MintPoolPrincipal:            utils.SumUnits(fields[1]...),
		BondPayout:                   utils.SumUnits(fields[2]...),
		FixedTermPrincipal:           utils.SumUnits(fields[3]...),
		AccruedReward:                utils.SumUnits(fields[4]...),
		LiquidityBalance:             utils.SumUnits(fields[5]...),
		GovernanceTokenBalance:       utils.SumUnits(fields[6]...),
		LiquidGovernanceTokenBalance: utils.SumUnits(fields[7]...),
	}
}
