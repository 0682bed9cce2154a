package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"staking_tracker/internal/domain/entity"
	"staking_tracker/internal/pkg/utils"
)

// Open creates the database file if needed, applies migrations and returns the handle.
// The handle allows a single connection; SQLite serialises writers anyway.
func Open(ctx context.Context, dbPath string) (*sql.DB, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	if err := NewMigrator(db).Up(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return db, nil
}

// Store keeps the tracked wallet list and the latest snapshot per wallet.
// It implements port.WalletStore and port.SnapshotStore.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// ListWallets returns wallets in import order.
func (s *Store) ListWallets(ctx context.Context) ([]entity.WalletEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT primary_address, derived_address, label, note, split
		FROM wallets
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query wallets: %w", err)
	}
	defer rows.Close()

	out := make([]entity.WalletEntry, 0)
	for rows.Next() {
		var w entity.WalletEntry
		if err := rows.Scan(&w.PrimaryAddress, &w.DerivedAddress, &w.Label, &w.Note, &w.Split); err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallets: %w", err)
	}
	return out, nil
}

// SaveWallets upserts wallets keyed by lower-cased primary address. Existing
// entries keep their position; new ones are appended. Returns the number of new entries.
func (s *Store) SaveWallets(ctx context.Context, wallets []entity.WalletEntry) (added int, err error) {
	if len(wallets) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx save wallets: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var next int64
	if err = tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(position), 0) FROM wallets`).Scan(&next); err != nil {
		return 0, fmt.Errorf("query wallet position: %w", err)
	}

	now := s.now().Unix()
	for _, w := range wallets {
		key := w.Key()
		if key == "" {
			continue
		}
		var exists int
		err = tx.QueryRowContext(ctx, `SELECT 1 FROM wallets WHERE wallet_key = ?`, key).Scan(&exists)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			next++
			added++
			_, err = tx.ExecContext(ctx, `
				INSERT INTO wallets(wallet_key, primary_address, derived_address, label, note, split, position, created_at, updated_at)
				VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, key, strings.TrimSpace(w.PrimaryAddress), strings.TrimSpace(w.DerivedAddress), w.Label, w.Note, w.Split, next, now, now)
			if err != nil {
				return 0, fmt.Errorf("insert wallet %s: %w", key, err)
			}
		case err != nil:
			return 0, fmt.Errorf("lookup wallet %s: %w", key, err)
		default:
			_, err = tx.ExecContext(ctx, `
				UPDATE wallets
				SET derived_address = ?, label = ?, note = ?, split = ?, updated_at = ?
				WHERE wallet_key = ?
			`, strings.TrimSpace(w.DerivedAddress), w.Label, w.Note, w.Split, now, key)
			if err != nil {
				return 0, fmt.Errorf("update wallet %s: %w", key, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit wallets: %w", err)
	}
	return added, nil
}

// ReplaceWallets swaps the tracked list for wallets in one transaction.
// Positions restart from 1; a repeated key keeps its first occurrence.
func (s *Store) ReplaceWallets(ctx context.Context, wallets []entity.WalletEntry) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx replace wallets: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM wallets`); err != nil {
		return fmt.Errorf("clear wallets: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO wallets(wallet_key, primary_address, derived_address, label, note, split, position, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(wallet_key) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("prepare wallet insert: %w", err)
	}
	defer stmt.Close()

	now := s.now().Unix()
	var position int64
	for _, w := range wallets {
		key := w.Key()
		if key == "" {
			continue
		}
		position++
		if _, err = stmt.ExecContext(ctx, key, strings.TrimSpace(w.PrimaryAddress), strings.TrimSpace(w.DerivedAddress),
			w.Label, w.Note, w.Split, position, now, now); err != nil {
			return fmt.Errorf("insert wallet %s: %w", key, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit wallets: %w", err)
	}
	return nil
}

// UpdateLabel sets the label of one wallet. The address is matched case-insensitively.
func (s *Store) UpdateLabel(ctx context.Context, primaryAddress, label string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE wallets SET label = ?, updated_at = ? WHERE wallet_key = ?
	`, label, s.now().Unix(), utils.NormalizeAddress(primaryAddress))
	if err != nil {
		return fmt.Errorf("update label: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update label: %w", err)
	}
	if n == 0 {
		return entity.ErrWalletNotFound
	}
	return nil
}

// ListSnapshots returns the stored snapshots keyed by lower-cased primary address.
func (s *Store) ListSnapshots(ctx context.Context) (map[string]entity.StakingSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT wallet_key, total_staked, mint_principal, bond_payout, fixed_principal,
			accrued_reward, liquidity_balance, gov_balance, liquid_gov_balance,
			total_source, fetched_at
		FROM snapshots
	`)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	out := make(map[string]entity.StakingSnapshot)
	for rows.Next() {
		var (
			key       string
			snap      entity.StakingSnapshot
			fetchedAt int64
		)
		if err := rows.Scan(&key,
			&snap.TotalStaked, &snap.MintPoolPrincipal, &snap.BondPayout, &snap.FixedTermPrincipal,
			&snap.AccruedReward, &snap.LiquidityBalance, &snap.GovernanceTokenBalance, &snap.LiquidGovernanceTokenBalance,
			&snap.TotalStakedSource, &fetchedAt,
		); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snap.FetchedAt = time.UnixMilli(fetchedAt).UTC()
		out[key] = snap
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return out, nil
}

// ReplaceSnapshots overwrites the stored snapshot of every wallet in the map. Values are
// replaced as a whole, never merged with what was stored before.
func (s *Store) ReplaceSnapshots(ctx context.Context, snapshots map[string]entity.StakingSnapshot) (err error) {
	if len(snapshots) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx replace snapshots: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshots(
			wallet_key, total_staked, mint_principal, bond_payout, fixed_principal,
			accrued_reward, liquidity_balance, gov_balance, liquid_gov_balance,
			total_source, fetched_at
		)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(wallet_key) DO UPDATE SET
			total_staked=excluded.total_staked,
			mint_principal=excluded.mint_principal,
			bond_payout=excluded.bond_payout,
			fixed_principal=excluded.fixed_principal,
			accrued_reward=excluded.accrued_reward,
			liquidity_balance=excluded.liquidity_balance,
			gov_balance=excluded.gov_balance,
			liquid_gov_balance=excluded.liquid_gov_balance,
			total_source=excluded.total_source,
			fetched_at=excluded.fetched_at
	`)
	if err != nil {
		return fmt.Errorf("prepare upsert snapshots: %w", err)
	}
	defer stmt.Close()

	for addr, snap := range snapshots {
		_, err = stmt.ExecContext(ctx,
			utils.NormalizeAddress(addr),
			snap.TotalStaked, snap.MintPoolPrincipal, snap.BondPayout, snap.FixedTermPrincipal,
			snap.AccruedReward, snap.LiquidityBalance, snap.GovernanceTokenBalance, snap.LiquidGovernanceTokenBalance,
			snap.TotalStakedSource, snap.FetchedAt.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("upsert snapshot %s: %w", addr, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshots: %w", err)
	}
	return nil
}
