package service

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"staking_tracker/internal/app/port"
	"staking_tracker/internal/app/totalstake"
	"staking_tracker/internal/domain/entity"
	"staking_tracker/internal/infrastructure/abicodec"
	"staking_tracker/internal/infrastructure/multicall"
	"staking_tracker/internal/pkg/logger"
	"staking_tracker/internal/pkg/metrics"
	"staking_tracker/internal/pkg/utils"
)

// StakingDecimals is the denomination of every staking-related figure.
const StakingDecimals = 9

// TotalPolicy decides what TotalStaked shows when the authoritative query yields zero.
type TotalPolicy string

const (
	// TotalPolicyVerbatim reports the authoritative value as is, zero included.
	TotalPolicyVerbatim TotalPolicy = "verbatim"
	// TotalPolicyFallbackSum replaces a zero authoritative value with
	// mint principal + bond payout + fixed-term principal.
	TotalPolicyFallbackSum TotalPolicy = "fallback-sum"
)

type AggregatorConfig struct {
	Contracts             entity.ContractSet
	ChunkSize             int
	MaxRecordsPerContract int
	TotalQueryConcurrency int
	TotalPolicy           TotalPolicy
	FixedTermEnabled      bool
}

// StakingAggregator implements port.BatchAggregator.
type StakingAggregator struct {
	desc    *abicodec.Descriptors
	cfg     AggregatorConfig
	querier *totalstake.Querier
	logger  port.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	multicall        common.Address
	mintPools        []common.Address
	bondPools        []common.Address
	fixedTermPool    common.Address
	hasFixedTerm     bool
	reward           common.Address
	liquidity        common.Address
	govToken         common.Address
	liquidGovToken   common.Address
	govDecimals      uint8
	liquidGovDecimal uint8
}

// NewStakingAggregator resolves the contract set once. Addresses must already be valid.
func NewStakingAggregator(
	desc *abicodec.Descriptors,
	cfg AggregatorConfig,
	querier *totalstake.Querier,
	l port.Logger,
	m *metrics.Metrics,
) (*StakingAggregator, error) {
	if cfg.MaxRecordsPerContract <= 0 {
		cfg.MaxRecordsPerContract = 500
	}
	if cfg.TotalQueryConcurrency <= 0 {
		cfg.TotalQueryConcurrency = 1
	}
	switch cfg.TotalPolicy {
	case "":
		cfg.TotalPolicy = TotalPolicyVerbatim
	case TotalPolicyVerbatim, TotalPolicyFallbackSum:
	default:
		return nil, fmt.Errorf("unknown total policy %q", cfg.TotalPolicy)
	}

	if l == nil {
		l = logger.NewSlogAdapter()
	}

	c := cfg.Contracts
	a := &StakingAggregator{
		desc:             desc,
		cfg:              cfg,
		querier:          querier,
		logger:           l,
		metrics:          m,
		now:              time.Now,
		multicall:        utils.AddressOrZero(c.Multicall3),
		reward:           utils.AddressOrZero(c.RewardContract),
		liquidity:        utils.AddressOrZero(c.LiquidityContract),
		govToken:         utils.AddressOrZero(c.GovernanceToken.Address),
		liquidGovToken:   utils.AddressOrZero(c.LiquidGovToken.Address),
		govDecimals:      c.GovernanceToken.Decimals,
		liquidGovDecimal: c.LiquidGovToken.Decimals,
	}
	for _, p := range c.MintPools {
		a.mintPools = append(a.mintPools, utils.AddressOrZero(p))
	}
	for _, p := range c.BondPools {
		a.bondPools = append(a.bondPools, utils.AddressOrZero(p))
	}
	if addr, ok := utils.ParseAddress(c.FixedTermPool); ok && cfg.FixedTermEnabled {
		a.fixedTermPool = addr
		a.hasFixedTerm = true
	}
	return a, nil
}

// walletFigures accumulates the raw integers of one wallet across the phases.
type walletFigures struct {
	entry      entity.WalletEntry
	primary    common.Address
	derived    common.Address
	valid      bool
	hasDerived bool

	liquidity        *big.Int
	reward           *big.Int
	govBalance       *big.Int
	liquidGovBalance *big.Int

	mintCounts []uint64
	bondCounts []uint64
	fixedCount uint64

	mintPrincipal  *big.Int
	bondPayout     *big.Int
	fixedPrincipal *big.Int

	total totalstake.Extraction
}

// AggregateBatch produces one snapshot per wallet, keyed by the primary address as supplied.
//
// The batch runs in three stages: one multicall for every summary figure, one
// multicall for every stake and bond record, then one direct total query per
// wallet. Sub-call failures become zeros. Only an unreachable endpoint or a done
// context aborts the batch.
func (a *StakingAggregator) AggregateBatch(
	ctx context.Context,
	caller port.ContractCaller,
	wallets []entity.WalletEntry,
) (map[string]entity.StakingSnapshot, error) {
	figures := a.prepare(wallets)
	exec := multicall.NewExecutor(caller, a.desc, multicall.Options{
		Address:   a.multicall,
		ChunkSize: a.cfg.ChunkSize,
		Logger:    a.logger,
		Metrics:   a.metrics,
	})

	summary := a.gatherSummary(figures)
	results, err := exec.Execute(ctx, summary.calls)
	if err != nil {
		return nil, fmt.Errorf("summary phase: %w", err)
	}
	a.foldSummary(figures, summary, results)

	detail := a.gatherDetail(figures)
	if detail.len() > 0 {
		results, err = exec.Execute(ctx, detail.calls)
		if err != nil {
			return nil, fmt.Errorf("detail phase: %w", err)
		}
		a.foldDetail(figures, detail, results)
	}

	if err := a.queryTotals(ctx, caller, figures); err != nil {
		return nil, fmt.Errorf("total phase: %w", err)
	}

	fetchedAt := a.now().UTC()
	out := make(map[string]entity.StakingSnapshot, len(figures))
	for _, f := range figures {
		out[f.entry.PrimaryAddress] = a.merge(f, fetchedAt)
	}
	a.logger.Debug("Batch aggregated",
		"wallets", len(figures), "summary_calls", summary.len(), "detail_calls", detail.len())
	return out, nil
}

func (a *StakingAggregator) prepare(wallets []entity.WalletEntry) []*walletFigures {
	figures := make([]*walletFigures, len(wallets))
	for i, w := range wallets {
		f := &walletFigures{
			entry:            w,
			liquidity:        new(big.Int),
			reward:           new(big.Int),
			govBalance:       new(big.Int),
			liquidGovBalance: new(big.Int),
			mintCounts:       make([]uint64, len(a.mintPools)),
			bondCounts:       make([]uint64, len(a.bondPools)),
			mintPrincipal:    new(big.Int),
			bondPayout:       new(big.Int),
			fixedPrincipal:   new(big.Int),
			total:            totalstake.Extraction{Value: new(big.Int), Rule: totalstake.RuleNone},
		}
		f.primary, f.valid = utils.ParseAddress(w.PrimaryAddress)
		if !f.valid {
			a.logger.Warn("Skipping wallet with malformed primary address", "wallet", w.PrimaryAddress)
		}
		f.derived, f.hasDerived = utils.ParseAddress(w.DerivedAddress)
		if !f.hasDerived && w.DerivedAddress != "" {
			a.logger.Warn("Ignoring malformed derived address", "wallet", w.PrimaryAddress, "derived", w.DerivedAddress)
		}
		figures[i] = f
	}
	return figures
}

func (a *StakingAggregator) encodeInto(plan *callPlan, s slot, target common.Address, args ...any) {
	contract, method, _ := methodFor(a.desc, s.kind)
	data, err := abicodec.Encode(contract, method, args...)
	if err != nil {
		a.logger.Error("Failed to encode call", "call", s.kind.String(), "error", err)
		return
	}
	plan.add(s, target, data)
}

func (a *StakingAggregator) gatherSummary(figures []*walletFigures) *callPlan {
	plan := &callPlan{}
	for i, f := range figures {
		if !f.valid {
			continue
		}
		a.encodeInto(plan, slot{wallet: i, kind: slotLiquidity}, a.liquidity, f.primary)
		a.encodeInto(plan, slot{wallet: i, kind: slotReward}, a.reward, f.primary)
		if f.hasDerived {
			a.encodeInto(plan, slot{wallet: i, kind: slotGovBalance}, a.govToken, f.derived)
			a.encodeInto(plan, slot{wallet: i, kind: slotLiquidGovBalance}, a.liquidGovToken, f.derived)
		}
		for c, pool := range a.mintPools {
			a.encodeInto(plan, slot{wallet: i, kind: slotMintCount, contract: c}, pool, f.primary)
		}
		for c, pool := range a.bondPools {
			a.encodeInto(plan, slot{wallet: i, kind: slotBondCount, contract: c}, pool, f.primary)
		}
		if a.hasFixedTerm {
			a.encodeInto(plan, slot{wallet: i, kind: slotFixedCount}, a.fixedTermPool, f.primary)
		}
	}
	return plan
}

func (a *StakingAggregator) foldSummary(figures []*walletFigures, plan *callPlan, results []entity.CallResult) {
	for i, s := range plan.slots {
		f := figures[s.wallet]
		v := decodeSlot(a.desc, a.logger, s, results[i], f.entry.PrimaryAddress)
		switch s.kind {
		case slotLiquidity:
			f.liquidity = v
		case slotReward:
			f.reward = v
		case slotGovBalance:
			f.govBalance = v
		case slotLiquidGovBalance:
			f.liquidGovBalance = v
		case slotMintCount:
			f.mintCounts[s.contract] = a.clampCount(f, s, v)
		case slotBondCount:
			f.bondCounts[s.contract] = a.clampCount(f, s, v)
		case slotFixedCount:
			f.fixedCount = a.clampCount(f, s, v)
		}
	}
}

func (a *StakingAggregator) clampCount(f *walletFigures, s slot, v *big.Int) uint64 {
	limit := uint64(a.cfg.MaxRecordsPerContract)
	if !v.IsUint64() || v.Uint64() > limit {
		a.logger.Warn("Record count above limit, clamping",
			"wallet", f.entry.PrimaryAddress, "call", s.kind.String(), "contract", s.contract, "count", v.String(), "limit", limit)
		return limit
	}
	return v.Uint64()
}

func (a *StakingAggregator) gatherDetail(figures []*walletFigures) *callPlan {
	plan := &callPlan{}
	for i, f := range figures {
		if !f.valid {
			continue
		}
		for c, pool := range a.mintPools {
			for idx := uint64(0); idx < f.mintCounts[c]; idx++ {
				a.encodeInto(plan, slot{wallet: i, kind: slotMintStake, contract: c}, pool, f.primary, new(big.Int).SetUint64(idx))
			}
		}
		for c, pool := range a.bondPools {
			for idx := uint64(0); idx < f.bondCounts[c]; idx++ {
				a.encodeInto(plan, slot{wallet: i, kind: slotBondInfo, contract: c}, pool, f.primary, new(big.Int).SetUint64(idx))
			}
		}
		if a.hasFixedTerm {
			for idx := uint64(0); idx < f.fixedCount; idx++ {
				a.encodeInto(plan, slot{wallet: i, kind: slotFixedStake}, a.fixedTermPool, f.primary, new(big.Int).SetUint64(idx))
			}
		}
	}
	return plan
}

func (a *StakingAggregator) foldDetail(figures []*walletFigures, plan *callPlan, results []entity.CallResult) {
	for i, s := range plan.slots {
		f := figures[s.wallet]
		v := decodeSlot(a.desc, a.logger, s, results[i], f.entry.PrimaryAddress)
		switch s.kind {
		case slotMintStake:
			f.mintPrincipal.Add(f.mintPrincipal, v)
		case slotBondInfo:
			f.bondPayout.Add(f.bondPayout, v)
		case slotFixedStake:
			f.fixedPrincipal.Add(f.fixedPrincipal, v)
		}
	}
}

// queryTotals runs the per-wallet total queries concurrently. Each goroutine writes only its own wallet.
func (a *StakingAggregator) queryTotals(ctx context.Context, caller port.ContractCaller, figures []*walletFigures) error {
	if a.querier == nil {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.TotalQueryConcurrency)
	for _, f := range figures {
		if !f.valid {
			continue
		}
		g.Go(func() error {
			ext, err := a.querier.Query(gctx, caller, f.primary)
			if err != nil {
				return err
			}
			f.total = ext
			return nil
		})
	}
	return g.Wait()
}

func (a *StakingAggregator) merge(f *walletFigures, fetchedAt time.Time) entity.StakingSnapshot {
	total := f.total.Value
	source := entity.TotalSourceNone
	if f.total.Found() {
		source = entity.TotalSourceAuthoritative
	}
	if a.cfg.TotalPolicy == TotalPolicyFallbackSum && total.Sign() == 0 {
		sum := new(big.Int).Add(f.mintPrincipal, f.bondPayout)
		sum.Add(sum, f.fixedPrincipal)
		if sum.Sign() > 0 {
			total = sum
			source = entity.TotalSourceFallbackSum
		}
	}

	return entity.StakingSnapshot{
		TotalStaked:                  utils.FormatUnits(total, StakingDecimals),
		MintPoolPrincipal:            utils.FormatUnits(f.mintPrincipal, StakingDecimals),
		BondPayout:                   utils.FormatUnits(f.bondPayout, StakingDecimals),
		FixedTermPrincipal:           utils.FormatUnits(f.fixedPrincipal, StakingDecimals),
		AccruedReward:                utils.FormatUnits(f.reward, StakingDecimals),
		LiquidityBalance:             utils.FormatUnits(f.liquidity, StakingDecimals),
		GovernanceTokenBalance:       utils.FormatUnits(f.govBalance, a.govDecimals),
		LiquidGovernanceTokenBalance: utils.FormatUnits(f.liquidGovBalance, a.liquidGovDecimal),
		TotalStakedSource:            source,
		FetchedAt:                    fetchedAt,
	}
}
