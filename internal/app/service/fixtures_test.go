package service

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"staking_tracker/internal/app/port"
	"staking_tracker/internal/app/totalstake"
	"staking_tracker/internal/domain/entity"
	"staking_tracker/internal/infrastructure/abicodec"
	"staking_tracker/internal/pkg/fakechain"
	"staking_tracker/internal/pkg/logger"
)

var (
	multicallAddr  = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	mintPoolA      = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	mintPoolB      = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	bondPool       = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	fixedTermPool  = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	rewardAddr     = common.HexToAddress("0x00000000000000000000000000000000000000d1")
	liquidityAddr  = common.HexToAddress("0x00000000000000000000000000000000000000d2")
	govToken       = common.HexToAddress("0x00000000000000000000000000000000000000e1")
	liquidGovToken = common.HexToAddress("0x00000000000000000000000000000000000000e2")
	totalQueryAddr = common.HexToAddress("0x00000000000000000000000000000000000000d3")
	queryRouter    = common.HexToAddress("0x00000000000000000000000000000000000000d4")
	queryPool      = common.HexToAddress("0x00000000000000000000000000000000000000d5")
)

func testContracts() entity.ContractSet {
	return entity.ContractSet{
		Multicall3:        multicallAddr.Hex(),
		MintPools:         []string{mintPoolA.Hex(), mintPoolB.Hex()},
		BondPools:         []string{bondPool.Hex()},
		FixedTermPool:     fixedTermPool.Hex(),
		RewardContract:    rewardAddr.Hex(),
		LiquidityContract: liquidityAddr.Hex(),
		TotalQuery:        totalQueryAddr.Hex(),
		TotalQueryTarget:  queryRouter.Hex(),
		TotalQueryPool:    queryPool.Hex(),
		GovernanceToken:   entity.TokenInfo{Address: govToken.Hex(), Symbol: "GOV", Decimals: 9},
		LiquidGovToken:    entity.TokenInfo{Address: liquidGovToken.Hex(), Symbol: "sGOV", Decimals: 9},
	}
}

// account is the on-chain state of one wallet in the simulated world.
type account struct {
	mint      [2][]int64 // principals per mint pool
	bonds     []int64    // payouts
	fixed     []int64    // fixed-term principals
	reward    int64
	liquidity int64
	gov       int64 // held by the derived address
	liquidGov int64
	// totalRaw, when set, is returned verbatim by the total query.
	totalRaw []byte
	total    int64
}

type world struct {
	mu        sync.Mutex
	byPrimary map[common.Address]*account
	byDerived map[common.Address]*account
}

func (w *world) primary(a common.Address) *account {
	w.mu.Lock()
	defer w.mu.Unlock()
	if acc, ok := w.byPrimary[a]; ok {
		return acc
	}
	return &account{}
}

func (w *world) derived(a common.Address) *account {
	w.mu.Lock()
	defer w.mu.Unlock()
	if acc, ok := w.byDerived[a]; ok {
		return acc
	}
	return &account{}
}

func word(v int64) []byte {
	return common.LeftPadBytes(big.NewInt(v).Bytes(), 32)
}

func args(t *testing.T, m abi.Method, data []byte) []any {
	values, err := m.Inputs.Unpack(data[4:])
	require.NoError(t, err)
	return values
}

// newWorld wires a fake chain answering every contract family from accounts.
func newWorld(t *testing.T, desc *abicodec.Descriptors, accounts map[string]*account, derivedOf map[string]string) (*fakechain.Chain, *world) {
	t.Helper()
	w := &world{byPrimary: map[common.Address]*account{}, byDerived: map[common.Address]*account{}}
	for addr, acc := range accounts {
		w.byPrimary[common.HexToAddress(addr)] = acc
		if d, ok := derivedOf[addr]; ok {
			w.byDerived[common.HexToAddress(d)] = acc
		}
	}

	chain := fakechain.New(desc, multicallAddr)

	single := func(m abi.Method, get func(*account) int64, byDerived bool) fakechain.Handler {
		return func(data []byte) ([]byte, error) {
			who := args(t, m, data)[0].(common.Address)
			acc := w.primary(who)
			if byDerived {
				acc = w.derived(who)
			}
			return word(get(acc)), nil
		}
	}
	balanceOf := desc.ERC20.Methods[abicodec.MethodBalanceOf]
	chain.Handle(govToken, balanceOf.ID, single(balanceOf, func(a *account) int64 { return a.gov }, true))
	chain.Handle(liquidGovToken, balanceOf.ID, single(balanceOf, func(a *account) int64 { return a.liquidGov }, true))
	liq := desc.Liquidity.Methods[abicodec.MethodLiquidityBalance]
	chain.Handle(liquidityAddr, liq.ID, single(liq, func(a *account) int64 { return a.liquidity }, false))
	rew := desc.Reward.Methods[abicodec.MethodClaimable]
	chain.Handle(rewardAddr, rew.ID, single(rew, func(a *account) int64 { return a.reward }, false))

	record := func(m abi.Method, list func(*account) []int64, pack func(v int64) ([]byte, error)) fakechain.Handler {
		return func(data []byte) ([]byte, error) {
			in := args(t, m, data)
			items := list(w.primary(in[0].(common.Address)))
			idx := in[1].(*big.Int)
			if !idx.IsInt64() || idx.Int64() >= int64(len(items)) {
				return nil, fakechain.ErrReverted
			}
			return pack(items[idx.Int64()])
		}
	}
	stakes := desc.MintPool.Methods[abicodec.MethodStakes]
	packStake := func(v int64) ([]byte, error) {
		return stakes.Outputs.Pack(big.NewInt(v), big.NewInt(1), big.NewInt(2), big.NewInt(3), big.NewInt(0), big.NewInt(4), big.NewInt(5), true)
	}
	count := desc.MintPool.Methods[abicodec.MethodStakesCount]
	for i, pool := range []common.Address{mintPoolA, mintPoolB} {
		chain.Handle(pool, count.ID, single(count, func(a *account) int64 { return int64(len(a.mint[i])) }, false))
		chain.Handle(pool, stakes.ID, record(stakes, func(a *account) []int64 { return a.mint[i] }, packStake))
	}

	bondCount := desc.Bond.Methods[abicodec.MethodBondCount]
	bondInfo := desc.Bond.Methods[abicodec.MethodBondInfo]
	chain.Handle(bondPool, bondCount.ID, single(bondCount, func(a *account) int64 { return int64(len(a.bonds)) }, false))
	chain.Handle(bondPool, bondInfo.ID, record(bondInfo, func(a *account) []int64 { return a.bonds }, func(v int64) ([]byte, error) {
		return bondInfo.Outputs.Pack(big.NewInt(1), common.Address{}, big.NewInt(v), big.NewInt(2), big.NewInt(3), big.NewInt(4))
	}))

	fixedCount := desc.FixedTermPool.Methods[abicodec.MethodStakesCount]
	fixedStakes := desc.FixedTermPool.Methods[abicodec.MethodStakes]
	chain.Handle(fixedTermPool, fixedCount.ID, single(fixedCount, func(a *account) int64 { return int64(len(a.fixed)) }, false))
	chain.Handle(fixedTermPool, fixedStakes.ID, record(fixedStakes, func(a *account) []int64 { return a.fixed }, func(v int64) ([]byte, error) {
		z := big.NewInt(0)
		return fixedStakes.Outputs.Pack(big.NewInt(v), z, z, z, z, z, z, true, z, z, z)
	}))

	wrapper := desc.TotalQuery.Methods[abicodec.MethodTotalQueryMultiTx]
	chain.HandleDirect(totalQueryAddr, func(data []byte) ([]byte, error) {
		// the user address ends 28 bytes before the end of the payload
		user := common.BytesToAddress(data[len(data)-48 : len(data)-28])
		acc := w.primary(user)
		if acc.totalRaw != nil {
			return acc.totalRaw, nil
		}
		return wrapper.Outputs.Pack([]bool{true, true}, [][]byte{word(0), word(acc.total)})
	})
	return chain, w
}

type aggregatorOpts struct {
	chunkSize  int
	maxRecords int
	policy     TotalPolicy
	noFixed    bool
}

func newAggregator(t *testing.T, desc *abicodec.Descriptors, o aggregatorOpts) *StakingAggregator {
	t.Helper()
	contracts := testContracts()
	builder, err := totalstake.NewPayloadBuilder(desc, liquidGovToken, queryRouter, queryPool)
	require.NoError(t, err)
	querier := totalstake.NewQuerier(totalQueryAddr, builder, totalstake.NewExtractor(desc, totalstake.StrategyV1), logger.Nop(), nil)

	agg, err := NewStakingAggregator(desc, AggregatorConfig{
		Contracts:             contracts,
		ChunkSize:             o.chunkSize,
		MaxRecordsPerContract: o.maxRecords,
		TotalQueryConcurrency: 4,
		TotalPolicy:           o.policy,
		FixedTermEnabled:      !o.noFixed,
	}, querier, logger.Nop(), nil)
	require.NoError(t, err)
	return agg
}

// staticProvider hands out the same caller for every endpoint.
type staticProvider struct {
	caller port.ContractCaller
	err    error
	asked  []string
}

type namedCaller struct {
	port.ContractCaller
	endpoint string
}

func (c namedCaller) Endpoint() string                     { return c.endpoint }
func (c namedCaller) Definition() entity.NetworkDefinition { return entity.NetworkDefinition{} }

func (p *staticProvider) GetClient(_ context.Context, endpoint string) (port.ChainClient, error) {
	p.asked = append(p.asked, endpoint)
	if p.err != nil {
		return nil, p.err
	}
	return namedCaller{ContractCaller: p.caller, endpoint: endpoint}, nil
}
