package service

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"staking_tracker/internal/app/port"
	"staking_tracker/internal/domain/entity"
	"staking_tracker/internal/infrastructure/abicodec"
)

type slotKind int

const (
	slotLiquidity slotKind = iota
	slotReward
	slotGovBalance
	slotLiquidGovBalance
	slotMintCount
	slotBondCount
	slotFixedCount
	slotMintStake
	slotBondInfo
	slotFixedStake
)

func (k slotKind) String() string {
	switch k {
	case slotLiquidity:
		return "liquidity"
	case slotReward:
		return "reward"
	case slotGovBalance:
		return "governance_balance"
	case slotLiquidGovBalance:
		return "liquid_governance_balance"
	case slotMintCount:
		return "mint_count"
	case slotBondCount:
		return "bond_count"
	case slotFixedCount:
		return "fixed_term_count"
	case slotMintStake:
		return "mint_stake"
	case slotBondInfo:
		return "bond_info"
	case slotFixedStake:
		return "fixed_term_stake"
	}
	return "unknown"
}

// slot tags one planned call with the wallet and contract it belongs to.
type slot struct {
	wallet   int
	kind     slotKind
	contract int
}

// callPlan is a call list plus a parallel slice of slot tags.
// Results come back in call order, so results[i] belongs to slots[i].
type callPlan struct {
	calls []entity.Call
	slots []slot
}

func (p *callPlan) add(s slot, target common.Address, data []byte) {
	p.calls = append(p.calls, entity.Call{Target: target, AllowFailure: true, CallData: data})
	p.slots = append(p.slots, s)
}

func (p *callPlan) len() int { return len(p.calls) }

// methodFor maps a slot kind to the ABI and method used to encode and decode it.
func methodFor(desc *abicodec.Descriptors, k slotKind) (*abi.ABI, string, int) {
	switch k {
	case slotLiquidity:
		return &desc.Liquidity, abicodec.MethodLiquidityBalance, 0
	case slotReward:
		return &desc.Reward, abicodec.MethodClaimable, 0
	case slotGovBalance, slotLiquidGovBalance:
		return &desc.ERC20, abicodec.MethodBalanceOf, 0
	case slotMintCount:
		return &desc.MintPool, abicodec.MethodStakesCount, 0
	case slotBondCount:
		return &desc.Bond, abicodec.MethodBondCount, 0
	case slotFixedCount:
		return &desc.FixedTermPool, abicodec.MethodStakesCount, 0
	case slotMintStake:
		return &desc.MintPool, abicodec.MethodStakes, abicodec.StakePrincipalField
	case slotBondInfo:
		return &desc.Bond, abicodec.MethodBondInfo, abicodec.BondPayoutField
	case slotFixedStake:
		return &desc.FixedTermPool, abicodec.MethodStakes, abicodec.StakePrincipalField
	}
	return nil, "", 0
}

// decodeSlot turns one result into the integer the slot is after. Absent values are zero.
func decodeSlot(desc *abicodec.Descriptors, log port.Logger, s slot, r entity.CallResult, wallet string) *big.Int {
	if !r.Success {
		log.Debug("Sub-call failed", "wallet", wallet, "call", s.kind.String(), "contract", s.contract)
		return new(big.Int)
	}
	contract, method, field := methodFor(desc, s.kind)
	if contract == nil {
		return new(big.Int)
	}
	res := abicodec.Decode(contract, method, r.ReturnData)
	if !res.Ok() {
		log.Debug("Sub-call returned no value", "wallet", wallet, "call", s.kind.String(), "contract", s.contract, "reason", res.Reason())
	}
	return res.BigOrZero(field)
}
