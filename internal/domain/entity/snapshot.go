package entity

import "time"

// Sources of the TotalStaked figure.
const (
	TotalSourceAuthoritative = "authoritative"
	TotalSourceFallbackSum   = "fallback-sum"
	TotalSourceNone          = "none"
)

// StakingSnapshot is the aggregated staking profile of one wallet at FetchedAt.
// Every numeric field is a non-negative decimal string; a failed sub-query shows up as "0.0".
type StakingSnapshot struct {
	TotalStaked                  string    `json:"totalStaking"`
	MintPoolPrincipal            string    `json:"mintStaking"`
	BondPayout                   string    `json:"bondStaking"`
	FixedTermPrincipal           string    `json:"fixedTermStaking"`
	AccruedReward                string    `json:"spiderWebReward"`
	LiquidityBalance             string    `json:"turbineBalance"`
	GovernanceTokenBalance       string    `json:"derivedLgns"`
	LiquidGovernanceTokenBalance string    `json:"derivedSlgns"`
	TotalStakedSource            string    `json:"totalStakingSource,omitempty"`
	FetchedAt                    time.Time `json:"lastUpdated"`
}

// WalletSnapshot pairs a tracked wallet with its latest snapshot, if any.
type WalletSnapshot struct {
	Wallet   WalletEntry      `json:"wallet"`
	Snapshot *StakingSnapshot `json:"snapshot,omitempty"`
}

// SnapshotTotals sums every numeric snapshot field over a set of wallets.
type SnapshotTotals struct {
	Wallets                      int    `json:"wallets"`
	TotalStaked                  string `json:"totalStaking"`
	MintPoolPrincipal            string `json:"mintStaking"`
	BondPayout                   string `json:"bondStaking"`
	FixedTermPrincipal           string `json:"fixedTermStaking"`
	AccruedReward                string `json:"spiderWebReward"`
	LiquidityBalance             string `json:"turbineBalance"`
	GovernanceTokenBalance       string `json:"derivedLgns"`
	LiquidGovernanceTokenBalance string `json:"derivedSlgns"`
}
