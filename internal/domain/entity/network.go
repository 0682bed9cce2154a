package entity

// NetworkDefinition holds the configuration for the EVM network being tracked.
// This structure is defined at the domain level to be used across application and infrastructure layers.
type NetworkDefinition struct {
	ChainID          uint64      `json:"chainId" yaml:"chainId"`
	Name             string      `json:"name" yaml:"name"`
	Identifier       string      `json:"identifier" yaml:"identifier"`
	PrimaryRPCURL    string      `json:"primaryRpcUrl" yaml:"primaryRpcUrl"`
	FallbackRPCURLs  []string    `json:"fallbackRpcUrls" yaml:"fallbackRpcUrls"`
	BlockExplorerURL string      `json:"blockExplorerUrl,omitempty" yaml:"blockExplorerUrl,omitempty"`
	Contracts        ContractSet `json:"contracts" yaml:"contracts"`
}

// ContractSet lists the on-chain contracts the aggregation engine reads.
// Addresses are hex strings; they are validated when the configuration is loaded.
type ContractSet struct {
	Multicall3        string    `json:"multicall3" yaml:"multicall3"`
	MintPools         []string  `json:"mintPools" yaml:"mintPools"`
	BondPools         []string  `json:"bondPools" yaml:"bondPools"`
	FixedTermPool     string    `json:"fixedTermPool,omitempty" yaml:"fixedTermPool,omitempty"`
	RewardContract    string    `json:"rewardContract" yaml:"rewardContract"`
	LiquidityContract string    `json:"liquidityContract" yaml:"liquidityContract"`
	TotalQuery        string    `json:"totalQuery" yaml:"totalQuery"`
	TotalQueryTarget  string    `json:"totalQueryTarget" yaml:"totalQueryTarget"`
	TotalQueryPool    string    `json:"totalQueryPool" yaml:"totalQueryPool"`
	GovernanceToken   TokenInfo `json:"governanceToken" yaml:"governanceToken"`
	LiquidGovToken    TokenInfo `json:"liquidGovernanceToken" yaml:"liquidGovernanceToken"`
}
