package configloader

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"staking_tracker/internal/domain/entity"
	networkdefinition "staking_tracker/internal/infrastructure/network/definition"
)

// Environment variables that override the file.
const (
	EnvRPCURL    = "TRACKER_RPC_URL"
	EnvBatchSize = "TRACKER_BATCH_SIZE"
)

// Total policies.
const (
	TotalPolicyVerbatim    = "verbatim"
	TotalPolicyFallbackSum = "fallback-sum"
)

// ServerConfig holds server-specific configurations.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// LoggingConfig holds logging-specific configurations.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// StorageConfig describes where wallets and snapshots are kept.
type StorageConfig struct {
	SQLitePath      string `yaml:"sqlitePath"`
	CacheTTLMinutes int    `yaml:"cacheTTLMinutes"`
}

// RPCConfig configures the JSON-RPC client.
type RPCConfig struct {
	URL                      string  `yaml:"url"`
	ConnectionTimeoutSeconds int     `yaml:"connectionTimeoutSeconds"`
	RPCCallTimeoutSeconds    int     `yaml:"rpcCallTimeoutSeconds"`
	RateLimit                float64 `yaml:"rateLimit"`
	BurstLimit               int     `yaml:"burstLimit"`
}

// EngineConfig tunes the snapshot engine.
type EngineConfig struct {
	BatchSize             int    `yaml:"batchSize"`
	ChunkSize             int    `yaml:"chunkSize"`
	BatchPauseMillis      *int   `yaml:"batchPauseMillis"`
	MaxRecordsPerContract int    `yaml:"maxRecordsPerContract"`
	TotalQueryConcurrency int    `yaml:"totalQueryConcurrency"`
	TotalPolicy           string `yaml:"totalPolicy"`
	ExtractorStrategy     string `yaml:"extractorStrategy"`
	// ExtractorCeiling overrides the strategy's raw-tail bound, in base units. "none" disables it.
	ExtractorCeiling string `yaml:"extractorCeiling"`
	FixedTermEnabled *bool  `yaml:"fixedTermEnabled"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Storage StorageConfig `yaml:"storage"`
	RPC     RPCConfig     `yaml:"rpc"`
	Engine  EngineConfig  `yaml:"engine"`
	Network string        `yaml:"network"`
	ChainID uint64        `yaml:"chainId"`
	// Contracts overrides individual addresses of the network preset.
	Contracts entity.ContractSet `yaml:"contracts"`
}

// Default returns a configuration with every default filled in.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads the YAML configuration file from the given path, fills defaults,
// applies environment overrides and validates the result. An empty path yields
// the defaults plus environment overrides.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config data from %s: %w", path, err)
		}
	}

	applyDefaults(&cfg)
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "data/tracker.db"
	}
	if cfg.Storage.CacheTTLMinutes <= 0 {
		cfg.Storage.CacheTTLMinutes = 60
	}

	if cfg.Network == "" {
		cfg.Network = networkdefinition.Polygon.Identifier
	}
	if cfg.RPC.ConnectionTimeoutSeconds <= 0 {
		cfg.RPC.ConnectionTimeoutSeconds = 10
	}
	if cfg.RPC.RPCCallTimeoutSeconds <= 0 {
		cfg.RPC.RPCCallTimeoutSeconds = 10
	}
	if cfg.RPC.RateLimit <= 0 {
		cfg.RPC.RateLimit = 10
	}
	if cfg.RPC.BurstLimit <= 0 {
		cfg.RPC.BurstLimit = 5
	}

	if cfg.Engine.BatchSize <= 0 {
		cfg.Engine.BatchSize = 10
	}
	if cfg.Engine.ChunkSize <= 0 {
		cfg.Engine.ChunkSize = 10
	}
	if cfg.Engine.BatchPauseMillis == nil {
		pause := 100
		cfg.Engine.BatchPauseMillis = &pause
	}
	if cfg.Engine.MaxRecordsPerContract <= 0 {
		cfg.Engine.MaxRecordsPerContract = 500
	}
	if cfg.Engine.TotalQueryConcurrency <= 0 {
		cfg.Engine.TotalQueryConcurrency = 4
	}
	if cfg.Engine.TotalPolicy == "" {
		cfg.Engine.TotalPolicy = TotalPolicyVerbatim
	}
	if cfg.Engine.ExtractorStrategy == "" {
		cfg.Engine.ExtractorStrategy = "v1-index1-ceil1e18"
	}
	if cfg.Engine.FixedTermEnabled == nil {
		enabled := true
		cfg.Engine.FixedTermEnabled = &enabled
	}
}

func applyEnv(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv(EnvRPCURL)); v != "" {
		cfg.RPC.URL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBatchSize)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("%s must be a positive integer, got %q", EnvBatchSize, v)
		}
		cfg.Engine.BatchSize = n
	}
	return nil
}

// Validate checks values that have no sensible default.
func (c *Config) Validate() error {
	var errs []error
	if c.Engine.TotalPolicy != TotalPolicyVerbatim && c.Engine.TotalPolicy != TotalPolicyFallbackSum {
		errs = append(errs, fmt.Errorf("engine.totalPolicy: unknown policy %q", c.Engine.TotalPolicy))
	}
	if _, err := c.ExtractorCeiling(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.NetworkDefinition(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ExtractorCeiling parses Engine.ExtractorCeiling. It returns nil when no override is set
// or when the bound is explicitly disabled; HasCeilingOverride tells the two apart.
func (c *Config) ExtractorCeiling() (*big.Int, error) {
	raw := strings.TrimSpace(c.Engine.ExtractorCeiling)
	switch strings.ToLower(raw) {
	case "", "none", "unbounded":
		return nil, nil
	}
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok || v.Sign() <= 0 {
		return nil, fmt.Errorf("engine.extractorCeiling: %q is not a positive integer", raw)
	}
	return v, nil
}

// HasCeilingOverride reports whether the config sets or disables the raw-tail bound.
func (c *Config) HasCeilingOverride() bool {
	return strings.TrimSpace(c.Engine.ExtractorCeiling) != ""
}

// BatchPause returns the configured pause between batches in milliseconds.
func (c *Config) BatchPause() int {
	if c.Engine.BatchPauseMillis == nil {
		return 0
	}
	return *c.Engine.BatchPauseMillis
}

// NetworkDefinition merges the network preset with the configured overrides and validates every address.
func (c *Config) NetworkDefinition() (entity.NetworkDefinition, error) {
	def, err := networkdefinition.ByIdentifier(c.Network)
	if err != nil {
		return entity.NetworkDefinition{}, err
	}
	if c.ChainID != 0 {
		def.ChainID = c.ChainID
	}
	if c.RPC.URL != "" {
		def.PrimaryRPCURL = c.RPC.URL
	}
	mergeContracts(&def.Contracts, c.Contracts)

	if err := validateContracts(def.Contracts); err != nil {
		return entity.NetworkDefinition{}, err
	}
	return def, nil
}

func mergeContracts(dst *entity.ContractSet, src entity.ContractSet) {
	set := func(d *string, s string) {
		if s = strings.TrimSpace(s); s != "" {
			*d = s
		}
	}
	set(&dst.Multicall3, src.Multicall3)
	set(&dst.FixedTermPool, src.FixedTermPool)
	set(&dst.RewardContract, src.RewardContract)
	set(&dst.LiquidityContract, src.LiquidityContract)
	set(&dst.TotalQuery, src.TotalQuery)
	set(&dst.TotalQueryTarget, src.TotalQueryTarget)
	set(&dst.TotalQueryPool, src.TotalQueryPool)
	if len(src.MintPools) > 0 {
		dst.MintPools = append([]string(nil), src.MintPools...)
	}
	if len(src.BondPools) > 0 {
		dst.BondPools = append([]string(nil), src.BondPools...)
	}
	for _, tok := range []struct{ d, s *entity.TokenInfo }{
		{&dst.GovernanceToken, &src.GovernanceToken},
		{&dst.LiquidGovToken, &src.LiquidGovToken},
	} {
		set(&tok.d.Address, tok.s.Address)
		set(&tok.d.Symbol, tok.s.Symbol)
		if tok.s.Decimals != 0 {
			tok.d.Decimals = tok.s.Decimals
		}
	}
}

func validateContracts(c entity.ContractSet) error {
	var errs []error
	check := func(field, addr string, required bool) {
		if addr == "" {
			if required {
				errs = append(errs, fmt.Errorf("contracts.%s is required", field))
			}
			return
		}
		if !common.IsHexAddress(addr) {
			errs = append(errs, fmt.Errorf("contracts.%s: invalid address %q", field, addr))
		}
	}
	check("multicall3", c.Multicall3, true)
	check("fixedTermPool", c.FixedTermPool, false)
	check("rewardContract", c.RewardContract, true)
	check("liquidityContract", c.LiquidityContract, true)
	check("totalQuery", c.TotalQuery, true)
	check("totalQueryTarget", c.TotalQueryTarget, true)
	check("totalQueryPool", c.TotalQueryPool, true)
	check("governanceToken.address", c.GovernanceToken.Address, true)
	check("liquidGovernanceToken.address", c.LiquidGovToken.Address, true)
	for i, a := range c.MintPools {
		check(fmt.Sprintf("mintPools[%d]", i), a, true)
	}
	for i, a := range c.BondPools {
		check(fmt.Sprintf("bondPools[%d]", i), a, true)
	}
	return errors.Join(errs...)
}
