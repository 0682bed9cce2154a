// Package bootstrap wires the snapshot engine from a loaded configuration.
// Both binaries share it.
package bootstrap

import (
	"fmt"
	"time"

	"staking_tracker/internal/app/port"
	"staking_tracker/internal/app/service"
	"staking_tracker/internal/app/totalstake"
	"staking_tracker/internal/domain/entity"
	"staking_tracker/internal/infrastructure/abicodec"
	"staking_tracker/internal/infrastructure/configloader"
	clientprovider "staking_tracker/internal/infrastructure/network/client"
	"staking_tracker/internal/pkg/metrics"
	"staking_tracker/internal/pkg/utils"
)

// Engine bundles the scheduler with the resources it owns.
type Engine struct {
	Network   entity.NetworkDefinition
	Scheduler *service.Scheduler
	provider  port.CallerProvider
}

// BuildEngine assembles descriptors, the total-query querier, the aggregator,
// the endpoint provider and the scheduler. Nothing is dialled here.
func BuildEngine(cfg *configloader.Config, l port.Logger, m *metrics.Metrics) (*Engine, error) {
	netDef, err := cfg.NetworkDefinition()
	if err != nil {
		return nil, err
	}
	desc, err := abicodec.NewDescriptors()
	if err != nil {
		return nil, fmt.Errorf("parse abi descriptors: %w", err)
	}

	strategy, ok := totalstake.StrategyByName(cfg.Engine.ExtractorStrategy)
	if !ok {
		return nil, fmt.Errorf("engine.extractorStrategy: unknown strategy %q", cfg.Engine.ExtractorStrategy)
	}
	if cfg.HasCeilingOverride() {
		ceiling, err := cfg.ExtractorCeiling()
		if err != nil {
			return nil, err
		}
		strategy = strategy.WithCeiling(ceiling)
	}

	contracts := netDef.Contracts
	builder, err := totalstake.NewPayloadBuilder(desc,
		utils.AddressOrZero(contracts.LiquidGovToken.Address),
		utils.AddressOrZero(contracts.TotalQueryTarget),
		utils.AddressOrZero(contracts.TotalQueryPool),
	)
	if err != nil {
		return nil, fmt.Errorf("total query payload: %w", err)
	}
	querier := totalstake.NewQuerier(utils.AddressOrZero(contracts.TotalQuery), builder, totalstake.NewExtractor(desc, strategy), l, m)

	aggregator, err := service.NewStakingAggregator(desc, service.AggregatorConfig{
		Contracts:             contracts,
		ChunkSize:             cfg.Engine.ChunkSize,
		MaxRecordsPerContract: cfg.Engine.MaxRecordsPerContract,
		TotalQueryConcurrency: cfg.Engine.TotalQueryConcurrency,
		TotalPolicy:           service.TotalPolicy(cfg.Engine.TotalPolicy),
		FixedTermEnabled:      cfg.Engine.FixedTermEnabled == nil || *cfg.Engine.FixedTermEnabled,
	}, querier, l, m)
	if err != nil {
		return nil, err
	}

	provider := clientprovider.NewEVMClientProvider(netDef, clientprovider.Options{
		ConnectionTimeout: time.Duration(cfg.RPC.ConnectionTimeoutSeconds) * time.Second,
		RPCCallTimeout:    time.Duration(cfg.RPC.RPCCallTimeoutSeconds) * time.Second,
		RateLimit:         cfg.RPC.RateLimit,
		BurstLimit:        cfg.RPC.BurstLimit,
		Metrics:           m,
	}, l)

	pause := time.Duration(cfg.BatchPause()) * time.Millisecond
	l.Info("Snapshot engine configured",
		"network", netDef.Name, "chain_id", netDef.ChainID, "strategy", strategy.Name,
		"total_policy", cfg.Engine.TotalPolicy, "chunk_size", cfg.Engine.ChunkSize, "batch_pause", pause.String())

	return &Engine{
		Network:   netDef,
		Scheduler: service.NewScheduler(provider, aggregator, pause, l, m),
		provider:  provider,
	}, nil
}

// Close releases every dialled RPC connection.
func (e *Engine) Close() {
	if c, ok := e.provider.(interface{ Close() }); ok {
		c.Close()
	}
}
