package totalstake

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"staking_tracker/internal/app/port"
	"staking_tracker/internal/domain/entity"
	"staking_tracker/internal/pkg/logger"
	"staking_tracker/internal/pkg/metrics"
)

// Querier issues the direct, non-multicalled total query for one wallet.
type Querier struct {
	contract  common.Address
	builder   *PayloadBuilder
	extractor *Extractor
	logger    port.Logger
	metrics   *metrics.Metrics
}

func NewQuerier(contract common.Address, builder *PayloadBuilder, extractor *Extractor, log port.Logger, m *metrics.Metrics) *Querier {
	if log == nil {
		log = logger.NewSlogAdapter()
	}
	return &Querier{contract: contract, builder: builder, extractor: extractor, logger: log, metrics: m}
}

// Query returns the extracted total for primary.
// Only *entity.EndpointError and context errors are returned; any other failure
// resolves to a zero Extraction with RuleCallFailed.
func (q *Querier) Query(ctx context.Context, caller port.ContractCaller, primary common.Address) (Extraction, error) {
	data, err := q.builder.Build(primary)
	if err != nil {
		q.logger.Warn("Failed to build total query payload", "address", primary.Hex(), "error", err)
		return q.observe(Extraction{Value: zero(), Rule: RuleCallFailed}), nil
	}

	raw, err := caller.CallContract(ctx, ethereum.CallMsg{To: &q.contract, Data: data}, nil)
	if err != nil {
		var endpointErr *entity.EndpointError
		if errors.As(err, &endpointErr) {
			return Extraction{}, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Extraction{}, ctxErr
		}
		q.logger.Warn("Total staking query failed", "address", primary.Hex(), "error", err)
		return q.observe(Extraction{Value: zero(), Rule: RuleCallFailed}), nil
	}

	ext := q.extractor.Extract(raw)
	if !ext.Found() {
		q.logger.Debug("Total staking response not recognised",
			"address", primary.Hex(), "rule", string(ext.Rule), "strategy", q.extractor.Strategy().Name, "bytes", len(raw))
	}
	return q.observe(ext), nil
}

func (q *Querier) observe(ext Extraction) Extraction {
	q.metrics.ObserveExtraction(string(ext.Rule))
	return ext
}
