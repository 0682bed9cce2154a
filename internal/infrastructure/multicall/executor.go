// Package multicall executes many independent read calls through a Multicall3 aggregate3 contract.
package multicall

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"staking_tracker/internal/app/port"
	"staking_tracker/internal/domain/entity"
	"staking_tracker/internal/infrastructure/abicodec"
	"staking_tracker/internal/pkg/logger"
	"staking_tracker/internal/pkg/metrics"
	"staking_tracker/internal/pkg/utils"
)

// DefaultChunkSize keeps aggregate requests small enough for public RPC endpoints.
const DefaultChunkSize = 10

// DefaultAddress is the canonical Multicall3 deployment, identical on most EVM chains.
var DefaultAddress = common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11")

type Options struct {
	Address   common.Address
	ChunkSize int
	Logger    port.Logger
	Metrics   *metrics.Metrics
}

// Executor splits call lists into chunks and sends each chunk as one aggregate3 eth_call.
// Chunks run one after another on the same caller.
type Executor struct {
	caller    port.ContractCaller
	desc      *abicodec.Descriptors
	address   common.Address
	chunkSize int
	logger    port.Logger
	metrics   *metrics.Metrics
}

func NewExecutor(caller port.ContractCaller, desc *abicodec.Descriptors, opts Options) *Executor {
	if opts.Address == (common.Address{}) {
		opts.Address = DefaultAddress
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewSlogAdapter()
	}
	return &Executor{
		caller:    caller,
		desc:      desc,
		address:   opts.Address,
		chunkSize: opts.ChunkSize,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}
}

// Execute returns exactly one result per call, in input order.
//
// A chunk whose request fails is not retried: each of its calls gets a
// synthesized failure. The only errors returned are *entity.EndpointError,
// when the endpoint cannot be reached at all, and the context error once ctx is done.
func (e *Executor) Execute(ctx context.Context, calls []entity.Call) ([]entity.CallResult, error) {
	results := make([]entity.CallResult, 0, len(calls))
	chunks := utils.Chunk(calls, e.chunkSize)

	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		chunkResults, err := e.executeChunk(ctx, chunk)
		if err != nil {
			var endpointErr *entity.EndpointError
			if errors.As(err, &endpointErr) {
				return nil, err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}

			e.logger.Warn("Multicall chunk failed, marking its calls as failed",
				"chunk", i+1, "chunks", len(chunks), "calls", len(chunk), "error", err)
			e.metrics.ObserveChunk(false, len(chunk))
			chunkResults = make([]entity.CallResult, len(chunk))
			for j := range chunkResults {
				chunkResults[j] = entity.FailedResult
			}
		} else {
			e.metrics.ObserveChunk(true, len(chunk))
			for _, r := range chunkResults {
				e.metrics.ObserveCall(r.Success)
			}
		}

		results = append(results, chunkResults...)
	}
	return results, nil
}

func (e *Executor) executeChunk(ctx context.Context, chunk []entity.Call) ([]entity.CallResult, error) {
	data, err := abicodec.Encode(&e.desc.Multicall3, abicodec.MethodAggregate3, chunk)
	if err != nil {
		return nil, err
	}

	raw, err := e.caller.CallContract(ctx, ethereum.CallMsg{To: &e.address, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("aggregate3 call: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("aggregate3 returned no data")
	}

	var decoded []entity.CallResult
	if err := e.desc.Multicall3.UnpackIntoInterface(&decoded, abicodec.MethodAggregate3, raw); err != nil {
		return nil, fmt.Errorf("decode aggregate3 response: %w", err)
	}
	if len(decoded) != len(chunk) {
		return nil, fmt.Errorf("aggregate3 returned %d results for %d calls", len(decoded), len(chunk))
	}
	return decoded, nil
}
