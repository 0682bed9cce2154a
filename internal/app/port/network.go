package port

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"

	"staking_tracker/internal/domain/entity"
)

// ContractCaller executes read-only eth_call requests against one RPC endpoint.
// *ethclient.Client satisfies it; tests substitute an in-memory chain.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ChainClient is a ContractCaller bound to a verified network.
type ChainClient interface {
	ContractCaller

	// Endpoint returns the RPC URL the client talks to.
	Endpoint() string

	// Definition returns the network definition associated with this client.
	Definition() entity.NetworkDefinition
}

// CallerProvider hands out chain clients per RPC endpoint.
type CallerProvider interface {
	// GetClient dials the endpoint and verifies the chain ID.
	// Any failure is returned as *entity.EndpointError.
	GetClient(ctx context.Context, endpoint string) (ChainClient, error)
}
