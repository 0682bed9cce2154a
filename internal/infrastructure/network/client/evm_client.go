package client

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/time/rate"

	"staking_tracker/internal/domain/entity"
	"staking_tracker/internal/pkg/metrics"
)

// Options tune a single endpoint connection.
type Options struct {
	ConnectionTimeout time.Duration
	RPCCallTimeout    time.Duration
	// RateLimit is the number of eth_call requests per second; 0 disables pacing.
	RateLimit  float64
	BurstLimit int
	Metrics    *metrics.Metrics
}

// EVMClient is a rate-limited eth_call client bound to one verified endpoint.
type EVMClient struct {
	ethClient      *ethclient.Client
	endpoint       string
	netDef         entity.NetworkDefinition
	limiter        *rate.Limiter
	rpcCallTimeout time.Duration
	metrics        *metrics.Metrics
}

// DialEVMClient connects to endpoint and checks that it serves netDef's chain.
// Every failure is an *entity.EndpointError: an endpoint that cannot answer
// eth_chainId correctly cannot serve a snapshot run either.
func DialEVMClient(ctx context.Context, endpoint string, netDef entity.NetworkDefinition, opts Options) (*EVMClient, error) {
	if opts.ConnectionTimeout <= 0 {
		opts.ConnectionTimeout = 10 * time.Second
	}
	dialCtx, cancel := context.WithTimeout(ctx, opts.ConnectionTimeout)
	defer cancel()

	ethClient, err := ethclient.DialContext(dialCtx, endpoint)
	if err != nil {
		return nil, &entity.EndpointError{Endpoint: endpoint, Op: "dial", Err: err}
	}

	chainID, err := ethClient.ChainID(dialCtx)
	if err != nil {
		ethClient.Close()
		return nil, &entity.EndpointError{Endpoint: endpoint, Op: "eth_chainId", Err: err}
	}
	if netDef.ChainID != 0 && chainID.Uint64() != netDef.ChainID {
		ethClient.Close()
		return nil, &entity.EndpointError{
			Endpoint: endpoint,
			Op:       "eth_chainId",
			Err:      fmt.Errorf("chain ID mismatch: expected %d (%s), got %s", netDef.ChainID, netDef.Name, chainID),
		}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		burst := opts.BurstLimit
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return &EVMClient{
		ethClient:      ethClient,
		endpoint:       endpoint,
		netDef:         netDef,
		limiter:        limiter,
		rpcCallTimeout: opts.RPCCallTimeout,
		metrics:        opts.Metrics,
	}, nil
}

// CallContract executes eth_call. Transport errors showing that the endpoint is
// unreachable come back as *entity.EndpointError; everything else is returned as is.
func (c *EVMClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	callCtx := ctx
	if c.rpcCallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.rpcCallTimeout)
		defer cancel()
	}

	out, err := c.ethClient.CallContract(callCtx, msg, blockNumber)
	c.metrics.ObserveRPC(c.endpoint, err)
	if err != nil {
		if IsUnreachable(err) {
			return nil, &entity.EndpointError{Endpoint: c.endpoint, Op: "eth_call", Err: err}
		}
		return nil, err
	}
	return out, nil
}

func (c *EVMClient) Endpoint() string { return c.endpoint }

// Definition returns the network definition for this client.
func (c *EVMClient) Definition() entity.NetworkDefinition { return c.netDef }

func (c *EVMClient) Close() { c.ethClient.Close() }

// IsUnreachable reports whether err means the endpoint cannot be used at all:
// dial failures, refused connections, unresolvable hosts and HTTP statuses that
// point at a wrong URL or missing credentials. Timeouts and reverts are not included.
func IsUnreachable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case 401, 403, 404, 405:
			return true
		}
	}
	return false
}
