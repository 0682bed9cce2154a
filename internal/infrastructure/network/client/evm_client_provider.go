package client

import (
	"context"
	"strings"
	"sync"

	"staking_tracker/internal/app/port"
	"staking_tracker/internal/domain/entity"
)

// evmClientProvider implements port.CallerProvider and caches one client per endpoint.
type evmClientProvider struct {
	netDef  entity.NetworkDefinition
	opts    Options
	logger  port.Logger
	mu      sync.Mutex
	clients map[string]*EVMClient
}

func NewEVMClientProvider(netDef entity.NetworkDefinition, opts Options, logger port.Logger) port.CallerProvider {
	return &evmClientProvider{
		netDef:  netDef,
		opts:    opts,
		logger:  logger,
		clients: make(map[string]*EVMClient),
	}
}

// GetClient returns a verified client for endpoint.
// An empty endpoint means the network's primary RPC URL, then its fallbacks in order.
// An explicit endpoint is never substituted: the caller chose it and must see its failure.
func (p *evmClientProvider) GetClient(ctx context.Context, endpoint string) (port.ChainClient, error) {
	endpoint = strings.TrimSpace(endpoint)
	candidates := []string{endpoint}
	if endpoint == "" {
		candidates = append([]string{p.netDef.PrimaryRPCURL}, p.netDef.FallbackRPCURLs...)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var lastErr error
	for _, url := range candidates {
		if url == "" {
			continue
		}
		if c, ok := p.clients[url]; ok {
			p.logger.Debug("Returning cached EVM client", "network", p.netDef.Name, "rpc", url)
			return c, nil
		}

		p.logger.Info("Creating new EVM client", "network", p.netDef.Name, "rpc", url)
		c, err := DialEVMClient(ctx, url, p.netDef, p.opts)
		if err != nil {
			p.logger.Error("Failed to create EVM client", "network", p.netDef.Name, "rpc", url, "error", err)
			lastErr = err
			continue
		}
		p.clients[url] = c
		return c, nil
	}

	if lastErr == nil {
		lastErr = &entity.EndpointError{Endpoint: endpoint, Op: "dial", Err: entity.ErrNoEndpoint}
	}
	return nil, lastErr
}

// Close releases every cached connection.
func (p *evmClientProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for url, c := range p.clients {
		c.Close()
		delete(p.clients, url)
	}
}
