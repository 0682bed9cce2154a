package entity

import (
	"errors"
	"fmt"
)

// ErrEndpointUnreachable marks the only failure that aborts an aggregation run.
var ErrEndpointUnreachable = errors.New("rpc endpoint unreachable")

// ErrNoEndpoint is wrapped into an EndpointError when no RPC URL is configured.
var ErrNoEndpoint = errors.New("no rpc endpoint configured")

// EndpointError reports that the RPC endpoint could not be used at all
// (bad URL, connection refused, DNS failure, wrong chain).
type EndpointError struct {
	Endpoint string
	Op       string
	Err      error
}

func (e *EndpointError) Error() string {
	return fmt.Sprintf("%s: endpoint %s: %v", e.Op, e.Endpoint, e.Err)
}

func (e *EndpointError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrEndpointUnreachable) match any EndpointError.
func (e *EndpointError) Is(target error) bool {
	return target == ErrEndpointUnreachable
}

var (
	ErrWalletNotFound   = errors.New("wallet not found")
	ErrSnapshotNotFound = errors.New("snapshot not found")
)
