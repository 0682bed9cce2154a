// Package fakechain is an in-memory port.ContractCaller for tests.
// It understands Multicall3 aggregate3 requests and dispatches every sub-call
// to handlers registered per target and selector.
package fakechain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"staking_tracker/internal/domain/entity"
	"staking_tracker/internal/infrastructure/abicodec"
)

// ErrReverted is returned by handlers to simulate a reverting call.
var ErrReverted = errors.New("execution reverted")

// Handler answers one call. The data includes the 4-byte selector.
type Handler func(data []byte) ([]byte, error)

type selector [4]byte

type Chain struct {
	mu        sync.Mutex
	desc      *abicodec.Descriptors
	multicall common.Address
	handlers  map[common.Address]map[selector]Handler
	direct    map[common.Address]Handler

	// FailAggregate, when set, is consulted before every aggregate3 request with its
	// 1-based sequence number. A non-nil error fails the whole request.
	FailAggregate func(n int) error

	aggregates int
	subCalls   []entity.Call
	directs    int
}

func New(desc *abicodec.Descriptors, multicall common.Address) *Chain {
	return &Chain{
		desc:      desc,
		multicall: multicall,
		handlers:  make(map[common.Address]map[selector]Handler),
		direct:    make(map[common.Address]Handler),
	}
}

// Handle registers h for calls to target whose selector matches the given method.
func (c *Chain) Handle(target common.Address, methodID []byte, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var sel selector
	copy(sel[:], methodID)
	if c.handlers[target] == nil {
		c.handlers[target] = make(map[selector]Handler)
	}
	c.handlers[target][sel] = h
}

// HandleDirect registers h for plain eth_calls to target outside of aggregate3.
func (c *Chain) HandleDirect(target common.Address, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.direct[target] = h
}

func (c *Chain) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if msg.To == nil {
		return nil, errors.New("contract creation is not supported")
	}
	if *msg.To == c.multicall {
		return c.aggregate(msg.Data)
	}

	c.mu.Lock()
	c.directs++
	h, ok := c.direct[*msg.To]
	c.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return h(msg.Data)
}

func (c *Chain) aggregate(data []byte) ([]byte, error) {
	method := c.desc.Multicall3.Methods[abicodec.MethodAggregate3]
	if len(data) < 4 {
		return nil, ErrReverted
	}

	c.mu.Lock()
	c.aggregates++
	n := c.aggregates
	fail := c.FailAggregate
	c.mu.Unlock()
	if fail != nil {
		if err := fail(n); err != nil {
			return nil, err
		}
	}

	values, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("fakechain: decode aggregate3: %w", err)
	}
	var calls []entity.Call
	if err := method.Inputs.Copy(&calls, values); err != nil {
		return nil, fmt.Errorf("fakechain: copy aggregate3 input: %w", err)
	}

	results := make([]entity.CallResult, len(calls))
	for i, call := range calls {
		out, err := c.dispatch(call)
		if err != nil {
			if !call.AllowFailure {
				return nil, ErrReverted
			}
			results[i] = entity.CallResult{Success: false, ReturnData: []byte{}}
			continue
		}
		results[i] = entity.CallResult{Success: true, ReturnData: out}
	}
	return method.Outputs.Pack(results)
}

func (c *Chain) dispatch(call entity.Call) ([]byte, error) {
	c.mu.Lock()
	c.subCalls = append(c.subCalls, call)
	var h Handler
	if len(call.CallData) >= 4 {
		var sel selector
		copy(sel[:], call.CallData[:4])
		h = c.handlers[call.Target][sel]
	}
	c.mu.Unlock()

	if h == nil {
		return nil, ErrReverted
	}
	return h(call.CallData)
}

// AggregateRequests reports how many aggregate3 requests were received.
func (c *Chain) AggregateRequests() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aggregates
}

// DirectRequests reports how many eth_calls bypassed the multicall contract.
func (c *Chain) DirectRequests() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.directs
}

// SubCalls returns every sub-call dispatched so far, in arrival order.
func (c *Chain) SubCalls() []entity.Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]entity.Call, len(c.subCalls))
	copy(out, c.subCalls)
	return out
}

// SubCallsTo counts dispatched sub-calls to target with the given selector.
func (c *Chain) SubCallsTo(target common.Address, methodID []byte) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, call := range c.subCalls {
		if call.Target == target && len(call.CallData) >= 4 && string(call.CallData[:4]) == string(methodID[:4]) {
			n++
		}
	}
	return n
}

// Word returns a handler answering with v as one 32-byte word.
func Word(v *big.Int) Handler {
	return func([]byte) ([]byte, error) {
		return common.LeftPadBytes(v.Bytes(), 32), nil
	}
}

// Reverting is a handler that always reverts.
func Reverting([]byte) ([]byte, error) {
	return nil, ErrReverted
}
