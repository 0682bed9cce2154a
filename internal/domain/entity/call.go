package entity

import "github.com/ethereum/go-ethereum/common"

// Call is a single read call bundled into an aggregate multicall request.
// Field names match the Multicall3 Call3 tuple so the value packs directly.
type Call struct {
	Target       common.Address
	AllowFailure bool
	CallData     []byte
}

// CallResult is the outcome of one Call. Results are correlated to calls by position.
type CallResult struct {
	Success    bool
	ReturnData []byte
}

// FailedResult is the result synthesized for calls whose chunk could not be executed.
var FailedResult = CallResult{Success: false, ReturnData: nil}
