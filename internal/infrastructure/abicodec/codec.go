// Package abicodec encodes contract calls and decodes their return data.
//
// Decoding never fails loudly: empty, truncated or malformed data produces an
// Absent result carrying the reason. Callers treat Absent as zero and log the
// reason, which keeps "call reverted" distinguishable from "value is zero" in logs.
package abicodec

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Descriptors holds the parsed ABIs of every contract family the tracker talks to.
// Build it once with NewDescriptors and share the pointer; it is never mutated.
type Descriptors struct {
	ERC20         abi.ABI
	MintPool      abi.ABI
	FixedTermPool abi.ABI
	Bond          abi.ABI
	Liquidity     abi.ABI
	Reward        abi.ABI
	Multicall3    abi.ABI
	TotalQuery    abi.ABI
}

func NewDescriptors() (*Descriptors, error) {
	d := &Descriptors{}
	for _, item := range []struct {
		name string
		json string
		dst  *abi.ABI
	}{
		{"erc20", erc20ABI, &d.ERC20},
		{"mint pool", mintPoolABI, &d.MintPool},
		{"fixed-term pool", fixedTermPoolABI, &d.FixedTermPool},
		{"bond", bondABI, &d.Bond},
		{"liquidity", liquidityABI, &d.Liquidity},
		{"reward", rewardABI, &d.Reward},
		{"multicall3", multicall3ABI, &d.Multicall3},
		{"total query", totalQueryABI, &d.TotalQuery},
	} {
		parsed, err := abi.JSON(strings.NewReader(item.json))
		if err != nil {
			return nil, fmt.Errorf("parse %s abi: %w", item.name, err)
		}
		*item.dst = parsed
	}
	return d, nil
}

// MustNewDescriptors is NewDescriptors for process start-up and tests.
func MustNewDescriptors() *Descriptors {
	d, err := NewDescriptors()
	if err != nil {
		panic(err)
	}
	return d
}

// Encode packs a call to method with positional args.
func Encode(contract *abi.ABI, method string, args ...any) ([]byte, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", method, err)
	}
	return data, nil
}

// Decode unpacks the return data of method.
func Decode(contract *abi.ABI, method string, data []byte) (res DecodeResult) {
	if len(data) == 0 {
		return Absent("empty return data")
	}
	defer func() {
		if r := recover(); r != nil {
			res = Absent(fmt.Sprintf("decode %s: %v", method, r))
		}
	}()

	values, err := contract.Unpack(method, data)
	if err != nil {
		return Absent(fmt.Sprintf("decode %s: %v", method, err))
	}
	if len(values) == 0 {
		return Absent(fmt.Sprintf("decode %s: no outputs", method))
	}
	return Decoded(values)
}

// DecodeResult is either a decoded value list or an absence with a reason.
type DecodeResult struct {
	values []any
	reason string
}

// Decoded wraps successfully unpacked values.
func Decoded(values []any) DecodeResult {
	return DecodeResult{values: values}
}

// Absent signals that no value could be read.
func Absent(reason string) DecodeResult {
	if reason == "" {
		reason = "absent"
	}
	return DecodeResult{reason: reason}
}

func (r DecodeResult) Ok() bool { return r.reason == "" }

func (r DecodeResult) Reason() string { return r.reason }

func (r DecodeResult) Values() []any { return r.values }

// BigInt returns output i when it is an integer.
func (r DecodeResult) BigInt(i int) (*big.Int, bool) {
	if !r.Ok() || i < 0 || i >= len(r.values) {
		return nil, false
	}
	v, ok := r.values[i].(*big.Int)
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Uint returns output i when it is an integer that fits into uint64.
func (r DecodeResult) Uint(i int) (uint64, bool) {
	v, ok := r.BigInt(i)
	if !ok || v.Sign() < 0 || !v.IsUint64() {
		return 0, false
	}
	return v.Uint64(), true
}

// Address returns output i when it is an address.
func (r DecodeResult) Address(i int) (common.Address, bool) {
	if !r.Ok() || i < 0 || i >= len(r.values) {
		return common.Address{}, false
	}
	v, ok := r.values[i].(common.Address)
	return v, ok
}

// BigOrZero returns output i, or zero when the result is absent or of another type.
func (r DecodeResult) BigOrZero(i int) *big.Int {
	if v, ok := r.BigInt(i); ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}
