// Package totalstake reads the authoritative staked total of a wallet from the
// bespoke aggregator-query contract.
//
// The contract answers with a wrapped multi-result blob whose shape is not
// self-describing and has varied between deployments. Extraction is therefore a
// versioned best-effort heuristic, not a decode: a zero result can mean the
// wallet really has nothing staked, or that no rule recognised the response.
// Rule reports which of the two happened.
package totalstake

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"staking_tracker/internal/infrastructure/abicodec"
)

type Rule string

const (
	RuleTooShort       Rule = "too_short"
	RulePreferredIndex Rule = "preferred_index"
	RuleScan           Rule = "scan"
	RuleRawTail        Rule = "raw_tail"
	RuleNone           Rule = "none"
	RuleCallFailed     Rule = "call_failed"
)

// Strategy is one tagged variant of the extraction heuristic.
type Strategy struct {
	Name string
	// MinResponseLen rejects responses shorter than this many bytes.
	MinResponseLen int
	// PreferredIndex is the sub-result inspected before the scan.
	PreferredIndex int
	// Ceiling is the exclusive upper bound for the raw-tail fallback. Nil means unbounded.
	Ceiling *big.Int
}

var (
	// StrategyV1 accepts a raw tail only below 10^18 base units.
	StrategyV1 = Strategy{
		Name:           "v1-index1-ceil1e18",
		MinResponseLen: 4,
		PreferredIndex: 1,
		Ceiling:        new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil),
	}
	// StrategyV1Unbounded is StrategyV1 without the tail ceiling, for deployments
	// holding more than 10^9 whole tokens per wallet.
	StrategyV1Unbounded = Strategy{
		Name:           "v1-index1-unbounded",
		MinResponseLen: 4,
		PreferredIndex: 1,
	}
)

// StrategyByName looks up a preset.
func StrategyByName(name string) (Strategy, bool) {
	for _, s := range []Strategy{StrategyV1, StrategyV1Unbounded} {
		if s.Name == name {
			return s, true
		}
	}
	return Strategy{}, false
}

// WithCeiling returns a copy of s using ceiling for the raw-tail bound.
func (s Strategy) WithCeiling(ceiling *big.Int) Strategy {
	if ceiling != nil {
		s.Ceiling = new(big.Int).Set(ceiling)
	} else {
		s.Ceiling = nil
	}
	return s
}

// Extraction is the recovered value and the rule that produced it.
type Extraction struct {
	Value *big.Int
	Rule  Rule
}

// Found reports whether a rule accepted a value.
func (e Extraction) Found() bool {
	switch e.Rule {
	case RulePreferredIndex, RuleScan, RuleRawTail:
		return true
	}
	return false
}

type Extractor struct {
	strategy Strategy
	wrapper  *abi.ABI
}

func NewExtractor(desc *abicodec.Descriptors, strategy Strategy) *Extractor {
	return &Extractor{strategy: strategy, wrapper: &desc.TotalQuery}
}

func (x *Extractor) Strategy() Strategy { return x.strategy }

// Extract applies the rules in order; the first match wins:
//
//  1. responses shorter than MinResponseLen yield zero;
//  2. the sub-result at PreferredIndex, if it succeeded, is one word and non-zero;
//  3. the first successful one-word sub-result greater than 1;
//  4. the last 32 bytes of the raw response, if non-zero and below Ceiling;
//  5. zero.
//
// Rule 4 is tried whenever 2 and 3 found nothing, including when the response
// does not decode as the wrapper's (bool[], bytes[]) output at all.
func (x *Extractor) Extract(raw []byte) Extraction {
	if len(raw) == 0 || len(raw) < x.strategy.MinResponseLen {
		return Extraction{Value: new(big.Int), Rule: RuleTooShort}
	}

	if successes, results, ok := x.unwrap(raw); ok {
		if v, ok := x.preferred(successes, results); ok {
			return Extraction{Value: v, Rule: RulePreferredIndex}
		}
		if v, ok := scan(successes, results); ok {
			return Extraction{Value: v, Rule: RuleScan}
		}
	}

	if len(raw) >= 32 {
		v := new(big.Int).SetBytes(raw[len(raw)-32:])
		if v.Sign() > 0 && (x.strategy.Ceiling == nil || v.Cmp(x.strategy.Ceiling) < 0) {
			return Extraction{Value: v, Rule: RuleRawTail}
		}
	}
	return Extraction{Value: new(big.Int), Rule: RuleNone}
}

func (x *Extractor) unwrap(raw []byte) (successes []bool, results [][]byte, ok bool) {
	res := abicodec.Decode(x.wrapper, abicodec.MethodTotalQueryMultiTx, raw)
	values := res.Values()
	if !res.Ok() || len(values) != 2 {
		return nil, nil, false
	}
	successes, ok1 := values[0].([]bool)
	results, ok2 := values[1].([][]byte)
	if !ok1 || !ok2 {
		return nil, nil, false
	}
	return successes, results, true
}

func (x *Extractor) preferred(successes []bool, results [][]byte) (*big.Int, bool) {
	i := x.strategy.PreferredIndex
	if i < 0 || i >= len(results) || i >= len(successes) || !successes[i] || len(results[i]) != 32 {
		return nil, false
	}
	v := new(big.Int).SetBytes(results[i])
	return v, v.Sign() > 0
}

func scan(successes []bool, results [][]byte) (*big.Int, bool) {
	one := big.NewInt(1)
	for i, r := range results {
		if i >= len(successes) || !successes[i] || len(r) != 32 {
			continue
		}
		if v := new(big.Int).SetBytes(r); v.Cmp(one) > 0 {
			return v, true
		}
	}
	return nil, false
}

func zero() *big.Int { return new(big.Int) }
