package utils

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// NormalizeAddress lower-cases and trims an address string. It is the dedupe key for wallets.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// ParseAddress validates a hex address and converts it.
func ParseAddress(addr string) (common.Address, bool) {
	addr = strings.TrimSpace(addr)
	if !common.IsHexAddress(addr) {
		return common.Address{}, false
	}
	return common.HexToAddress(addr), true
}

// AddressOrZero converts addr, falling back to the zero address for malformed input.
func AddressOrZero(addr string) common.Address {
	a, _ := ParseAddress(addr)
	return a
}
