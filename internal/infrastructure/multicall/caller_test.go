package multicall

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
)

type callerFunc func() ([]byte, error)

func (f callerFunc) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	return f()
}
