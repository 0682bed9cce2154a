package totalstake

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"staking_tracker/internal/infrastructure/abicodec"
)

// Selectors of the two sub-transactions wrapped into the query. No ABI is published for them.
var (
	readBaseSelector  = []byte{0x79, 0x65, 0xd5, 0x6d}
	positionsSelector = []byte{0x5a, 0xc9, 0x83, 0xf4}
)

// wrappedTx mirrors the multiCall tuple (delegateCall, revertOnError, gasLimit, target, value, data).
type wrappedTx struct {
	DelegateCall  bool
	RevertOnError bool
	GasLimit      *big.Int
	Target        common.Address
	Value         *big.Int
	Data          []byte
}

// PayloadBuilder builds the address-parameterised calldata for the aggregator-query contract:
//
//	multiCall([
//	  {target: token,  data: 0x7965d56d ‖ uint256(0)},
//	  {target: router, data: 0x5ac983f4 ‖ address(token) ‖ address(pool) ‖ address(user)},
//	])
//
// with every other tuple field false or zero.
type PayloadBuilder struct {
	wrapper *abi.ABI
	token   common.Address
	router  common.Address
	pool    common.Address

	uintArgs    abi.Arguments
	addressArgs abi.Arguments
}

func NewPayloadBuilder(desc *abicodec.Descriptors, token, router, pool common.Address) (*PayloadBuilder, error) {
	uint256Ty, err := abi.NewType("uint256", "", nil)
	if err != nil {
		return nil, err
	}
	addressTy, err := abi.NewType("address", "", nil)
	if err != nil {
		return nil, err
	}
	return &PayloadBuilder{
		wrapper:     &desc.TotalQuery,
		token:       token,
		router:      router,
		pool:        pool,
		uintArgs:    abi.Arguments{{Type: uint256Ty}},
		addressArgs: abi.Arguments{{Type: addressTy}, {Type: addressTy}, {Type: addressTy}},
	}, nil
}

// Build returns the full calldata, selector included, for user.
func (b *PayloadBuilder) Build(user common.Address) ([]byte, error) {
	readArgs, err := b.uintArgs.Pack(new(big.Int))
	if err != nil {
		return nil, fmt.Errorf("pack read-base args: %w", err)
	}
	positionArgs, err := b.addressArgs.Pack(b.token, b.pool, user)
	if err != nil {
		return nil, fmt.Errorf("pack positions args: %w", err)
	}

	txs := []wrappedTx{
		{
			GasLimit: new(big.Int),
			Target:   b.token,
			Value:    new(big.Int),
			Data:     append(append([]byte{}, readBaseSelector...), readArgs...),
		},
		{
			GasLimit: new(big.Int),
			Target:   b.router,
			Value:    new(big.Int),
			Data:     append(append([]byte{}, positionsSelector...), positionArgs...),
		},
	}
	return abicodec.Encode(b.wrapper, abicodec.MethodTotalQueryMultiTx, txs)
}
