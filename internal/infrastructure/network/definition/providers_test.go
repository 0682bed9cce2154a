package networkdefinition

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolygonPresetAddressesAreValid(t *testing.T) {
	c := Polygon.Contracts
	all := append([]string{
		c.Multicall3, c.FixedTermPool, c.RewardContract, c.LiquidityContract,
		c.TotalQuery, c.TotalQueryTarget, c.TotalQueryPool,
		c.GovernanceToken.Address, c.LiquidGovToken.Address,
	}, append(c.MintPools, c.BondPools...)...)

	for _, addr := range all {
		assert.True(t, common.IsHexAddress(addr), addr)
	}
	assert.Len(t, c.MintPools, 5)
	assert.Equal(t, uint8(9), c.LiquidGovToken.Decimals)
}

func TestByIdentifierReturnsCopy(t *testing.T) {
	def, err := ByIdentifier(" Polygon ")
	require.NoError(t, err)
	def.Contracts.MintPools[0] = "changed"

	again, err := ByIdentifier("polygon")
	require.NoError(t, err)
	assert.NotEqual(t, "changed", again.Contracts.MintPools[0])

	_, err = ByIdentifier("solana")
	assert.Error(t, err)
	assert.Equal(t, []string{"polygon"}, Identifiers())
}
