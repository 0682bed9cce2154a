package networkdefinition

import (
	"fmt"
	"strings"

	"staking_tracker/internal/domain/entity"
)

// Predefined network definitions
var ( //nolint:gochecknoglobals // Global for definitions
	Polygon = entity.NetworkDefinition{
		ChainID:          137,
		Name:             "Polygon PoS",
		Identifier:       "polygon",
		PrimaryRPCURL:    "https://polygon-bor-rpc.publicnode.com",
		FallbackRPCURLs:  []string{"https://polygon.publicnode.com", "https://polygon-rpc.com/"},
		BlockExplorerURL: "https://polygonscan.com",
		Contracts: entity.ContractSet{
			Multicall3: "0xcA11bde05977b3631167028862bE2a173976CA11",
			MintPools: []string{
				"0x14fcA7bfa779A4172c9b2DE61fd352C005442520",
				"0x23E2B07d85a8dbc307742C72aadbbdde4E5e2EFB",
				"0xDa13C7553A654601667adf9a1A16248bAB584F13",
				"0x65Ed60E414CEcE532d8afF90c89dA369E44CF883",
				"0x25a4b842cB200E9148FF5a11BAbF80488c8d8b07",
			},
			BondPools: []string{
				"0x6c0ac888b075c6b5141cbc1da6170b6686afd07d",
			},
			FixedTermPool:     "0x8ca97f41d2c81af050656e8ad0cf543820a24504", // 600-day pool
			RewardContract:    "0x806FDAb92B0Fc7fBE4bbBE5117A54cAa9283d5a4",
			LiquidityContract: "0x07Ff4e06865de4934409Aa6eCea503b08Cc1C78d",
			TotalQuery:        "0xdbbfa3cb3b087b64f4ef5e3d20dda2488aa244e6",
			TotalQueryTarget:  "0x0309ca717d6989676194b88fd06029a88ceefee6",
			TotalQueryPool:    "0x1964ca90474b11ffd08af387b110ba6c96251bfc",
			GovernanceToken: entity.TokenInfo{
				Address:  "0xeb51d9a39ad5eef215dc0bf39a8821ff804a0f01",
				Symbol:   "LGNS",
				Decimals: 9,
			},
			LiquidGovToken: entity.TokenInfo{
				Address:  "0x99a57e6c8558bc6689f894e068733adf83c19725",
				Symbol:   "sLGNS",
				Decimals: 9,
			},
		},
	}
)

// allKnownDefinitions is a helper to quickly access all hardcoded definitions.
var allKnownDefinitions = map[string]entity.NetworkDefinition{
	Polygon.Identifier: Polygon,
}

// ByIdentifier returns a deep copy of a known definition, so callers may override fields freely.
func ByIdentifier(identifier string) (entity.NetworkDefinition, error) {
	def, ok := allKnownDefinitions[strings.ToLower(strings.TrimSpace(identifier))]
	if !ok {
		return entity.NetworkDefinition{}, fmt.Errorf("unknown network %q", identifier)
	}
	def.FallbackRPCURLs = append([]string(nil), def.FallbackRPCURLs...)
	def.Contracts.MintPools = append([]string(nil), def.Contracts.MintPools...)
	def.Contracts.BondPools = append([]string(nil), def.Contracts.BondPools...)
	return def, nil
}

// Identifiers lists the known network identifiers.
func Identifiers() []string {
	ids := make([]string, 0, len(allKnownDefinitions))
	for id := range allKnownDefinitions {
		ids = append(ids, id)
	}
	return ids
}
