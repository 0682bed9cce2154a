package entity

// TokenInfo holds the details of a specific token.
type TokenInfo struct {
	Address  string `json:"address" yaml:"address"`
	Symbol   string `json:"symbol" yaml:"symbol"`
	Decimals uint8  `json:"decimals" yaml:"decimals"`
}
