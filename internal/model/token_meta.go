package model

// TokenMeta captures the ERC20 metadata needed for pricing.
// Symbol and decimals never change for a deployed token.
type TokenMeta struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}
