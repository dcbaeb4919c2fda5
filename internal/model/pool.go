package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// PoolState is a constant-product pool snapshot. Reserves are raw integer
// balances; token0/token1 ordering is the pool's own.
type PoolState struct {
	Address  common.Address
	Token0   common.Address
	Token1   common.Address
	Reserve0 *big.Int
	Reserve1 *big.Int

	// BlockTimestampLast is informational staleness metadata only.
	BlockTimestampLast uint32
}

// Has reports whether token is one of the pool's two tokens.
func (p PoolState) Has(token common.Address) bool {
	return p.Token0 == token || p.Token1 == token
}
