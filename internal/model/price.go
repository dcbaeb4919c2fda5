package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// PriceRatio holds both directional prices of a pool together with the
// decimal-adjusted reserves they were derived from.
type PriceRatio struct {
	Reserve0  decimal.Decimal
	Reserve1  decimal.Decimal
	Price0In1 decimal.Decimal
	Price1In0 decimal.Decimal
}

// DerivedPrice is one token's price expressed through the reference chain.
type DerivedPrice struct {
	Token          TokenMeta       `json:"token"`
	InIntermediate decimal.Decimal `json:"in_intermediate"`
	InStable       decimal.Decimal `json:"in_stable"`
}

// PriceQuote is the complete result of a two-hop price resolution.
type PriceQuote struct {
	Pool          common.Address `json:"pool"`
	ReferencePool common.Address `json:"reference_pool"`

	Intermediate         TokenMeta       `json:"intermediate"`
	Stable               TokenMeta       `json:"stable"`
	IntermediateInStable decimal.Decimal `json:"intermediate_in_stable"`

	Token0 DerivedPrice `json:"token0"`
	Token1 DerivedPrice `json:"token1"`

	// BlockTimestampLast of the target pool; staleness hint only.
	BlockTimestampLast uint32 `json:"block_timestamp_last"`
}
