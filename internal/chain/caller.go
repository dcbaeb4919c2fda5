package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
)

// Caller executes read-only contract calls. It is the only remote dependency
// of the pricing core; tests substitute it to simulate transport failures.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}
