package chain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/zero-given/site33/internal/apperrors"
)

// JSON-RPC error code geth uses for reverted eth_call executions.
const revertErrorCode = 3

// Classify tags a CallContract failure with its error kind. A node that
// answered with a revert means the contract is wrong for the call; anything
// else (timeouts, dial errors, rate limits) is treated as transient.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if apperrors.Kind(err) != nil {
		return err
	}
	if isRevert(err) {
		return fmt.Errorf("%w: %w", apperrors.ErrContractMismatch, err)
	}
	return fmt.Errorf("%w: %w", apperrors.ErrRemoteUnavailable, err)
}

func isRevert(err error) bool {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == revertErrorCode {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "execution reverted")
}
