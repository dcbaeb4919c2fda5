package dex

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/zero-given/site33/internal/apperrors"
	"github.com/zero-given/site33/internal/chain"
)

const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxAttempts = 3
	DefaultBackoff     = 250 * time.Millisecond
)

// CallOptions bounds every remote read.
type CallOptions struct {
	Timeout     time.Duration
	MaxAttempts int
	BackoffBase time.Duration
}

func (o CallOptions) withDefaults() CallOptions {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MaxAttempts < 1 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = DefaultBackoff
	}
	return o
}

// Budget is the longest one call can take: every attempt timing out plus
// the backoff sleeps between attempts.
func (o CallOptions) Budget() time.Duration {
	o = o.withDefaults()
	total := time.Duration(o.MaxAttempts) * o.Timeout
	delays := newBackoff(o.BackoffBase)
	for i := 1; i < o.MaxAttempts; i++ {
		total += delays.Duration()
	}
	return total
}

// contractCall performs one eth_call at the latest block and returns the raw
// response. Each attempt gets its own timeout.
func contractCall(ctx context.Context, caller chain.Caller, opts CallOptions, to common.Address, parsed abi.ABI, method string, logger *zap.Logger) ([]byte, error) {
	data, err := parsed.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &to, Data: data}

	var resp []byte
	err = withRetry(ctx, opts.MaxAttempts, opts.BackoffBase, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
		defer cancel()

		out, err := caller.CallContract(callCtx, msg, nil)
		if err != nil {
			err = chain.Classify(err)
			logger.Debug("contract call failed", zap.String("to", to.Hex()), zap.String("method", method), zap.Error(err))
			return err
		}
		resp = out
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	return resp, nil
}

// unpack decodes resp, tagging decode failures as a contract mismatch.
func unpack(parsed abi.ABI, method string, resp []byte, want int) ([]interface{}, error) {
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("%w: unpack %s: %w", apperrors.ErrContractMismatch, method, err)
	}
	if len(values) < want {
		return nil, fmt.Errorf("%w: %s returned %d values, expected %d", apperrors.ErrContractMismatch, method, len(values), want)
	}
	return values, nil
}
