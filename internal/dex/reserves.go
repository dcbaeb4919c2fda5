package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zero-given/site33/internal/apperrors"
	"github.com/zero-given/site33/internal/chain"
	"github.com/zero-given/site33/internal/model"
)

// PoolReader reads token ordering and reserves of constant-product pairs.
// Reserves are never cached.
type PoolReader struct {
	caller chain.Caller
	opts   CallOptions
	logger *zap.Logger
}

func NewPoolReader(caller chain.Caller, opts CallOptions, logger *zap.Logger) *PoolReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PoolReader{
		caller: caller,
		opts:   opts.withDefaults(),
		logger: logger,
	}
}

// Read issues token0, token1 and getReserves concurrently. The first failure
// cancels the remaining calls.
func (p *PoolReader) Read(ctx context.Context, pool common.Address) (model.PoolState, error) {
	if pool == (common.Address{}) {
		return model.PoolState{}, fmt.Errorf("%w: zero pool address", apperrors.ErrInvalidIdentifier)
	}

	pairABI, err := V2PairABI()
	if err != nil {
		return model.PoolState{}, fmt.Errorf("parse pair abi: %w", err)
	}

	state := model.PoolState{Address: pool}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		token, err := p.readToken(gctx, pool, "token0")
		state.Token0 = token
		return err
	})
	g.Go(func() error {
		token, err := p.readToken(gctx, pool, "token1")
		state.Token1 = token
		return err
	})
	g.Go(func() error {
		resp, err := contractCall(gctx, p.caller, p.opts, pool, pairABI, "getReserves", p.logger)
		if err != nil {
			return err
		}
		values, err := unpack(pairABI, "getReserves", resp, 3)
		if err != nil {
			return err
		}
		if state.Reserve0, err = asBigInt(values[0]); err != nil {
			return fmt.Errorf("reserve0: %w", err)
		}
		if state.Reserve1, err = asBigInt(values[1]); err != nil {
			return fmt.Errorf("reserve1: %w", err)
		}
		state.BlockTimestampLast = asUint32(values[2])
		return nil
	})

	if err := g.Wait(); err != nil {
		return model.PoolState{}, err
	}

	if state.Token0 == state.Token1 {
		return model.PoolState{}, fmt.Errorf("%w: pool %s reports identical tokens", apperrors.ErrContractMismatch, pool.Hex())
	}
	if isZero(state.Reserve0) || isZero(state.Reserve1) {
		return model.PoolState{}, fmt.Errorf("%w: pool %s reserves %s/%s", apperrors.ErrEmptyPool, pool.Hex(), state.Reserve0, state.Reserve1)
	}

	p.logger.Debug("pool read",
		zap.String("pool", pool.Hex()),
		zap.String("token0", state.Token0.Hex()),
		zap.String("token1", state.Token1.Hex()),
		zap.String("reserve0", state.Reserve0.String()),
		zap.String("reserve1", state.Reserve1.String()),
		zap.Uint32("block_timestamp_last", state.BlockTimestampLast),
	)
	return state, nil
}

func (p *PoolReader) readToken(ctx context.Context, pool common.Address, method string) (common.Address, error) {
	pairABI, err := V2PairABI()
	if err != nil {
		return common.Address{}, fmt.Errorf("parse pair abi: %w", err)
	}
	resp, err := contractCall(ctx, p.caller, p.opts, pool, pairABI, method, p.logger)
	if err != nil {
		return common.Address{}, err
	}
	values, err := unpack(pairABI, method, resp, 1)
	if err != nil {
		return common.Address{}, err
	}
	token, err := asAddress(values[0])
	if err != nil {
		return common.Address{}, fmt.Errorf("%s: %w", method, err)
	}
	if token == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: %s is the zero address", apperrors.ErrContractMismatch, method)
	}
	return token, nil
}

func isZero(v *big.Int) bool {
	return v == nil || v.Sign() == 0
}
