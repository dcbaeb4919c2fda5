package pricing

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zero-given/site33/internal/apperrors"
	"github.com/zero-given/site33/internal/model"
)

// PoolStateReader reads fresh pool state.
type PoolStateReader interface {
	Read(ctx context.Context, pool common.Address) (model.PoolState, error)
}

// TokenInfoResolver resolves the metadata of both tokens of a pool.
type TokenInfoResolver interface {
	ResolvePair(ctx context.Context, token0, token1 common.Address) (model.TokenMeta, model.TokenMeta, error)
}

// Config fixes the reference chain.
type Config struct {
	ReferencePool common.Address
	// IntermediateToken is the unit shared by the target and reference pools.
	// Zero means the single shared token is used.
	IntermediateToken common.Address
	Precision         int32
}

// Converter prices pool tokens in the reference pool's stable unit.
type Converter struct {
	pools  PoolStateReader
	tokens TokenInfoResolver
	cfg    Config
	logger *zap.Logger
}

func NewConverter(pools PoolStateReader, tokens TokenInfoResolver, cfg Config, logger *zap.Logger) (*Converter, error) {
	if cfg.ReferencePool == (common.Address{}) {
		return nil, fmt.Errorf("%w: reference pool is required", apperrors.ErrInvalidIdentifier)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Precision = ClampPrecision(cfg.Precision)
	return &Converter{
		pools:  pools,
		tokens: tokens,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// ReferencePool returns the configured reference pool.
func (c *Converter) ReferencePool() common.Address {
	return c.cfg.ReferencePool
}

// Quote prices pool through the configured reference pool.
func (c *Converter) Quote(ctx context.Context, pool common.Address) (model.PriceQuote, error) {
	return c.GetPrice(ctx, pool, c.cfg.ReferencePool)
}

type hopResult struct {
	state  model.PoolState
	token0 model.TokenMeta
	token1 model.TokenMeta
	ratio  model.PriceRatio
}

func (h hopResult) meta(token common.Address) model.TokenMeta {
	if token == h.state.Token0 {
		return h.token0
	}
	return h.token1
}

// priceOf returns token's price in the pool's other token.
func (h hopResult) priceOf(token common.Address) decimal.Decimal {
	if token == h.state.Token0 {
		return h.ratio.Price0In1
	}
	return h.ratio.Price1In0
}

func (h hopResult) other(token common.Address) common.Address {
	if token == h.state.Token0 {
		return h.state.Token1
	}
	return h.state.Token0
}

// GetPrice resolves the target and reference pools concurrently and prices
// both target tokens in the reference pool's stable unit. A failure in
// either hop cancels the other and is returned as *apperrors.HopError.
func (c *Converter) GetPrice(ctx context.Context, pool, reference common.Address) (model.PriceQuote, error) {
	if pool == (common.Address{}) || reference == (common.Address{}) {
		return model.PriceQuote{}, fmt.Errorf("%w: pool and reference pool are required", apperrors.ErrInvalidIdentifier)
	}

	var target, ref hopResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		target, err = c.resolveHop(gctx, apperrors.HopTarget, pool)
		return err
	})
	g.Go(func() error {
		var err error
		ref, err = c.resolveHop(gctx, apperrors.HopReference, reference)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.PriceQuote{}, err
	}

	x, err := c.intermediate(target, ref)
	if err != nil {
		return model.PriceQuote{}, err
	}

	xInStable := ref.priceOf(x)
	quote := model.PriceQuote{
		Pool:                 pool,
		ReferencePool:        reference,
		Intermediate:         ref.meta(x),
		Stable:               ref.meta(ref.other(x)),
		IntermediateInStable: xInStable,
		Token0:               c.derive(target, target.state.Token0, x, xInStable),
		Token1:               c.derive(target, target.state.Token1, x, xInStable),
		BlockTimestampLast:   target.state.BlockTimestampLast,
	}

	c.logger.Debug("price resolved",
		zap.String("pool", pool.Hex()),
		zap.String("reference_pool", reference.Hex()),
		zap.String("intermediate", quote.Intermediate.Symbol),
		zap.String("intermediate_in_stable", xInStable.String()),
		zap.String("token0_in_stable", quote.Token0.InStable.String()),
		zap.String("token1_in_stable", quote.Token1.InStable.String()),
	)
	return quote, nil
}

func (c *Converter) resolveHop(ctx context.Context, hop apperrors.Hop, pool common.Address) (hopResult, error) {
	wrap := func(err error) error {
		return &apperrors.HopError{Hop: hop, Pool: pool, Err: err}
	}

	state, err := c.pools.Read(ctx, pool)
	if err != nil {
		return hopResult{}, wrap(err)
	}
	token0, token1, err := c.tokens.ResolvePair(ctx, state.Token0, state.Token1)
	if err != nil {
		return hopResult{}, wrap(err)
	}
	ratio, err := Normalize(state, token0, token1, c.cfg.Precision)
	if err != nil {
		return hopResult{}, wrap(err)
	}
	return hopResult{state: state, token0: token0, token1: token1, ratio: ratio}, nil
}

// intermediate picks the unit linking the two pools.
func (c *Converter) intermediate(target, ref hopResult) (common.Address, error) {
	if x := c.cfg.IntermediateToken; x != (common.Address{}) {
		if !ref.state.Has(x) {
			return common.Address{}, &apperrors.HopError{
				Hop:  apperrors.HopReference,
				Pool: ref.state.Address,
				Err:  fmt.Errorf("%w: reference pool does not hold %s", apperrors.ErrUnroutable, x.Hex()),
			}
		}
		if !target.state.Has(x) {
			return common.Address{}, &apperrors.HopError{
				Hop:  apperrors.HopTarget,
				Pool: target.state.Address,
				Err:  fmt.Errorf("%w: pool does not hold %s", apperrors.ErrUnroutable, x.Hex()),
			}
		}
		return x, nil
	}

	var shared []common.Address
	for _, token := range []common.Address{target.state.Token0, target.state.Token1} {
		if ref.state.Has(token) {
			shared = append(shared, token)
		}
	}
	if len(shared) != 1 {
		return common.Address{}, &apperrors.HopError{
			Hop:  apperrors.HopTarget,
			Pool: target.state.Address,
			Err:  fmt.Errorf("%w: %d tokens shared with reference pool %s", apperrors.ErrUnroutable, len(shared), ref.state.Address.Hex()),
		}
	}
	return shared[0], nil
}

func (c *Converter) derive(target hopResult, token, x common.Address, xInStable decimal.Decimal) model.DerivedPrice {
	inX := decimal.NewFromInt(1)
	if token != x {
		inX = target.priceOf(token)
	}
	return model.DerivedPrice{
		Token:          target.meta(token),
		InIntermediate: inX,
		InStable:       roundSignificant(inX.Mul(xInStable), c.cfg.Precision),
	}
}
