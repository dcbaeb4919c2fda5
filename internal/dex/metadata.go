package dex

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/zero-given/site33/internal/apperrors"
	"github.com/zero-given/site33/internal/chain"
	"github.com/zero-given/site33/internal/model"
)

// TokenMetaCache caches token metadata by address for the process lifetime.
type TokenMetaCache struct {
	mu   sync.RWMutex
	data map[common.Address]model.TokenMeta
}

func NewTokenMetaCache() *TokenMetaCache {
	return &TokenMetaCache{data: make(map[common.Address]model.TokenMeta)}
}

func (c *TokenMetaCache) Get(address common.Address) (model.TokenMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

func (c *TokenMetaCache) Set(address common.Address, meta model.TokenMeta) {
	c.mu.Lock()
	c.data[address] = meta
	c.mu.Unlock()
}

// Snapshot returns every cached entry.
func (c *TokenMetaCache) Snapshot() []model.TokenMeta {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.TokenMeta, 0, len(c.data))
	for _, meta := range c.data {
		out = append(out, meta)
	}
	return out
}

// ResolverConfig configures a TokenResolver.
type ResolverConfig struct {
	Call CallOptions
	// Cache is optional; nil means every Resolve reads the chain.
	Cache  *TokenMetaCache
	Logger *zap.Logger
}

// TokenResolver reads ERC20 symbol and decimals. Every read is checked
// against the decimals already observed for the token in this session.
type TokenResolver struct {
	caller chain.Caller
	opts   CallOptions
	cache  *TokenMetaCache
	logger *zap.Logger

	mu   sync.Mutex
	seen map[common.Address]uint8
	// unverified holds seeded tokens not yet confirmed against the chain.
	unverified map[common.Address]bool
}

func NewTokenResolver(caller chain.Caller, cfg ResolverConfig) *TokenResolver {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenResolver{
		caller: caller,
		opts:   cfg.Call.withDefaults(),
		cache:  cfg.Cache,
		logger: logger,
		seen:   make(map[common.Address]uint8),

		unverified: make(map[common.Address]bool),
	}
}

// Resolve returns the token's metadata, from cache when available. Seeded
// entries are read from chain once before the cache serves them.
func (r *TokenResolver) Resolve(ctx context.Context, token common.Address) (model.TokenMeta, error) {
	if token == (common.Address{}) {
		return model.TokenMeta{}, fmt.Errorf("%w: zero token address", apperrors.ErrInvalidIdentifier)
	}
	if r.cache != nil && !r.isUnverified(token) {
		if meta, ok := r.cache.Get(token); ok {
			return meta, nil
		}
	}
	return r.fetch(ctx, token)
}

// Refresh re-reads the token from chain, bypassing the cache.
func (r *TokenResolver) Refresh(ctx context.Context, token common.Address) (model.TokenMeta, error) {
	if token == (common.Address{}) {
		return model.TokenMeta{}, fmt.Errorf("%w: zero token address", apperrors.ErrInvalidIdentifier)
	}
	return r.fetch(ctx, token)
}

// ResolvePair resolves both tokens concurrently. The lookups are independent:
// when one fails the other's metadata is still returned (and cached).
func (r *TokenResolver) ResolvePair(ctx context.Context, token0, token1 common.Address) (model.TokenMeta, model.TokenMeta, error) {
	tokens := [2]common.Address{token0, token1}
	var (
		metas [2]model.TokenMeta
		errs  [2]error
		wg    sync.WaitGroup
	)

	wg.Add(len(tokens))
	for i := range tokens {
		go func(i int) {
			defer wg.Done()
			metas[i], errs[i] = r.Resolve(ctx, tokens[i])
		}(i)
	}
	wg.Wait()

	var combined error
	for i, err := range errs {
		if err != nil {
			combined = multierr.Append(combined, fmt.Errorf("token%d %s: %w", i, tokens[i].Hex(), err))
		}
	}
	return metas[0], metas[1], combined
}

// Seed loads previously persisted metadata into the cache and the session
// ledger. Each seeded token is checked against the chain on its first Resolve.
func (r *TokenResolver) Seed(metas []model.TokenMeta) error {
	var combined error
	for _, meta := range metas {
		if !common.IsHexAddress(meta.Address) {
			combined = multierr.Append(combined, fmt.Errorf("%w: stored token %q", apperrors.ErrInvalidIdentifier, meta.Address))
			continue
		}
		addr := common.HexToAddress(meta.Address)
		if err := r.observe(addr, meta.Decimals); err != nil {
			combined = multierr.Append(combined, err)
			continue
		}
		r.mu.Lock()
		r.unverified[addr] = true
		r.mu.Unlock()
		if r.cache != nil {
			r.cache.Set(addr, meta)
		}
	}
	return combined
}

func (r *TokenResolver) isUnverified(token common.Address) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unverified[token]
}

func (r *TokenResolver) fetch(ctx context.Context, token common.Address) (model.TokenMeta, error) {
	meta, err := r.read(ctx, token)
	if err != nil {
		return model.TokenMeta{}, err
	}
	if err := r.observe(token, meta.Decimals); err != nil {
		return model.TokenMeta{}, err
	}
	r.markVerified(token)
	if r.cache != nil {
		r.cache.Set(token, meta)
	}
	r.logger.Debug("token resolved", zap.String("token", meta.Address), zap.String("symbol", meta.Symbol), zap.Uint8("decimals", meta.Decimals))
	return meta, nil
}

func (r *TokenResolver) observe(token common.Address, decimals uint8) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.seen[token]; ok && prev != decimals {
		return fmt.Errorf("%w: token %s reported %d decimals, previously %d", apperrors.ErrDataIntegrity, token.Hex(), decimals, prev)
	}
	r.seen[token] = decimals
	return nil
}

func (r *TokenResolver) markVerified(token common.Address) {
	r.mu.Lock()
	delete(r.unverified, token)
	r.mu.Unlock()
}

// read performs exactly two calls: decimals and symbol.
func (r *TokenResolver) read(ctx context.Context, token common.Address) (model.TokenMeta, error) {
	stringABI, err := erc20ABIStringInstance()
	if err != nil {
		return model.TokenMeta{}, fmt.Errorf("parse erc20 string abi: %w", err)
	}

	resp, err := contractCall(ctx, r.caller, r.opts, token, stringABI, "decimals", r.logger)
	if err != nil {
		return model.TokenMeta{}, err
	}
	values, err := unpack(stringABI, "decimals", resp, 1)
	if err != nil {
		return model.TokenMeta{}, err
	}
	decimals, err := asDecimals(values[0])
	if err != nil {
		return model.TokenMeta{}, err
	}

	resp, err = contractCall(ctx, r.caller, r.opts, token, stringABI, "symbol", r.logger)
	if err != nil {
		return model.TokenMeta{}, err
	}
	symbol, err := decodeSymbol(stringABI, resp)
	if err != nil {
		return model.TokenMeta{}, err
	}

	return model.TokenMeta{
		Address:  token.Hex(),
		Symbol:   symbol,
		Decimals: decimals,
	}, nil
}

// decodeSymbol decodes a symbol response as string, falling back to the
// bytes32 encoding some older tokens use.
func decodeSymbol(stringABI abi.ABI, resp []byte) (string, error) {
	if values, err := stringABI.Unpack("symbol", resp); err == nil && len(values) > 0 {
		if symbol, ok := values[0].(string); ok {
			return symbol, nil
		}
	}

	bytes32ABI, err := erc20ABIBytes32Instance()
	if err != nil {
		return "", fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}
	values, err := unpack(bytes32ABI, "symbol", resp, 1)
	if err != nil {
		return "", err
	}
	symbol, ok := bytes32ToString(values[0])
	if !ok {
		return "", fmt.Errorf("%w: symbol unexpected type %T", apperrors.ErrContractMismatch, values[0])
	}
	return symbol, nil
}
