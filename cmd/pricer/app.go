package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/zero-given/site33/internal/chain"
	"github.com/zero-given/site33/internal/config"
	"github.com/zero-given/site33/internal/dex"
	"github.com/zero-given/site33/internal/pricing"
	"github.com/zero-given/site33/internal/storage"
	"github.com/zero-given/site33/internal/storage/postgres"
)

// app holds the wired pricing stack for one process.
type app struct {
	logger    *zap.Logger
	client    *chain.Client
	callOpts  dex.CallOptions
	cache     *dex.TokenMetaCache
	converter *pricing.Converter
	stores    []storage.TokenStore
	closers   []func()
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	client, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}
	a := &app{
		logger:  logger,
		client:  client,
		cache:   dex.NewTokenMetaCache(),
		closers: []func(){client.Close},
	}

	chainID, err := client.GetChainID(ctx)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("chain id: %w", err)
	}
	logger.Info("connected", zap.String("chain_id", chainID.String()))

	a.callOpts = dex.CallOptions{
		Timeout:     cfg.RemoteTimeout,
		MaxAttempts: cfg.MaxAttempts,
		BackoffBase: cfg.RetryBackoff,
	}
	resolver := dex.NewTokenResolver(client, dex.ResolverConfig{Call: a.callOpts, Cache: a.cache, Logger: logger})
	reader := dex.NewPoolReader(client, a.callOpts, logger)

	a.converter, err = pricing.NewConverter(reader, resolver, pricing.Config{
		ReferencePool:     cfg.ReferencePool,
		IntermediateToken: cfg.IntermediateToken,
		Precision:         cfg.DecimalPrecision,
	}, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	if cfg.TokenCache != "" {
		a.stores = append(a.stores, storage.NewJsonlTokenStore(cfg.TokenCache))
	}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN, chainID.Uint64())
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		if err := store.EnsureSchema(ctx); err != nil {
			a.Close()
			return nil, err
		}
		a.stores = append(a.stores, store)
	}

	for _, store := range a.stores {
		tokens, err := store.LoadTokens(ctx)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("load tokens: %w", err)
		}
		if err := resolver.Seed(tokens); err != nil {
			logger.Warn("stored token metadata rejected", zap.Error(err))
		}
		logger.Info("token metadata loaded", zap.Int("tokens", len(tokens)))
	}

	return a, nil
}

// persistTokens writes every resolved token back to the configured stores.
func (a *app) persistTokens(ctx context.Context) {
	if len(a.stores) == 0 {
		return
	}
	tokens := a.cache.Snapshot()
	for _, store := range a.stores {
		if err := store.PutTokens(ctx, tokens); err != nil {
			a.logger.Warn("persist token metadata failed", zap.Error(err))
		}
	}
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
