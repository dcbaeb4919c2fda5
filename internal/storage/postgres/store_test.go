package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zero-given/site33/internal/model"
)

// newTestStore connects to PRICER_TEST_PG_DSN. Each test gets its own chain
// id so rows never collide.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("PRICER_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("PRICER_TEST_PG_DSN not set")
	}

	ctx := context.Background()
	store, err := NewStore(ctx, dsn, uint64(time.Now().UnixNano()))
	require.NoError(t, err)
	t.Cleanup(store.Close)

	require.NoError(t, store.EnsureSchema(ctx))
	t.Cleanup(func() {
		_, _ = store.pool.Exec(context.Background(), `DELETE FROM token_meta WHERE chain_id = $1`, int64(store.chainID))
	})
	return store
}

func TestNewStoreRequiresDSN(t *testing.T) {
	_, err := NewStore(context.Background(), "", 1)
	require.Error(t, err)
}

func TestStoreKeepsFirstEntry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	usdc := model.TokenMeta{Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Symbol: "USDC", Decimals: 6}
	weth := model.TokenMeta{Address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", Symbol: "WETH", Decimals: 18}

	require.NoError(t, store.PutTokens(ctx, []model.TokenMeta{usdc}))
	conflicting := usdc
	conflicting.Decimals = 18
	require.NoError(t, store.PutTokens(ctx, []model.TokenMeta{conflicting, weth}))
	require.NoError(t, store.EnsureSchema(ctx))

	tokens, err := store.LoadTokens(ctx)
	require.NoError(t, err)
	require.Equal(t, []model.TokenMeta{usdc, weth}, tokens)
}

func TestStoreRejectsOutOfRangeDecimals(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.pool.Exec(ctx, `
		INSERT INTO token_meta (chain_id, token_address, symbol, decimals)
		VALUES ($1, $2, $3, $4)
	`, int64(store.chainID), "0x6B175474E89094C44Da98b954EedeAC495271d0F", "DAI", int16(300))
	require.NoError(t, err)

	_, err = store.LoadTokens(ctx)
	require.ErrorContains(t, err, "out of range")
}
