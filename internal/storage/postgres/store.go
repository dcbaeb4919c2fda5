package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zero-given/site33/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS token_meta (
	chain_id      BIGINT   NOT NULL,
	token_address TEXT     NOT NULL,
	symbol        TEXT     NOT NULL,
	decimals      SMALLINT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (chain_id, token_address)
)`

// Store provides Postgres persistence for token metadata of one chain.
type Store struct {
	pool    *pgxpool.Pool
	chainID uint64
}

func NewStore(ctx context.Context, dsn string, chainID uint64) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, chainID: chainID}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the token_meta table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create token_meta: %w", err)
	}
	return nil
}

// LoadTokens returns every token stored for the chain.
func (s *Store) LoadTokens(ctx context.Context) ([]model.TokenMeta, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT token_address, symbol, decimals
		FROM token_meta
		WHERE chain_id = $1
		ORDER BY token_address
	`, int64(s.chainID))
	if err != nil {
		return nil, fmt.Errorf("query token_meta: %w", err)
	}
	defer rows.Close()

	var tokens []model.TokenMeta
	for rows.Next() {
		var (
			meta     model.TokenMeta
			decimals int16
		)
		if err := rows.Scan(&meta.Address, &meta.Symbol, &decimals); err != nil {
			return nil, fmt.Errorf("scan token_meta: %w", err)
		}
		if decimals < 0 || decimals > 255 {
			return nil, fmt.Errorf("token %s: stored decimals %d out of range", meta.Address, decimals)
		}
		meta.Decimals = uint8(decimals)
		tokens = append(tokens, meta)
	}
	return tokens, rows.Err()
}

// PutTokens inserts tokens not yet stored. Existing rows are left untouched.
func (s *Store) PutTokens(ctx context.Context, tokens []model.TokenMeta) error {
	if len(tokens) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, meta := range tokens {
		batch.Queue(`
			INSERT INTO token_meta (chain_id, token_address, symbol, decimals)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (chain_id, token_address) DO NOTHING
		`,
			int64(s.chainID),
			meta.Address,
			meta.Symbol,
			int16(meta.Decimals),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range tokens {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
