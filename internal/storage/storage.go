package storage

import (
	"context"

	"github.com/zero-given/site33/internal/model"
)

// TokenStore persists token metadata across runs. Entries never change for
// a deployed token, so stores only add.
type TokenStore interface {
	LoadTokens(ctx context.Context) ([]model.TokenMeta, error)
	PutTokens(ctx context.Context, tokens []model.TokenMeta) error
}
