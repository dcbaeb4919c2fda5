package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/zero-given/site33/internal/apperrors"
	"github.com/zero-given/site33/internal/model"
)

var (
	goodPool = common.HexToAddress("0x1111111111111111111111111111111111111111")
	badPool  = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

type fakeQuoter struct {
	calls []common.Address
}

func (f *fakeQuoter) Quote(_ context.Context, pool common.Address) (model.PriceQuote, error) {
	f.calls = append(f.calls, pool)
	if pool == badPool {
		return model.PriceQuote{}, &apperrors.HopError{Hop: apperrors.HopTarget, Pool: pool, Err: apperrors.ErrEmptyPool}
	}
	return sampleQuote(pool), nil
}

func sampleQuote(pool common.Address) model.PriceQuote {
	return model.PriceQuote{
		Pool:                 pool,
		Intermediate:         model.TokenMeta{Symbol: "WETH", Decimals: 18},
		Stable:               model.TokenMeta{Symbol: "USDC", Decimals: 6},
		IntermediateInStable: decimal.RequireFromString("1.0005"),
		Token0: model.DerivedPrice{
			Token:          model.TokenMeta{Symbol: "TKN", Decimals: 18},
			InIntermediate: decimal.NewFromInt(2500),
			InStable:       decimal.RequireFromString("2501.25"),
		},
		Token1: model.DerivedPrice{
			Token:          model.TokenMeta{Symbol: "WETH", Decimals: 18},
			InIntermediate: decimal.NewFromInt(1),
			InStable:       decimal.RequireFromString("1.0005"),
		},
	}
}

func TestWriteQuote(t *testing.T) {
	var buf bytes.Buffer
	if err := writeQuote(&buf, sampleQuote(goodPool)); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Pool 0x1111111111111111111111111111111111111111 (TKN/WETH)",
		"1 WETH = 1.000500 USDC",
		"1 TKN = 2500.00000000 WETH",
		"1 TKN = 2501.250000 USDC",
		"1 WETH = 1.00000000 WETH",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestPriceInteractiveContinuesAfterFailure(t *testing.T) {
	in := strings.NewReader(strings.Join([]string{
		"not-an-address",
		badPool.Hex(),
		goodPool.Hex(),
		"",
		goodPool.Hex(),
	}, "\n"))
	var out bytes.Buffer
	q := &fakeQuoter{}

	if err := priceInteractive(context.Background(), q, in, &out, zap.NewNop()); err != nil {
		t.Fatalf("interactive: %v", err)
	}

	if len(q.calls) != 2 || q.calls[0] != badPool || q.calls[1] != goodPool {
		t.Fatalf("unexpected quotes: %v", q.calls)
	}
	text := out.String()
	if strings.Count(text, "Error:") != 2 {
		t.Fatalf("expected two reported failures:\n%s", text)
	}
	if !strings.Contains(text, "2501.250000 USDC") || !strings.Contains(text, "Exiting...") {
		t.Fatalf("unexpected output:\n%s", text)
	}
}

func TestPriceInteractiveEOF(t *testing.T) {
	var out bytes.Buffer
	q := &fakeQuoter{}
	if err := priceInteractive(context.Background(), q, strings.NewReader(goodPool.Hex()), &out, zap.NewNop()); err != nil {
		t.Fatalf("interactive: %v", err)
	}
	if len(q.calls) != 1 {
		t.Fatalf("expected one quote, got %d", len(q.calls))
	}
}

func TestPriceOneRejectsBadInput(t *testing.T) {
	q := &fakeQuoter{}
	err := priceOne(context.Background(), q, "0x123", &bytes.Buffer{})
	if !errors.Is(err, apperrors.ErrInvalidIdentifier) {
		t.Fatalf("expected invalid identifier, got %v", err)
	}
	if len(q.calls) != 0 {
		t.Fatalf("no quote expected for bad input")
	}
}
