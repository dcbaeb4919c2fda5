package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/zero-given/site33/internal/model"
)

const (
	intermediatePlaces = 8
	stablePlaces       = 6
)

// writeQuote renders a quote for terminal output. Rounding happens here only.
func writeQuote(w io.Writer, q model.PriceQuote) error {
	rule := strings.Repeat("=", 50)
	x, y := q.Intermediate.Symbol, q.Stable.Symbol

	lines := []string{
		rule,
		fmt.Sprintf("Pool %s (%s/%s)", q.Pool.Hex(), q.Token0.Token.Symbol, q.Token1.Token.Symbol),
		fmt.Sprintf("1 %s = %s %s", x, q.IntermediateInStable.StringFixed(stablePlaces), y),
	}
	for _, p := range []model.DerivedPrice{q.Token0, q.Token1} {
		lines = append(lines,
			fmt.Sprintf("1 %s = %s %s", p.Token.Symbol, p.InIntermediate.StringFixed(intermediatePlaces), x),
			fmt.Sprintf("1 %s = %s %s", p.Token.Symbol, p.InStable.StringFixed(stablePlaces), y),
		)
	}
	lines = append(lines, rule)

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
