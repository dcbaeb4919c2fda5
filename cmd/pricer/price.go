package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zero-given/site33/internal/model"
)

type quoter interface {
	Quote(ctx context.Context, pool common.Address) (model.PriceQuote, error)
}

func runPrice(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	defer a.persistTokens(context.Background())

	pools := args
	if len(pools) == 0 {
		pools = cfg.Pools
	}
	out := cmd.OutOrStdout()
	if len(pools) == 0 {
		return priceInteractive(ctx, a.converter, cmd.InOrStdin(), out, logger)
	}

	failed := 0
	for _, raw := range pools {
		if err := priceOne(ctx, a.converter, raw, out); err != nil {
			failed++
			logger.Error("price failed", zap.String("pool", raw), zap.Error(err))
			fmt.Fprintf(out, "Error: %v\n", err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d pools failed", failed, len(pools))
	}
	return nil
}

// priceInteractive prices one pool per input line until EOF or an empty line.
// A failed line is reported and the loop continues.
func priceInteractive(ctx context.Context, q quoter, in io.Reader, out io.Writer, logger *zap.Logger) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "Enter pair address (or Enter to exit): ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			fmt.Fprintln(out, "Exiting...")
			return nil
		}
		if err := priceOne(ctx, q, line, out); err != nil {
			logger.Debug("price failed", zap.String("pool", line), zap.Error(err))
			fmt.Fprintf(out, "Error: %v\n", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func priceOne(ctx context.Context, q quoter, raw string, out io.Writer) error {
	pool, err := model.ParseAddress(raw)
	if err != nil {
		return err
	}
	quote, err := q.Quote(ctx, pool)
	if err != nil {
		return err
	}
	return writeQuote(out, quote)
}
