package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zero-given/site33/internal/dex"
	transporthttp "github.com/zero-given/site33/internal/transport/http"
)

func runServe(cmd *cobra.Command, _ []string) error {
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

	requestTimeout := requestBudget(a.callOpts)
	server := transporthttp.NewServer(a.converter, requestTimeout, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Listen(cfg.Listen)
	}()
	logger.Info("serving", zap.String("listen", cfg.Listen), zap.String("reference_pool", cfg.ReferencePool.Hex()))

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	logger.Info("shutting down")
	return server.Shutdown()
}

// requestBudget bounds one quote. A hop makes at most three sequential calls:
// the pool read, then decimals and symbol of each token.
func requestBudget(opts dex.CallOptions) time.Duration {
	return 3 * opts.Budget()
}
