package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/zero-given/site33/internal/config"
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "pricer",
		Short:        "Constant-product pool spot pricer",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	priceCmd := &cobra.Command{
		Use:   "price [pool...]",
		Short: "Price pool tokens through the reference pool; reads pools from stdin when none are given",
		RunE:  runPrice,
	}
	addCommonFlags(priceCmd)
	root.AddCommand(priceCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve price quotes over HTTP",
		RunE:  runServe,
	}
	addCommonFlags(serveCmd)
	serveCmd.Flags().String("listen", ":1337", "HTTP listen address")
	root.AddCommand(serveCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", "", "Ethereum RPC URL")
	cmd.Flags().Duration("remote-timeout", 10*time.Second, "timeout per remote call")
	cmd.Flags().Int32("decimal-precision", 28, "significant digits kept in prices (>= 18)")
	cmd.Flags().String("reference-pool", config.DefaultReferencePool, "reference pool pricing the intermediate unit")
	cmd.Flags().String("intermediate-token", config.DefaultIntermediateToken, "intermediate unit token (empty infers the shared token)")
	cmd.Flags().Int("max-attempts", 3, "attempts per remote call on transient failures")
	cmd.Flags().Duration("retry-backoff", 250*time.Millisecond, "initial retry backoff")
	cmd.Flags().String("token-cache", "", "optional JSONL token metadata file")
	cmd.Flags().String("pg-dsn", "", "optional Postgres DSN for token metadata")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
