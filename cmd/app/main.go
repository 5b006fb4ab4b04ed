package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/freshcart/storefront/internal/infrastructure/config"
	"github.com/freshcart/storefront/internal/infrastructure/database"
	"github.com/freshcart/storefront/internal/infrastructure/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "freshcart",
		Short:         "FreshCart storefront API",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(serveCmd(), migrateCmd(), mockCmd())
	return root
}

// setup loads configuration and builds the process logger.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	return cfg, log.With(zap.String("app", cfg.App.Name), zap.String("env", cfg.App.Env)), nil
}

func openDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("database.url is not set")
	}
	return database.Open(ctx, database.Config{
		URL:          cfg.Database.URL,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
}
