package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/spf13/cobra"

	"github.com/bryanwahyu/prodpulse/internal/config"
	domain "github.com/bryanwahyu/prodpulse/internal/domain/analysis"
	"github.com/bryanwahyu/prodpulse/internal/infra/db/kv"
	"github.com/bryanwahyu/prodpulse/internal/infra/db/memory"
	mysqlp "github.com/bryanwahyu/prodpulse/internal/infra/db/mysql"
	"github.com/bryanwahyu/prodpulse/internal/infra/db/postgres"
)

const defaultConfigPath = "config.yaml"

// loadConfig reads --config, then CONFIG_PATH, then ./config.yaml. A missing
// default file is not an error.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path != "" {
		return config.Load(path)
	}

	cfg, err := config.Load(defaultConfigPath)
	if errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return cfg, err
}

// openStore connects the HistoryStore selected by database.driver.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.HistoryStore, error) {
	db := cfg.Database
	switch db.Driver {
	case config.DriverMemory:
		return memory.NewHistoryRepository(), nil

	case config.DriverBadger:
		repo, err := kv.Open(kv.Config{Path: db.Path, InMemory: db.Path == "", SyncWrites: true, Logger: logger})
		if err != nil {
			return nil, err
		}
		return repo, nil

	case config.DriverMySQL:
		conn, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, err
		}
		if db.AutoMigrate {
			if err := mysqlp.Migrate(ctx, conn); err != nil {
				_ = conn.Close()
				return nil, err
			}
		}
		return mysqlp.NewHistoryRepository(conn), nil

	case config.DriverPostgres, config.DriverPgx:
		conn, err := postgres.Connect(ctx, db.Driver, cfg.PostgresDSN())
		if err != nil {
			return nil, err
		}
		if db.AutoMigrate {
			if err := postgres.Migrate(ctx, conn); err != nil {
				_ = conn.Close()
				return nil, err
			}
		}
		return postgres.NewHistoryRepository(conn), nil
	}
	return nil, goerr.New("unknown database driver", goerr.V("driver", db.Driver))
}
