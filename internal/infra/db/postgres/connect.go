package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/m-mizutani/goerr/v2"
)

// Driver names registered with database/sql.
const (
	DriverPQ  = "postgres"
	DriverPgx = "pgx"
)

// Connect opens a pool with driver "postgres" (lib/pq) or "pgx" (pgx stdlib).
func Connect(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	if driver != DriverPQ && driver != DriverPgx {
		return nil, goerr.New("unsupported postgres driver", goerr.V("driver", driver))
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open postgres", goerr.V("driver", driver))
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to ping postgres", goerr.V("driver", driver))
	}
	return db, nil
}

var schema = []string{`
CREATE TABLE IF NOT EXISTS analysis_history (
  id          BIGSERIAL    PRIMARY KEY,
  ip_address  VARCHAR(45)  NOT NULL,
  log_input   TEXT         NOT NULL,
  diagnosis   TEXT         NOT NULL,
  severity    VARCHAR(20)  NOT NULL,
  title       VARCHAR(255) NOT NULL,
  backend     VARCHAR(64)  NOT NULL DEFAULT '-',
  created_at  TIMESTAMPTZ  NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_history_ip_created ON analysis_history (ip_address, created_at)`,
}

// Migrate creates the history table and index when missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return goerr.Wrap(err, "failed to migrate analysis_history")
		}
	}
	return nil
}
