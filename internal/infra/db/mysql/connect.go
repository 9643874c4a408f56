package mysql

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/m-mizutani/goerr/v2"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open mysql")
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	// test ping
	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to ping mysql")
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS analysis_history (
  id             BIGINT       NOT NULL AUTO_INCREMENT,
  ip_address     VARCHAR(45)  NOT NULL,
  log_input      TEXT         NOT NULL,
  diagnosis      MEDIUMTEXT   NOT NULL,
  severity       VARCHAR(20)  NOT NULL,
  title          VARCHAR(255) NOT NULL,
  backend        VARCHAR(64)  NOT NULL DEFAULT '-',
  created_at     DATETIME(6)  NOT NULL,
  PRIMARY KEY (id),
  KEY idx_history_ip_created (ip_address, created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// Migrate creates the history table when it does not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return goerr.Wrap(err, "failed to create analysis_history table")
	}
	return nil
}
