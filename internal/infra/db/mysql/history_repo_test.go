package mysql_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/prodpulse/internal/infra/db/mysql"
	"github.com/bryanwahyu/prodpulse/internal/infra/db/storetest"
)

// TEST_MYSQL_DSN e.g. root:root@tcp(127.0.0.1:3306)/prodpulse_test?parseTime=true&loc=UTC
func TestHistoryRepository(t *testing.T) {
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("TEST_MYSQL_DSN is not set")
	}
	ctx := context.Background()

	db, err := mysql.Connect(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, mysql.Migrate(ctx, db))

	repo := mysql.NewHistoryRepository(db)
	t.Cleanup(func() { _ = repo.Close() })

	storetest.Run(t, repo, uuid.NewString()[:8]+"-")
}
