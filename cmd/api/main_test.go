package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/prodpulse/internal/config"
	"github.com/bryanwahyu/prodpulse/internal/infra/db/kv"
	"github.com/bryanwahyu/prodpulse/internal/infra/db/memory"
	"github.com/bryanwahyu/prodpulse/internal/logging"
)

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	cmd := newRootCmd()

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, config.DriverMemory, cfg.Database.Driver)
	assert.Equal(t, config.ProviderOffline, cfg.Provider.Kind)
}

func TestLoadConfigFromEnvPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rateLimit:\n  maxRequests: 3\n"), 0o600))
	t.Setenv("CONFIG_PATH", path)

	cfg, err := loadConfig(newRootCmd())
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.RateLimit.MaxRequests)

	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err = loadConfig(newRootCmd())
	assert.Error(t, err)
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	logger := logging.Default()

	cfg := config.Default()
	store, err := openStore(ctx, cfg, logger)
	require.NoError(t, err)
	assert.IsType(t, &memory.HistoryRepository{}, store)

	cfg.Database.Driver = config.DriverBadger
	cfg.Database.Path = filepath.Join(t.TempDir(), "badger")
	store, err = openStore(ctx, cfg, logger)
	require.NoError(t, err)
	assert.IsType(t, &kv.HistoryRepository{}, store)
	require.NoError(t, store.Close())

	cfg.Database.Driver = "sqlite"
	store, err = openStore(ctx, cfg, logger)
	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestDiagnoseCommandOffline(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	line := "dial tcp 10.0.0.5:5432: connect: connection refused"

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(line + "\n"))
	root.SetArgs([]string{"diagnose", "--offline"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), line)
	assert.Contains(t, out.String(), "backend: offline")
}

func TestDiagnoseCommandRejectsShortInput(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"diagnose", "--offline", "boom"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too short")
}
