package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/watermonitor/internal/config"
	"github.com/mamadbah2/watermonitor/internal/domain/models"
)

func TestOpenFileDriverUsesDefaultFileNames(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := &config.Config{Storage: config.StorageConfig{Driver: config.StorageFile, Dir: dir}}

	stores, err := Open(ctx, cfg, nil)
	require.NoError(t, err)
	defer stores.Close(ctx)

	now := time.Date(2026, time.October, 19, 8, 0, 0, 0, time.UTC)
	require.NoError(t, stores.Limits.SetLastAlertDate(ctx, "IN-WS-001", now))
	require.NoError(t, stores.StockAlerts.Append(ctx, models.StockAlertLogEntry{SiteID: "IN-WS-001", StockLevel: 45, AlertedAt: now}))
	require.NoError(t, stores.Issues.Append(ctx, models.IssueLogEntry{SiteID: "IN-WS-001", Description: "leak", IssuedAt: now}))

	for _, name := range []string{"daily_stock_alert_limit.json", "stock_alert_log.csv", "issue_log.csv"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}

func TestOpenSQLiteDriver(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{Storage: config.StorageConfig{Driver: config.StorageSQLite, SQLitePath: filepath.Join(t.TempDir(), "db", "monitor.db")}}

	stores, err := Open(ctx, cfg, nil)
	require.NoError(t, err)
	defer stores.Close(ctx)

	require.NoError(t, stores.StockAlerts.Append(ctx, models.StockAlertLogEntry{SiteID: "IN-WS-001", StockLevel: 45, AlertedAt: time.Now()}))
	entries, err := stores.StockAlerts.Entries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestOpenMemoryDriver(t *testing.T) {
	stores, err := Open(context.Background(), &config.Config{Storage: config.StorageConfig{Driver: config.StorageMemory}}, nil)
	require.NoError(t, err)
	assert.NoError(t, stores.Close(context.Background()))
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{Storage: config.StorageConfig{Driver: "etcd"}}, nil)
	assert.ErrorContains(t, err, "unknown storage driver")
}
