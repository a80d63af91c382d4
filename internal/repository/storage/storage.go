// Package storage selects and wires the durable state of the monitor: the
// daily-limit map and the stock alert and issue logs.
//
// Drivers:
//   - "file": JSON limit map and CSV logs in a directory (default)
//   - "sqlite": one SQLite database file
//   - "mongodb": three collections
//   - "memory": process-local, lost on restart
//
// Every driver does a read-modify-write per operation without cross-process
// locking. Two processes acting on the same site at the same time may lose
// one update.
package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/watermonitor/internal/config"
	"github.com/mamadbah2/watermonitor/internal/domain/models"
	"github.com/mamadbah2/watermonitor/internal/repository/filestore"
	"github.com/mamadbah2/watermonitor/internal/repository/memory"
	"github.com/mamadbah2/watermonitor/internal/repository/mongodb"
	"github.com/mamadbah2/watermonitor/internal/repository/sqlite"
)

// DailyLimitStore persists the last low-stock alert day per site.
type DailyLimitStore interface {
	LastAlertDate(ctx context.Context, siteID string) (day time.Time, ok bool, err error)
	SetLastAlertDate(ctx context.Context, siteID string, day time.Time) error
}

// EventLog is an append-only, order preserving collection of one entry kind.
type EventLog[E any] interface {
	Append(ctx context.Context, entry E) error
	Entries(ctx context.Context) ([]E, error)
}

// Stores groups the durable state handed to the services.
type Stores struct {
	Limits      DailyLimitStore
	StockAlerts EventLog[models.StockAlertLogEntry]
	Issues      EventLog[models.IssueLogEntry]

	close func(context.Context) error
}

// Close releases the underlying driver.
func (s *Stores) Close(ctx context.Context) error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// Open initializes the configured driver.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Stores, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Storage.Driver {
	case config.StorageFile, "":
		loc := cfg.Server.Location()
		dir := cfg.Storage.Dir
		logger.Info("using file storage", zap.String("dir", dir))
		return &Stores{
			Limits: filestore.NewDailyLimitStore(filepath.Join(dir, filestore.DailyLimitFileName), logger.Named("limits")),
			StockAlerts: filestore.NewEventLog[models.StockAlertLogEntry](
				filepath.Join(dir, filestore.StockAlertLogFileName), filestore.StockAlertCodec{Location: loc}, logger.Named("stock_alerts")),
			Issues: filestore.NewEventLog[models.IssueLogEntry](
				filepath.Join(dir, filestore.IssueLogFileName), filestore.IssueCodec{Location: loc}, logger.Named("issues")),
		}, nil
	case config.StorageSQLite:
		repo, err := sqlite.NewRepository(ctx, cfg.Storage.SQLitePath, logger.Named("sqlite"))
		if err != nil {
			return nil, err
		}
		return &Stores{
			Limits:      repo,
			StockAlerts: repo.StockAlertLog(),
			Issues:      repo.IssueLog(),
			close:       repo.Close,
		}, nil
	case config.StorageMongoDB:
		repo, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			return nil, err
		}
		logger.Info("using mongodb storage", zap.String("db", cfg.MongoDB.DBName))
		return &Stores{
			Limits:      repo,
			StockAlerts: repo.StockAlertLog(),
			Issues:      repo.IssueLog(),
			close:       repo.Close,
		}, nil
	case config.StorageMemory:
		logger.Warn("using in-memory storage, alert history is lost on restart")
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Storage.Driver)
	}
}

// NewMemory returns process-local stores.
func NewMemory() *Stores {
	return &Stores{
		Limits:      memory.NewDailyLimitStore(),
		StockAlerts: memory.NewEventLog[models.StockAlertLogEntry](),
		Issues:      memory.NewEventLog[models.IssueLogEntry](),
	}
}
