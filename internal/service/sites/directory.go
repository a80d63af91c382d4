// Package sites looks up water systems in the cached site dataset.
package sites

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/watermonitor/internal/domain/models"
	"github.com/mamadbah2/watermonitor/internal/metrics"
)

// Source returns the raw site table, header row first.
type Source interface {
	Rows(ctx context.Context) ([][]string, error)
}

// Directory caches the site table and serves lookups from it.
type Directory struct {
	source Source
	logger *zap.Logger

	mu       sync.RWMutex
	records  map[string]models.SiteRecord
	loadedAt time.Time

	// Serializes refreshes so a cold cache is only loaded once.
	refreshMu sync.Mutex
}

// NewDirectory wires a directory. The table is loaded on first lookup.
func NewDirectory(source Source, logger *zap.Logger) *Directory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Directory{source: source, logger: logger}
}

// Lookup returns the first record whose trimmed identifier equals the trimmed
// siteID. Matching is case sensitive.
func (d *Directory) Lookup(ctx context.Context, siteID string) (models.SiteRecord, error) {
	siteID = strings.TrimSpace(siteID)
	if siteID == "" {
		return models.SiteRecord{}, &models.NotFoundError{SiteID: siteID}
	}

	if !d.loaded() {
		if err := d.loadOnce(ctx); err != nil {
			return models.SiteRecord{}, err
		}
	}

	d.mu.RLock()
	record, ok := d.records[siteID]
	d.mu.RUnlock()
	if !ok {
		return models.SiteRecord{}, &models.NotFoundError{SiteID: siteID}
	}
	return record, nil
}

// Refresh reloads the table from the source. On failure the previous table
// stays in place.
func (d *Directory) Refresh(ctx context.Context) error {
	d.refreshMu.Lock()
	defer d.refreshMu.Unlock()
	return d.refresh(ctx)
}

// LoadedAt reports when the cached table was last replaced.
func (d *Directory) LoadedAt() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loadedAt
}

// Len returns the number of cached sites.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.records)
}

// StockOf parses the stock of record, defaulting to 0 when it is not a number.
func (d *Directory) StockOf(record models.SiteRecord) float64 {
	stock, err := models.ParseStock(record.Stock)
	if err != nil {
		d.logger.Warn("stock value unparsable, defaulting to 0",
			zap.String("site_id", record.ID),
			zap.String("raw", record.Stock),
			zap.Error(err))
		return 0
	}
	return stock
}

func (d *Directory) loaded() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.records != nil
}

func (d *Directory) loadOnce(ctx context.Context) error {
	d.refreshMu.Lock()
	defer d.refreshMu.Unlock()
	if d.loaded() {
		return nil
	}
	return d.refresh(ctx)
}

func (d *Directory) refresh(ctx context.Context) error {
	records, err := d.fetch(ctx)
	if err != nil {
		metrics.DatasetRefreshTotal.WithLabelValues(metrics.ResultError).Inc()
		d.logger.Error("site dataset refresh failed", zap.Error(err))
		return fmt.Errorf("refresh site dataset: %w", err)
	}

	d.mu.Lock()
	d.records = records
	d.loadedAt = time.Now()
	d.mu.Unlock()

	metrics.DatasetRefreshTotal.WithLabelValues(metrics.ResultOK).Inc()
	metrics.DatasetSites.Set(float64(len(records)))
	d.logger.Info("site dataset loaded", zap.Int("sites", len(records)))
	return nil
}

func (d *Directory) fetch(ctx context.Context) (map[string]models.SiteRecord, error) {
	rows, err := d.source.Rows(ctx)
	if err != nil {
		return nil, err
	}
	return BuildRecords(rows)
}

// ErrMissingIDColumn is returned for a table without the site identifier column.
var ErrMissingIDColumn = errors.New("dataset has no " + models.ColumnSiteID + " column")

// BuildRecords indexes a raw table by trimmed site identifier. Header names are
// trimmed and the first of duplicated columns wins; rows with a blank
// identifier are skipped and the first row of a duplicated identifier wins.
func BuildRecords(rows [][]string) (map[string]models.SiteRecord, error) {
	if len(rows) == 0 {
		return nil, ErrMissingIDColumn
	}

	columns := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}
	if _, ok := columns[models.ColumnSiteID]; !ok {
		return nil, ErrMissingIDColumn
	}

	records := make(map[string]models.SiteRecord, len(rows)-1)
	for _, row := range rows[1:] {
		get := func(column, fallback string) string {
			i, ok := columns[column]
			if !ok || i >= len(row) {
				return fallback
			}
			if v := strings.TrimSpace(row[i]); v != "" {
				return v
			}
			return fallback
		}

		id := get(models.ColumnSiteID, "")
		if id == "" {
			continue
		}
		if _, dup := records[id]; dup {
			continue
		}

		records[id] = models.SiteRecord{
			ID:                  id,
			State:               get(models.ColumnState, models.NotAvailable),
			District:            get(models.ColumnDistrict, models.NotAvailable),
			Block:               get(models.ColumnBlock, models.NotAvailable),
			GP:                  get(models.ColumnGP, models.NotAvailable),
			Village:             get(models.ColumnVillage, models.NotAvailable),
			Scheme:              get(models.ColumnScheme, models.NotAvailable),
			TopUpCount:          get(models.ColumnTopUpCount, "0"),
			Consumption:         get(models.ColumnConsumption, "0"),
			Stock:               get(models.ColumnStock, "0"),
			InstallationDate:    get(models.ColumnInstallationDate, models.NotAvailable),
			LastMaintenance:     get(models.ColumnLastMaintenance, models.NotAvailable),
			UpcomingMaintenance: get(models.ColumnUpcomingMaintenance, models.NotAvailable),
		}
	}
	return records, nil
}
