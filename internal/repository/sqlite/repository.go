package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mamadbah2/watermonitor/internal/domain/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS daily_limits (
  site_id          TEXT PRIMARY KEY,
  last_alert_date  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS stock_alerts (
  id           INTEGER PRIMARY KEY AUTOINCREMENT,
  site_id      TEXT NOT NULL,
  stock_level  REAL NOT NULL,
  alerted_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_stock_alerts_site ON stock_alerts(site_id);
CREATE TABLE IF NOT EXISTS issues (
  id           INTEGER PRIMARY KEY AUTOINCREMENT,
  site_id      TEXT NOT NULL,
  description  TEXT NOT NULL,
  issued_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_issues_site ON issues(site_id);
`

// Repository stores the daily-limit map and both event logs in one SQLite file.
type Repository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRepository opens (and creates if needed) the database at path.
func NewRepository(ctx context.Context, path string, logger *zap.Logger) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time keeps read-modify-write sequences ordered.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}

	logger.Info("sqlite storage ready", zap.String("path", path))
	return &Repository{db: db, logger: logger}, nil
}

// Close closes the database.
func (r *Repository) Close(context.Context) error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// LastAlertDate returns the last alert day recorded for the site.
func (r *Repository) LastAlertDate(ctx context.Context, siteID string) (time.Time, bool, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, `SELECT last_alert_date FROM daily_limits WHERE site_id = ?`, siteID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query daily limit: %w", err)
	}

	day, err := models.ParseDay(raw)
	if err != nil {
		r.logger.Warn("ignoring malformed daily limit value", zap.String("site_id", siteID), zap.String("value", raw))
		return time.Time{}, false, nil
	}
	return day, true, nil
}

// SetLastAlertDate upserts the last alert day for the site.
func (r *Repository) SetLastAlertDate(ctx context.Context, siteID string, day time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO daily_limits(site_id, last_alert_date) VALUES(?, ?)
		 ON CONFLICT(site_id) DO UPDATE SET last_alert_date = excluded.last_alert_date`,
		siteID, models.CalendarDay(day).Format(models.DayLayout))
	if err != nil {
		return fmt.Errorf("upsert daily limit: %w", err)
	}
	return nil
}

// StockAlertLog returns the stock alert log view of the repository.
func (r *Repository) StockAlertLog() *StockAlertLog {
	return &StockAlertLog{db: r.db}
}

// IssueLog returns the issue log view of the repository.
func (r *Repository) IssueLog() *IssueLog {
	return &IssueLog{db: r.db}
}

// StockAlertLog appends to the stock_alerts table.
type StockAlertLog struct {
	db *sql.DB
}

func (l *StockAlertLog) Append(ctx context.Context, e models.StockAlertLogEntry) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO stock_alerts(site_id, stock_level, alerted_at) VALUES(?, ?, ?)`,
		e.SiteID, e.StockLevel, e.AlertedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert stock alert: %w", err)
	}
	return nil
}

func (l *StockAlertLog) Entries(ctx context.Context) ([]models.StockAlertLogEntry, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT site_id, stock_level, alerted_at FROM stock_alerts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query stock alerts: %w", err)
	}
	defer rows.Close()

	var entries []models.StockAlertLogEntry
	for rows.Next() {
		var (
			e  models.StockAlertLogEntry
			at string
		)
		if err := rows.Scan(&e.SiteID, &e.StockLevel, &at); err != nil {
			return nil, err
		}
		if e.AlertedAt, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("parse alerted_at %q: %w", at, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// IssueLog appends to the issues table.
type IssueLog struct {
	db *sql.DB
}

func (l *IssueLog) Append(ctx context.Context, e models.IssueLogEntry) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO issues(site_id, description, issued_at) VALUES(?, ?, ?)`,
		e.SiteID, e.Description, e.IssuedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert issue: %w", err)
	}
	return nil
}

func (l *IssueLog) Entries(ctx context.Context) ([]models.IssueLogEntry, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT site_id, description, issued_at FROM issues ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query issues: %w", err)
	}
	defer rows.Close()

	var entries []models.IssueLogEntry
	for rows.Next() {
		var (
			e  models.IssueLogEntry
			at string
		)
		if err := rows.Scan(&e.SiteID, &e.Description, &at); err != nil {
			return nil, err
		}
		if e.IssuedAt, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("parse issued_at %q: %w", at, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
