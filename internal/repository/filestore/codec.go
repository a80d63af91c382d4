package filestore

import (
	"fmt"
	"strings"
	"time"

	"github.com/mamadbah2/watermonitor/internal/domain/models"
)

// StockAlertCodec lays out stock alerts as Site ID, Stock Level, Alert Date.
type StockAlertCodec struct {
	Location *time.Location
}

func (StockAlertCodec) Header() []string {
	return []string{"Site ID", "Stock Level", "Alert Date"}
}

func (c StockAlertCodec) Encode(e models.StockAlertLogEntry) []string {
	return []string{e.SiteID, models.FormatStock(e.StockLevel), e.AlertedAt.In(location(c.Location)).Format(models.TimestampLayout)}
}

func (c StockAlertCodec) Decode(row []string) (models.StockAlertLogEntry, error) {
	if len(row) < 3 {
		return models.StockAlertLogEntry{}, fmt.Errorf("expected 3 columns, got %d", len(row))
	}
	stock, err := models.ParseStock(row[1])
	if err != nil {
		return models.StockAlertLogEntry{}, err
	}
	at, err := time.ParseInLocation(models.TimestampLayout, strings.TrimSpace(row[2]), location(c.Location))
	if err != nil {
		return models.StockAlertLogEntry{}, fmt.Errorf("parse alert date: %w", err)
	}
	return models.StockAlertLogEntry{SiteID: row[0], StockLevel: stock, AlertedAt: at}, nil
}

// IssueCodec lays out issues as Site ID, Description, Issue Date.
type IssueCodec struct {
	Location *time.Location
}

func (IssueCodec) Header() []string {
	return []string{"Site ID", "Description", "Issue Date"}
}

func (c IssueCodec) Encode(e models.IssueLogEntry) []string {
	return []string{e.SiteID, e.Description, e.IssuedAt.In(location(c.Location)).Format(models.TimestampLayout)}
}

func (c IssueCodec) Decode(row []string) (models.IssueLogEntry, error) {
	if len(row) < 3 {
		return models.IssueLogEntry{}, fmt.Errorf("expected 3 columns, got %d", len(row))
	}
	at, err := time.ParseInLocation(models.TimestampLayout, strings.TrimSpace(row[2]), location(c.Location))
	if err != nil {
		return models.IssueLogEntry{}, fmt.Errorf("parse issue date: %w", err)
	}
	return models.IssueLogEntry{SiteID: row[0], Description: row[1], IssuedAt: at}, nil
}

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}

func trimmed(row []string) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = strings.TrimSpace(strings.TrimPrefix(v, "\ufeff"))
	}
	return out
}
