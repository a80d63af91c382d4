package sheets

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// CSVExportSource downloads the site table from a spreadsheet's public CSV export.
type CSVExportSource struct {
	httpClient *resty.Client
	url        string
	logger     *zap.Logger
}

// NewCSVExportSource builds a resty-backed source fetching url.
func NewCSVExportSource(url string, logger *zap.Logger) *CSVExportSource {
	if logger == nil {
		logger = zap.NewNop()
	}

	restyClient := resty.New()
	restyClient.
		SetHeader("Accept", "text/csv").
		SetTimeout(30 * time.Second)

	return &CSVExportSource{
		httpClient: restyClient,
		url:        url,
		logger:     logger,
	}
}

// Rows downloads and parses the export, header row first.
func (s *CSVExportSource) Rows(ctx context.Context) ([][]string, error) {
	resp, err := s.httpClient.R().
		SetContext(ctx).
		Get(s.url)
	if err != nil {
		return nil, fmt.Errorf("fetch csv export: %w", err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		return nil, fmt.Errorf("csv export error: status=%d", resp.StatusCode())
	}

	rows, err := ParseCSV(resp.Body())
	if err != nil {
		return nil, err
	}

	s.logger.Debug("csv export fetched", zap.Int("bytes", len(resp.Body())), zap.Int("rows", len(rows)))
	return rows, nil
}

// ParseCSV parses an export body. Rows may have differing lengths.
func ParseCSV(body []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(body, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv export: %w", err)
	}
	return rows, nil
}
