package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/watermonitor/internal/domain/models"
)

// DailyLimitFileName is the default file of the daily-limit map.
const DailyLimitFileName = "daily_stock_alert_limit.json"

// DailyLimitStore keeps the site -> last alert date map in a flat JSON object.
// The file is read on every lookup and rewritten after every mutation.
type DailyLimitStore struct {
	path   string
	mu     sync.Mutex
	logger *zap.Logger
}

// NewDailyLimitStore builds a store backed by the JSON file at path.
func NewDailyLimitStore(path string, logger *zap.Logger) *DailyLimitStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DailyLimitStore{path: path, logger: logger}
}

// LastAlertDate returns the last alert day recorded for the site.
func (s *DailyLimitStore) LastAlertDate(_ context.Context, siteID string) (time.Time, bool, error) {
	siteID = strings.TrimSpace(siteID)

	s.mu.Lock()
	defer s.mu.Unlock()

	limits := s.load()
	raw, ok := limits[siteID]
	if !ok {
		return time.Time{}, false, nil
	}

	day, err := models.ParseDay(raw)
	if err != nil {
		s.logger.Warn("ignoring malformed daily limit value", zap.String("site_id", siteID), zap.String("value", raw))
		return time.Time{}, false, nil
	}
	return day, true, nil
}

// SetLastAlertDate overwrites the last alert day for the site and saves the map.
func (s *DailyLimitStore) SetLastAlertDate(_ context.Context, siteID string, day time.Time) error {
	siteID = strings.TrimSpace(siteID)
	if siteID == "" {
		return errors.New("site id must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	limits := s.load()
	limits[siteID] = models.CalendarDay(day).Format(models.DayLayout)

	data, err := json.Marshal(limits)
	if err != nil {
		return fmt.Errorf("encode daily limits: %w", err)
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("write daily limits %s: %w", s.path, err)
	}

	s.logger.Debug("daily limit saved", zap.String("site_id", siteID), zap.String("day", limits[siteID]))
	return nil
}

// load reads the whole map. Missing or malformed files read as empty.
func (s *DailyLimitStore) load() map[string]string {
	limits := map[string]string{}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("daily limit file unreadable, starting empty", zap.String("path", s.path), zap.Error(err))
		}
		return limits
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return limits
	}

	if err := json.Unmarshal(data, &limits); err != nil {
		s.logger.Warn("daily limit file malformed, starting empty", zap.String("path", s.path), zap.Error(err))
		return map[string]string{}
	}
	if limits == nil {
		limits = map[string]string{}
	}
	return limits
}
