// Package memory holds process-local stores, used by tests and by the
// "memory" storage driver for throwaway deployments.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mamadbah2/watermonitor/internal/domain/models"
)

// DailyLimitStore is a map backed daily-limit store.
type DailyLimitStore struct {
	mu     sync.RWMutex
	limits map[string]time.Time
}

// NewDailyLimitStore returns an empty store.
func NewDailyLimitStore() *DailyLimitStore {
	return &DailyLimitStore{limits: make(map[string]time.Time)}
}

func (s *DailyLimitStore) LastAlertDate(_ context.Context, siteID string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	day, ok := s.limits[siteID]
	return day, ok, nil
}

func (s *DailyLimitStore) SetLastAlertDate(_ context.Context, siteID string, day time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limits[siteID] = models.CalendarDay(day)
	return nil
}

// EventLog is a slice backed append-only log.
type EventLog[E any] struct {
	mu      sync.RWMutex
	entries []E
}

// NewEventLog returns an empty log.
func NewEventLog[E any]() *EventLog[E] {
	return &EventLog[E]{}
}

func (l *EventLog[E]) Append(_ context.Context, entry E) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return nil
}

func (l *EventLog[E]) Entries(_ context.Context) ([]E, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]E, len(l.entries))
	copy(out, l.entries)
	return out, nil
}
