package models

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStock(t *testing.T) {
	cases := []struct {
		raw     string
		want    float64
		wantErr bool
	}{
		{raw: "45", want: 45},
		{raw: " 99.5 ", want: 99.5},
		{raw: "1,250", want: 1250},
		{raw: "", wantErr: true},
		{raw: "N/A", wantErr: true},
		{raw: "NaN", wantErr: true},
		{raw: "12 litres", wantErr: true},
	}

	for _, tc := range cases {
		got, err := ParseStock(tc.raw)
		if tc.wantErr {
			assert.Error(t, err, "raw=%q", tc.raw)
			continue
		}
		require.NoError(t, err, "raw=%q", tc.raw)
		assert.Equal(t, tc.want, got)
	}
}

func TestParseStockEmpty(t *testing.T) {
	_, err := ParseStock("   ")
	assert.True(t, errors.Is(err, ErrEmptyValue))
}

func TestParseDateLayouts(t *testing.T) {
	want := time.Date(2026, time.March, 4, 0, 0, 0, 0, time.UTC)
	for _, raw := range []string{"2026-03-04", "04-03-2026", "04/03/2026", "4/3/2026", "04-Mar-2026", "4 Mar 2026", "2026-03-04 08:30:00"} {
		got, err := ParseDate(raw, time.UTC)
		require.NoError(t, err, "raw=%q", raw)
		assert.True(t, want.Equal(got), "raw=%q got %v", raw, got)
	}
}

func TestParseDateInvalid(t *testing.T) {
	_, err := ParseDate("soon", time.UTC)
	assert.Error(t, err)

	_, err = ParseDate("N/A", time.UTC)
	assert.ErrorIs(t, err, ErrEmptyValue)
}

func TestEvaluateMaintenance(t *testing.T) {
	today := time.Date(2026, time.October, 19, 15, 0, 0, 0, time.UTC)

	cases := []struct {
		upcoming string
		state    MaintenanceState
		days     int
	}{
		{upcoming: "2026-10-15", state: MaintenanceOverdue, days: -4},
		{upcoming: "2026-10-19", state: MaintenanceDueSoon, days: 0},
		{upcoming: "2026-10-28", state: MaintenanceDueSoon, days: 9},
		{upcoming: "2026-10-29", state: MaintenanceScheduled, days: 10},
		{upcoming: "not a date", state: MaintenanceInvalid},
	}

	for _, tc := range cases {
		status := EvaluateMaintenance(tc.upcoming, today, time.UTC)
		assert.Equal(t, tc.state, status.State, "upcoming=%q", tc.upcoming)
		assert.Equal(t, tc.days, status.DaysRemaining, "upcoming=%q", tc.upcoming)
	}
}

func TestCountWords(t *testing.T) {
	assert.Equal(t, 0, CountWords("  \n\t "))
	assert.Equal(t, 3, CountWords("pump  not\nworking"))
	assert.Equal(t, 100, CountWords(strings.Repeat("word ", 100)))
}

func TestErrorMessages(t *testing.T) {
	err := error(&PersistenceError{Op: "stock alert log", NotificationSent: true, Err: errors.New("disk full")})
	assert.Contains(t, err.Error(), "notification already sent")

	var pErr *PersistenceError
	require.True(t, errors.As(err, &pErr))
	assert.True(t, pErr.NotificationSent)

	tErr := &TransportError{Kind: TransportAuth, Err: errors.New("535 bad credentials")}
	assert.Contains(t, tErr.Error(), "auth")
	assert.Equal(t, "description cannot be empty", (&ValidationError{Reason: ReasonEmpty}).Error())
}
