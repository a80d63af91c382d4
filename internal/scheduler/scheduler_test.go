package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRefresher struct {
	calls int
	err   error
}

func (r *countingRefresher) Refresh(context.Context) error {
	r.calls++
	return r.err
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	s := NewScheduler("every now and then", time.UTC, &countingRefresher{}, nil)
	assert.Error(t, s.Start())
}

func TestStartAndStop(t *testing.T) {
	s := NewScheduler("*/30 * * * *", time.UTC, &countingRefresher{}, nil)
	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 1)
	s.Stop()
}

func TestRefreshDatasetSwallowsErrors(t *testing.T) {
	r := &countingRefresher{err: errors.New("sheet unavailable")}
	s := NewScheduler("@every 1h", time.UTC, r, nil)

	s.refreshDataset()
	r.err = nil
	s.refreshDataset()

	assert.Equal(t, 2, r.calls)
}
