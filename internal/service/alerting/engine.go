// Package alerting decides whether a low-stock alert may be sent for a site
// and, once an operator confirms, dispatches it and records it.
//
// A site is Eligible when it is below threshold and no alert was recorded for
// it today, Suppressed when one was. The state is derived from the daily-limit
// store on every evaluation and only changes after a confirmed dispatch has
// been persisted; it falls back to Eligible on the next calendar day.
package alerting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/watermonitor/internal/domain/models"
	"github.com/mamadbah2/watermonitor/internal/metrics"
	"github.com/mamadbah2/watermonitor/internal/repository/storage"
	"github.com/mamadbah2/watermonitor/internal/service/notify"
)

// LowStockThreshold is the stock level below which a site may be alerted.
const LowStockThreshold = 100.0

// Notifier sends a notification to the fixed recipient.
type Notifier interface {
	Send(ctx context.Context, n models.Notification) error
}

// AlertLog records dispatched alerts.
type AlertLog interface {
	Append(ctx context.Context, entry models.StockAlertLogEntry) error
}

// Receipt describes a dispatched and recorded alert.
type Receipt struct {
	SiteID    string
	Stock     float64
	Day       time.Time
	AlertedAt time.Time
}

// Engine evaluates and confirms low-stock alerts.
type Engine struct {
	limits   storage.DailyLimitStore
	alerts   AlertLog
	notifier Notifier
	loc      *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewEngine wires an engine. Days are computed in loc.
func NewEngine(limits storage.DailyLimitStore, alerts AlertLog, notifier Notifier, loc *time.Location, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{
		limits:   limits,
		alerts:   alerts,
		notifier: notifier,
		loc:      loc,
		logger:   logger,
		now:      time.Now,
	}
}

// Today returns the current calendar day in the engine's location.
func (e *Engine) Today() time.Time {
	return models.CalendarDay(e.now().In(e.loc))
}

// Evaluate classifies the site without side effects. A daily-limit store that
// cannot be read counts as having no entry for the site.
func (e *Engine) Evaluate(ctx context.Context, siteID string, stock float64, today time.Time) Decision {
	today = models.CalendarDay(today)
	d := Decision{siteID: siteID, stock: stock, day: today}

	if stock >= LowStockThreshold {
		d.state = Sufficient
		return d
	}

	last, ok, err := e.limits.LastAlertDate(ctx, siteID)
	if err != nil {
		e.logger.Warn("daily limit unreadable, treating site as not alerted",
			zap.String("site_id", siteID), zap.Error(err))
		ok = false
	}
	if ok {
		d.lastAlert = last
		d.hasLastAlert = true
	}

	if ok && last.Equal(today) {
		d.state = Suppressed
		return d
	}
	d.state = Eligible
	return d
}

// Confirm dispatches the alert of an Eligible decision, then appends it to the
// alert log and records today in the daily-limit store. Only decisions
// evaluated for the current day are accepted. Nothing is persisted
// when dispatch fails. A *models.PersistenceError with NotificationSent set
// means the email went out but the durable state could not be fully updated.
func (e *Engine) Confirm(ctx context.Context, d Decision) (Receipt, error) {
	switch d.state {
	case Eligible:
	case Suppressed:
		metrics.StockAlertsTotal.WithLabelValues(metrics.ResultSuppressed).Inc()
		return Receipt{}, &models.SuppressedError{SiteID: d.siteID, Day: d.day}
	default:
		return Receipt{}, models.ErrNotEligible
	}

	today := e.Today()
	if !d.day.Equal(today) {
		metrics.StockAlertsTotal.WithLabelValues(metrics.ResultStale).Inc()
		return Receipt{}, fmt.Errorf("decision for %s: %w", d.day.Format(models.DayLayout), models.ErrStaleDecision)
	}

	// Another confirmation could have landed since the decision was made. A
	// recorded day after today is never overwritten with an earlier one.
	current := e.Evaluate(ctx, d.siteID, d.stock, today)
	if last, ok := current.LastAlert(); current.state == Suppressed || (ok && last.After(today)) {
		metrics.StockAlertsTotal.WithLabelValues(metrics.ResultSuppressed).Inc()
		return Receipt{}, &models.SuppressedError{SiteID: d.siteID, Day: today}
	}

	logger := e.logger.With(zap.String("site_id", d.siteID), zap.Float64("stock", d.stock))

	if err := e.notifier.Send(ctx, notify.LowStockAlert(d.siteID, d.stock, LowStockThreshold)); err != nil {
		metrics.StockAlertsTotal.WithLabelValues(metrics.ResultTransportError).Inc()
		logger.Error("low stock alert dispatch failed", zap.Error(err))
		return Receipt{}, err
	}

	receipt := Receipt{SiteID: d.siteID, Stock: d.stock, Day: today, AlertedAt: e.now().In(e.loc)}

	// The limit is recorded even if the log append fails so the site is not
	// alerted twice on the same day.
	logErr := e.alerts.Append(ctx, models.StockAlertLogEntry{
		SiteID:     d.siteID,
		StockLevel: d.stock,
		AlertedAt:  receipt.AlertedAt,
	})
	if logErr != nil {
		logErr = fmt.Errorf("append stock alert log: %w", logErr)
	}
	limitErr := e.limits.SetLastAlertDate(ctx, d.siteID, today)
	if limitErr != nil {
		limitErr = fmt.Errorf("set daily limit: %w", limitErr)
	}

	if err := errors.Join(logErr, limitErr); err != nil {
		metrics.StockAlertsTotal.WithLabelValues(metrics.ResultPersistenceError).Inc()
		logger.Error("low stock alert sent but not fully recorded", zap.Error(err))
		op := "stock alert log"
		if logErr == nil {
			op = "daily limit"
		}
		return receipt, &models.PersistenceError{Op: op, NotificationSent: true, Err: err}
	}

	metrics.StockAlertsTotal.WithLabelValues(metrics.ResultSent).Inc()
	logger.Info("low stock alert sent", zap.String("day", today.Format(models.DayLayout)))
	return receipt, nil
}
