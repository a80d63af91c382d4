// Package issues validates operator raised issues, notifies the recipient and
// records each successfully dispatched issue in the issue log.
package issues

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/watermonitor/internal/domain/models"
	"github.com/mamadbah2/watermonitor/internal/metrics"
	"github.com/mamadbah2/watermonitor/internal/service/notify"
)

// AllowedImageSubtypes lists the declared media subtypes accepted for an attachment.
var AllowedImageSubtypes = []string{"jpg", "jpeg", "png"}

// Notifier sends a notification to the fixed recipient.
type Notifier interface {
	Send(ctx context.Context, n models.Notification) error
}

// IssueLog records dispatched issues.
type IssueLog interface {
	Append(ctx context.Context, entry models.IssueLogEntry) error
}

// Receipt describes a dispatched and recorded issue.
type Receipt struct {
	SiteID   string
	IssuedAt time.Time
}

// Validate checks an issue description: it must not be blank and must have at
// most models.MaxIssueWords whitespace separated words.
func Validate(description string) error {
	if strings.TrimSpace(description) == "" {
		return &models.ValidationError{Reason: models.ReasonEmpty}
	}
	if models.CountWords(description) > models.MaxIssueWords {
		return &models.ValidationError{Reason: models.ReasonTooLong}
	}
	return nil
}

// AllowedImageSubtype reports whether subtype may be attached to an issue.
func AllowedImageSubtype(subtype string) bool {
	subtype = strings.ToLower(strings.TrimSpace(subtype))
	for _, allowed := range AllowedImageSubtypes {
		if subtype == allowed {
			return true
		}
	}
	return false
}

// Service submits issues.
type Service struct {
	notifier Notifier
	log      IssueLog
	loc      *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewService wires an issue service. Timestamps are recorded in loc.
func NewService(notifier Notifier, log IssueLog, loc *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		notifier: notifier,
		log:      log,
		loc:      loc,
		logger:   logger,
		now:      time.Now,
	}
}

// Submit validates the issue, dispatches it and appends it to the issue log.
// Nothing is logged when validation or dispatch fails.
func (s *Service) Submit(ctx context.Context, issue models.Issue) (Receipt, error) {
	if err := Validate(issue.Description); err != nil {
		metrics.IssuesTotal.WithLabelValues(metrics.ResultInvalid).Inc()
		return Receipt{}, err
	}
	if a := issue.Attachment; a != nil && !AllowedImageSubtype(a.MediaSubtype) {
		metrics.IssuesTotal.WithLabelValues(metrics.ResultInvalid).Inc()
		return Receipt{}, &models.ValidationError{Reason: models.ReasonUnsupportedImage, Detail: a.MediaSubtype}
	}

	logger := s.logger.With(zap.String("site_id", issue.SiteID))

	if err := s.notifier.Send(ctx, notify.IssueRaised(issue)); err != nil {
		metrics.IssuesTotal.WithLabelValues(metrics.ResultTransportError).Inc()
		logger.Error("issue dispatch failed", zap.Error(err))
		return Receipt{}, err
	}

	receipt := Receipt{SiteID: issue.SiteID, IssuedAt: s.now().In(s.loc)}
	entry := models.IssueLogEntry{
		SiteID:      issue.SiteID,
		Description: issue.Description,
		IssuedAt:    receipt.IssuedAt,
	}
	if err := s.log.Append(ctx, entry); err != nil {
		metrics.IssuesTotal.WithLabelValues(metrics.ResultPersistenceError).Inc()
		logger.Error("issue sent but not recorded", zap.Error(err))
		return receipt, &models.PersistenceError{
			Op:               "issue log",
			NotificationSent: true,
			Err:              fmt.Errorf("append issue log: %w", err),
		}
	}

	metrics.IssuesTotal.WithLabelValues(metrics.ResultSent).Inc()
	logger.Info("issue raised", zap.Bool("attachment", issue.Attachment != nil))
	return receipt, nil
}
