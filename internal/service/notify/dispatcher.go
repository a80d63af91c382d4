package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/watermonitor/internal/domain/models"
)

// Transport delivers one email. Implementations report failures as
// *models.TransportError so callers can tell auth, connectivity and size
// problems apart.
type Transport interface {
	Deliver(ctx context.Context, email models.Email) error
}

// Dispatcher addresses notifications to the fixed recipient and hands them to
// the transport. It never retries.
type Dispatcher struct {
	transport          Transport
	recipient          string
	maxAttachmentBytes int64
	logger             *zap.Logger
}

// NewDispatcher wires a dispatcher. maxAttachmentBytes <= 0 disables the size check.
func NewDispatcher(transport Transport, recipient string, maxAttachmentBytes int64, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		transport:          transport,
		recipient:          recipient,
		maxAttachmentBytes: maxAttachmentBytes,
		logger:             logger,
	}
}

// Send delivers n to the configured recipient.
func (d *Dispatcher) Send(ctx context.Context, n models.Notification) error {
	if d.transport == nil {
		return &models.TransportError{Kind: models.TransportConnectivity, Err: errors.New("no transport configured")}
	}

	if a := n.Attachment; a != nil && d.maxAttachmentBytes > 0 && int64(len(a.Data)) > d.maxAttachmentBytes {
		return &models.TransportError{
			Kind: models.TransportAttachmentTooLarge,
			Err:  fmt.Errorf("attachment %s is %d bytes, limit %d", a.Filename, len(a.Data), d.maxAttachmentBytes),
		}
	}

	email := models.Email{
		To:         d.recipient,
		Subject:    n.Subject,
		Body:       n.Body,
		Attachment: n.Attachment,
	}

	if err := d.transport.Deliver(ctx, email); err != nil {
		var tErr *models.TransportError
		if !errors.As(err, &tErr) {
			tErr = &models.TransportError{Kind: models.TransportRejected, Err: err}
		}
		d.logger.Warn("notification dispatch failed",
			zap.String("subject", n.Subject),
			zap.String("kind", string(tErr.Kind)),
			zap.Error(err))
		return tErr
	}

	d.logger.Info("notification dispatched", zap.String("subject", n.Subject), zap.Bool("attachment", n.Attachment != nil))
	return nil
}
