package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotEligible indicates a confirmation was attempted without an eligible decision.
var ErrNotEligible = errors.New("stock alert is not eligible for dispatch")

// ErrStaleDecision indicates a confirmation of a decision evaluated for a day
// other than the current one.
var ErrStaleDecision = errors.New("stock alert decision is not for today")

// NotFoundError reports a site identifier absent from the dataset.
type NotFoundError struct {
	SiteID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("site %q not found", e.SiteID)
}

// Validation failure reasons.
const (
	ReasonEmpty            = "empty"
	ReasonTooLong          = "too-long"
	ReasonUnsupportedImage = "unsupported-image"
)

// ValidationError reports an issue rejected before submission.
type ValidationError struct {
	Reason string
	Detail string
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonEmpty:
		return "description cannot be empty"
	case ReasonTooLong:
		return fmt.Sprintf("description must be at most %d words", MaxIssueWords)
	case ReasonUnsupportedImage:
		return fmt.Sprintf("image type %q is not allowed, use jpg, jpeg or png", e.Detail)
	default:
		return "invalid description: " + e.Reason
	}
}

// SuppressedError is returned when a low-stock alert was already sent today.
// It is informational rather than a failure.
type SuppressedError struct {
	SiteID string
	Day    time.Time
}

func (e *SuppressedError) Error() string {
	return fmt.Sprintf("stock alert already sent today for site %s (%s)", e.SiteID, e.Day.Format(DayLayout))
}

// TransportErrorKind classifies dispatch failures.
type TransportErrorKind string

const (
	TransportAuth               TransportErrorKind = "auth"
	TransportConnectivity       TransportErrorKind = "connectivity"
	TransportAttachmentTooLarge TransportErrorKind = "attachment-too-large"
	TransportRejected           TransportErrorKind = "rejected"
)

// TransportError reports a failed dispatch. Nothing was persisted, so the
// action is safe to retry.
type TransportError struct {
	Kind TransportErrorKind
	Err  error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("notification transport: %s", e.Kind)
	}
	return fmt.Sprintf("notification transport: %s: %v", e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// PersistenceError reports a store or log write failure. NotificationSent is
// set when the notification already went out and the durable state needs
// manual reconciliation.
type PersistenceError struct {
	Op               string
	NotificationSent bool
	Err              error
}

func (e *PersistenceError) Error() string {
	msg := fmt.Sprintf("persist %s: %v", e.Op, e.Err)
	if e.NotificationSent {
		msg += " (notification already sent)"
	}
	return msg
}

func (e *PersistenceError) Unwrap() error { return e.Err }
