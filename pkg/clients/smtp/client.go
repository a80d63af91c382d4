package smtp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/mamadbah2/watermonitor/internal/config"
	"github.com/mamadbah2/watermonitor/internal/domain/models"
)

// Client delivers emails over SMTP with implicit TLS and PLAIN authentication.
type Client struct {
	host     string
	port     int
	username string
	password string
	fromName string
	from     string
	timeout  time.Duration
}

// NewClient builds an SMTP transport from the mail configuration.
func NewClient(cfg config.MailConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.Address,
		password: cfg.Password,
		fromName: cfg.FromName,
		from:     cfg.Address,
		timeout:  timeout,
	}
}

// Deliver connects, authenticates and sends one email.
func (c *Client) Deliver(ctx context.Context, email models.Email) error {
	msg, err := c.buildMessage(email)
	if err != nil {
		return &models.TransportError{Kind: models.TransportRejected, Err: err}
	}

	client, err := mail.NewClient(c.host,
		mail.WithPort(c.port),
		mail.WithSSL(),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(c.username),
		mail.WithPassword(c.password),
		mail.WithTimeout(c.timeout),
	)
	if err != nil {
		return &models.TransportError{Kind: models.TransportConnectivity, Err: fmt.Errorf("create smtp client: %w", err)}
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return &models.TransportError{Kind: Classify(err), Err: err}
	}
	return nil
}

func (c *Client) buildMessage(email models.Email) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if c.fromName != "" {
		if err := msg.FromFormat(c.fromName, c.from); err != nil {
			return nil, fmt.Errorf("invalid sender %q: %w", c.from, err)
		}
	} else if err := msg.From(c.from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", c.from, err)
	}
	if err := msg.To(email.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", email.To, err)
	}
	msg.Subject(email.Subject)
	msg.SetBodyString(mail.TypeTextPlain, email.Body)

	if a := email.Attachment; a != nil {
		err := msg.AttachReader(a.Filename, bytes.NewReader(a.Data),
			mail.WithFileContentType(mail.ContentType(a.ContentType())))
		if err != nil {
			return nil, fmt.Errorf("attach %s: %w", a.Filename, err)
		}
	}
	return msg, nil
}

// SMTP reply codes used for classification.
const (
	codeAuthRequired    = 530
	codeAuthTooWeak     = 534
	codeAuthFailed      = 535
	codeExceededStorage = 552
)

// Classify maps an SMTP send error to a transport error kind.
func Classify(err error) models.TransportErrorKind {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		switch protoErr.Code {
		case codeAuthRequired, codeAuthTooWeak, codeAuthFailed:
			return models.TransportAuth
		case codeExceededStorage:
			return models.TransportAttachmentTooLarge
		}
		return models.TransportRejected
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return models.TransportConnectivity
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "535") || strings.Contains(msg, "auth"):
		return models.TransportAuth
	case strings.Contains(msg, "552") || strings.Contains(msg, "size"):
		return models.TransportAttachmentTooLarge
	case strings.Contains(msg, "dial") || strings.Contains(msg, "connection") || strings.Contains(msg, "tls"):
		return models.TransportConnectivity
	default:
		return models.TransportRejected
	}
}
