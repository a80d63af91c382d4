package sendgrid

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"github.com/sendgrid/rest"
	sendgridapi "github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/mamadbah2/watermonitor/internal/config"
	"github.com/mamadbah2/watermonitor/internal/domain/models"
)

var errNoResponse = errors.New("sendgrid returned no response")

// sender is the subset of *sendgrid.Client used by Client.
type sender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// Client delivers emails through the SendGrid v3 mail API.
type Client struct {
	client    sender
	fromName  string
	fromEmail string
}

// NewClient builds a SendGrid transport from the mail configuration.
func NewClient(cfg config.MailConfig) *Client {
	return &Client{
		client:    sendgridapi.NewSendClient(cfg.SendGridAPIKey),
		fromName:  cfg.FromName,
		fromEmail: cfg.Address,
	}
}

// Deliver sends one email.
func (c *Client) Deliver(ctx context.Context, email models.Email) error {
	message := c.buildMessage(email)

	response, err := c.client.SendWithContext(ctx, message)
	if err != nil {
		return &models.TransportError{Kind: models.TransportConnectivity, Err: fmt.Errorf("send email: %w", err)}
	}
	if response == nil {
		return &models.TransportError{Kind: models.TransportConnectivity, Err: errNoResponse}
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return nil
	}

	return &models.TransportError{
		Kind: classifyStatus(response.StatusCode),
		Err:  fmt.Errorf("sendgrid returned status %d: %s", response.StatusCode, response.Body),
	}
}

func (c *Client) buildMessage(email models.Email) *mail.SGMailV3 {
	message := mail.NewV3Mail()
	message.SetFrom(mail.NewEmail(c.fromName, c.fromEmail))
	message.Subject = email.Subject

	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail(email.To, email.To))
	message.AddPersonalizations(p)

	message.AddContent(mail.NewContent("text/plain", email.Body))

	if a := email.Attachment; a != nil {
		attachment := mail.NewAttachment()
		attachment.SetContent(base64.StdEncoding.EncodeToString(a.Data))
		attachment.SetType(a.ContentType())
		attachment.SetFilename(a.Filename)
		attachment.SetDisposition("attachment")
		message.AddAttachment(attachment)
	}

	return message
}

func classifyStatus(status int) models.TransportErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return models.TransportAuth
	case status == http.StatusRequestEntityTooLarge:
		return models.TransportAttachmentTooLarge
	case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		return models.TransportConnectivity
	default:
		return models.TransportRejected
	}
}
