package sendgrid

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/watermonitor/internal/domain/models"
)

type fakeSender struct {
	got      *mail.SGMailV3
	response *rest.Response
	err      error
}

func (f *fakeSender) SendWithContext(_ context.Context, email *mail.SGMailV3) (*rest.Response, error) {
	f.got = email
	return f.response, f.err
}

func newTestClient(f *fakeSender) *Client {
	return &Client{client: f, fromName: "Water System Monitor", fromEmail: "monitor@example.com"}
}

func TestDeliverBuildsMessage(t *testing.T) {
	f := &fakeSender{response: &rest.Response{StatusCode: http.StatusAccepted}}
	c := newTestClient(f)

	err := c.Deliver(context.Background(), models.Email{
		To:         "ops@example.com",
		Subject:    "Issue Raised - IN-WS-001",
		Body:       "ISSUE RAISED",
		Attachment: &models.Attachment{Data: []byte("png-bytes"), MediaSubtype: "png", Filename: "tap.png"},
	})
	require.NoError(t, err)

	require.NotNil(t, f.got)
	assert.Equal(t, "Issue Raised - IN-WS-001", f.got.Subject)
	assert.Equal(t, "monitor@example.com", f.got.From.Address)
	require.Len(t, f.got.Personalizations, 1)
	assert.Equal(t, "ops@example.com", f.got.Personalizations[0].To[0].Address)
	require.Len(t, f.got.Content, 1)
	assert.Equal(t, "text/plain", f.got.Content[0].Type)

	require.Len(t, f.got.Attachments, 1)
	attachment := f.got.Attachments[0]
	assert.Equal(t, "image/png", attachment.Type)
	assert.Equal(t, "tap.png", attachment.Filename)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("png-bytes")), attachment.Content)
}

func TestDeliverClassifiesFailures(t *testing.T) {
	tests := []struct {
		name   string
		sender *fakeSender
		kind   models.TransportErrorKind
	}{
		{name: "network", sender: &fakeSender{err: errors.New("dial tcp: i/o timeout")}, kind: models.TransportConnectivity},
		{name: "no response", sender: &fakeSender{}, kind: models.TransportConnectivity},
		{name: "unauthorized", sender: &fakeSender{response: &rest.Response{StatusCode: http.StatusUnauthorized}}, kind: models.TransportAuth},
		{name: "forbidden", sender: &fakeSender{response: &rest.Response{StatusCode: http.StatusForbidden}}, kind: models.TransportAuth},
		{name: "too large", sender: &fakeSender{response: &rest.Response{StatusCode: http.StatusRequestEntityTooLarge}}, kind: models.TransportAttachmentTooLarge},
		{name: "server error", sender: &fakeSender{response: &rest.Response{StatusCode: http.StatusBadGateway}}, kind: models.TransportConnectivity},
		{name: "bad request", sender: &fakeSender{response: &rest.Response{StatusCode: http.StatusBadRequest, Body: "invalid from"}}, kind: models.TransportRejected},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := newTestClient(tc.sender).Deliver(context.Background(), models.Email{To: "ops@example.com", Subject: "s", Body: "b"})
			var tErr *models.TransportError
			require.True(t, errors.As(err, &tErr))
			assert.Equal(t, tc.kind, tErr.Kind)
		})
	}
}
