package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/watermonitor/internal/domain/models"
	"github.com/mamadbah2/watermonitor/internal/repository/storage"
	"github.com/mamadbah2/watermonitor/internal/service/alerting"
	"github.com/mamadbah2/watermonitor/internal/service/issues"
	"github.com/mamadbah2/watermonitor/internal/service/sites"
)

type staticSource struct {
	rows [][]string
	err  error
}

func (s *staticSource) Rows(context.Context) ([][]string, error) {
	return s.rows, s.err
}

type fakeNotifier struct {
	sent []models.Notification
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, n models.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n)
	return nil
}

type testServer struct {
	engine   *gin.Engine
	notifier *fakeNotifier
	stores   *storage.Stores
	source   *staticSource
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	upcoming := time.Now().AddDate(0, 0, 30).Format(models.DayLayout)
	source := &staticSource{rows: [][]string{
		{"Water System ID", "State", "Stock", "Upcoming maintenance date"},
		{"IN-WS-001", "Telangana", "45", upcoming},
		{"IN-WS-002", "Telangana", "250", "not a date"},
	}}

	notifier := &fakeNotifier{}
	stores := storage.NewMemory()
	directory := sites.NewDirectory(source, nil)
	engine := alerting.NewEngine(stores.Limits, stores.StockAlerts, notifier, time.Local, nil)
	issueSvc := issues.NewService(notifier, stores.Issues, time.Local, nil)

	h := NewSiteHandler(directory, engine, issueSvc, time.Local, nil)
	r := gin.New()
	r.POST("/sites/refresh", h.Refresh)
	r.GET("/sites/:id", h.Get)
	r.POST("/sites/:id/stock-alerts", h.ConfirmStockAlert)
	r.POST("/sites/:id/issues", h.RaiseIssue)

	return &testServer{engine: r, notifier: notifier, stores: stores, source: source}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func issueRequest(t *testing.T, siteID, description, filename string, image []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("description", description))
	if filename != "" {
		part, err := mw.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/sites/"+siteID+"/issues", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func typedIssueRequest(t *testing.T, siteID, filename, contentType string, image []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("description", "Tap is broken"))

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(image)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/sites/"+siteID+"/issues", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestGetSite(t *testing.T) {
	s := newTestServer(t)

	w := s.do(httptest.NewRequest(http.MethodGet, "/sites/IN-WS-001", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	stock := body["stock"].(map[string]any)
	assert.Equal(t, 45.0, stock["level"])
	assert.Equal(t, "eligible", stock["state"])

	maintenance := body["maintenance"].(map[string]any)
	assert.Equal(t, "scheduled", maintenance["state"])
	assert.Equal(t, 30.0, maintenance["days_remaining"])

	w = s.do(httptest.NewRequest(http.MethodGet, "/sites/IN-WS-002", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, "sufficient", body["stock"].(map[string]any)["state"])
	assert.Equal(t, "invalid", body["maintenance"].(map[string]any)["state"])
}

func TestGetSiteNotFound(t *testing.T) {
	s := newTestServer(t)
	w := s.do(httptest.NewRequest(http.MethodGet, "/sites/IN-WS-404", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConfirmStockAlertOncePerDay(t *testing.T) {
	s := newTestServer(t)

	w := s.do(httptest.NewRequest(http.MethodPost, "/sites/IN-WS-001/stock-alerts", nil))
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, s.notifier.sent, 1)
	assert.Equal(t, "Low Stock Alert - IN-WS-001", s.notifier.sent[0].Subject)

	w = s.do(httptest.NewRequest(http.MethodPost, "/sites/IN-WS-001/stock-alerts", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "suppressed", decode(t, w)["state"])
	assert.Len(t, s.notifier.sent, 1)

	w = s.do(httptest.NewRequest(http.MethodGet, "/sites/IN-WS-001", nil))
	stock := decode(t, w)["stock"].(map[string]any)
	assert.Equal(t, "suppressed", stock["state"])
	assert.NotEmpty(t, stock["last_alert"])

	entries, err := s.stores.StockAlerts.Entries(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestConfirmStockAlertSufficient(t *testing.T) {
	s := newTestServer(t)
	w := s.do(httptest.NewRequest(http.MethodPost, "/sites/IN-WS-002/stock-alerts", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "sufficient", decode(t, w)["state"])
	assert.Empty(t, s.notifier.sent)
}

type staleEngine struct{}

func (staleEngine) Today() time.Time { return models.CalendarDay(time.Now()) }

func (staleEngine) Evaluate(context.Context, string, float64, time.Time) alerting.Decision {
	return alerting.Decision{}
}

func (staleEngine) Confirm(context.Context, alerting.Decision) (alerting.Receipt, error) {
	return alerting.Receipt{}, fmt.Errorf("decision for 2026-10-18: %w", models.ErrStaleDecision)
}

func TestConfirmStockAlertStaleDecision(t *testing.T) {
	gin.SetMode(gin.TestMode)
	directory := sites.NewDirectory(&staticSource{rows: [][]string{
		{"Water System ID", "Stock"},
		{"IN-WS-001", "45"},
	}}, nil)
	h := NewSiteHandler(directory, staleEngine{}, nil, time.UTC, nil)
	r := gin.New()
	r.POST("/sites/:id/stock-alerts", h.ConfirmStockAlert)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sites/IN-WS-001/stock-alerts", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "stale", decode(t, w)["state"])
}

func TestConfirmStockAlertTransportFailure(t *testing.T) {
	s := newTestServer(t)
	s.notifier.err = &models.TransportError{Kind: models.TransportAuth, Err: errors.New("535")}

	w := s.do(httptest.NewRequest(http.MethodPost, "/sites/IN-WS-001/stock-alerts", nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "auth", decode(t, w)["kind"])

	w = s.do(httptest.NewRequest(http.MethodGet, "/sites/IN-WS-001", nil))
	assert.Equal(t, "eligible", decode(t, w)["stock"].(map[string]any)["state"])
}

func TestRaiseIssue(t *testing.T) {
	s := newTestServer(t)

	w := s.do(issueRequest(t, "IN-WS-001", "Pump is leaking", "leak.PNG", []byte("png-bytes")))
	require.Equal(t, http.StatusCreated, w.Code)

	require.Len(t, s.notifier.sent, 1)
	sent := s.notifier.sent[0]
	assert.Equal(t, "Issue Raised - IN-WS-001", sent.Subject)
	require.NotNil(t, sent.Attachment)
	assert.Equal(t, "png", sent.Attachment.MediaSubtype)
	assert.Equal(t, "leak.PNG", sent.Attachment.Filename)

	entries, err := s.stores.Issues.Entries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Pump is leaking", entries[0].Description)
}

func TestRaiseIssueUsesDeclaredImageType(t *testing.T) {
	s := newTestServer(t)

	w := s.do(typedIssueRequest(t, "IN-WS-001", "photo.jpg", "image/jpeg", []byte{0xff, 0xd8, 0xff}))
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, s.notifier.sent, 1)
	attachment := s.notifier.sent[0].Attachment
	require.NotNil(t, attachment)
	assert.Equal(t, "jpeg", attachment.MediaSubtype)
	assert.Equal(t, "image/jpeg", attachment.ContentType())
	assert.Equal(t, "photo.jpg", attachment.Filename)

	// An untyped part falls back to the extension and is still tagged image/jpeg.
	w = s.do(issueRequest(t, "IN-WS-001", "Tap is broken", "photo.jpg", []byte{0xff, 0xd8, 0xff}))
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, s.notifier.sent, 2)
	assert.Equal(t, "image/jpeg", s.notifier.sent[1].Attachment.ContentType())

	// A declared gif is rejected whatever the file is called.
	w = s.do(typedIssueRequest(t, "IN-WS-001", "photo.png", "image/gif", []byte("GIF89a")))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Len(t, s.notifier.sent, 2)
}

func TestRaiseIssueValidation(t *testing.T) {
	s := newTestServer(t)

	w := s.do(issueRequest(t, "IN-WS-001", "   ", "", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, models.ReasonEmpty, decode(t, w)["reason"])

	w = s.do(issueRequest(t, "IN-WS-001", strings.Repeat("word ", 101), "", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, models.ReasonTooLong, decode(t, w)["reason"])

	w = s.do(issueRequest(t, "IN-WS-001", "leak", "clip.gif", []byte("GIF89a")))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = s.do(issueRequest(t, "IN-WS-404", "leak", "", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Empty(t, s.notifier.sent)
}

func TestRefresh(t *testing.T) {
	s := newTestServer(t)

	w := s.do(httptest.NewRequest(http.MethodPost, "/sites/refresh", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2.0, decode(t, w)["sites"])

	s.source.err = errors.New("sheet unavailable")
	w = s.do(httptest.NewRequest(http.MethodPost, "/sites/refresh", nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
