package handlers

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/watermonitor/internal/domain/models"
	"github.com/mamadbah2/watermonitor/internal/service/alerting"
	"github.com/mamadbah2/watermonitor/internal/service/issues"
)

// SiteDirectory resolves sites from the cached dataset.
type SiteDirectory interface {
	Lookup(ctx context.Context, siteID string) (models.SiteRecord, error)
	Refresh(ctx context.Context) error
	StockOf(record models.SiteRecord) float64
	Len() int
	LoadedAt() time.Time
}

// AlertEngine evaluates and confirms low-stock alerts.
type AlertEngine interface {
	Today() time.Time
	Evaluate(ctx context.Context, siteID string, stock float64, today time.Time) alerting.Decision
	Confirm(ctx context.Context, d alerting.Decision) (alerting.Receipt, error)
}

// IssueSubmitter raises issues.
type IssueSubmitter interface {
	Submit(ctx context.Context, issue models.Issue) (issues.Receipt, error)
}

// SiteHandler exposes the operator actions over HTTP.
type SiteHandler struct {
	directory SiteDirectory
	engine    AlertEngine
	issues    IssueSubmitter
	loc       *time.Location
	logger    *zap.Logger
}

// NewSiteHandler constructs the HTTP handler adapter.
func NewSiteHandler(directory SiteDirectory, engine AlertEngine, issues IssueSubmitter, loc *time.Location, logger *zap.Logger) *SiteHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &SiteHandler{
		directory: directory,
		engine:    engine,
		issues:    issues,
		loc:       loc,
		logger:    logger,
	}
}

type stockView struct {
	Level     float64 `json:"level"`
	Threshold float64 `json:"threshold"`
	State     string  `json:"state"`
	LastAlert string  `json:"last_alert,omitempty"`
}

type siteView struct {
	Site        models.SiteRecord        `json:"site"`
	Stock       stockView                `json:"stock"`
	Maintenance models.MaintenanceStatus `json:"maintenance"`
}

// Get returns the site record with its stock decision and maintenance status.
func (h *SiteHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	record, err := h.directory.Lookup(ctx, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	stock := h.directory.StockOf(record)
	today := h.engine.Today()
	decision := h.engine.Evaluate(ctx, record.ID, stock, today)

	view := siteView{
		Site: record,
		Stock: stockView{
			Level:     stock,
			Threshold: alerting.LowStockThreshold,
			State:     decision.State().String(),
		},
		Maintenance: models.EvaluateMaintenance(record.UpcomingMaintenance, today, h.loc),
	}
	if last, ok := decision.LastAlert(); ok {
		view.Stock.LastAlert = last.Format(models.DayLayout)
	}

	c.JSON(http.StatusOK, view)
}

// ConfirmStockAlert sends the low-stock alert of a site if it is eligible today.
func (h *SiteHandler) ConfirmStockAlert(c *gin.Context) {
	ctx := c.Request.Context()

	record, err := h.directory.Lookup(ctx, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	stock := h.directory.StockOf(record)
	decision := h.engine.Evaluate(ctx, record.ID, stock, h.engine.Today())

	receipt, err := h.engine.Confirm(ctx, decision)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"site_id":    receipt.SiteID,
		"stock":      receipt.Stock,
		"day":        receipt.Day.Format(models.DayLayout),
		"alerted_at": receipt.AlertedAt.Format(models.TimestampLayout),
	})
}

// RaiseIssue accepts a multipart form with a description and an optional image.
func (h *SiteHandler) RaiseIssue(c *gin.Context) {
	ctx := c.Request.Context()

	record, err := h.directory.Lookup(ctx, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	issue := models.Issue{
		SiteID:      record.ID,
		Description: c.PostForm("description"),
	}

	attachment, err := readImage(c)
	if err != nil {
		h.logger.Warn("invalid issue image", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image upload"})
		return
	}
	issue.Attachment = attachment

	receipt, err := h.issues.Submit(ctx, issue)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"site_id":   receipt.SiteID,
		"issued_at": receipt.IssuedAt.Format(models.TimestampLayout),
	})
}

// Refresh reloads the site dataset.
func (h *SiteHandler) Refresh(c *gin.Context) {
	if err := h.directory.Refresh(c.Request.Context()); err != nil {
		h.logger.Error("dataset refresh failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to refresh site dataset"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sites":     h.directory.Len(),
		"loaded_at": h.directory.LoadedAt().In(h.loc).Format(models.TimestampLayout),
	})
}

// readImage returns the optional "image" form file. The media subtype is the
// one the uploader declared in the part's Content-Type, falling back to the
// file extension when the part is untyped.
func readImage(c *gin.Context) (*models.Attachment, error) {
	header, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	filename := filepath.Base(header.Filename)
	subtype := declaredSubtype(header.Header.Get("Content-Type"))
	if subtype == "" {
		subtype = strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	}

	return &models.Attachment{
		Data:         data,
		MediaSubtype: subtype,
		Filename:     filename,
	}, nil
}

// declaredSubtype returns the subtype of an image/* content type, or "" for
// anything else.
func declaredSubtype(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	kind, subtype, ok := strings.Cut(mediaType, "/")
	if !ok || kind != "image" {
		return ""
	}
	return subtype
}

func (h *SiteHandler) writeError(c *gin.Context, err error) {
	var (
		notFound    *models.NotFoundError
		invalid     *models.ValidationError
		suppressed  *models.SuppressedError
		transport   *models.TransportError
		persistence *models.PersistenceError
	)

	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &invalid):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "reason": invalid.Reason})
	case errors.As(err, &suppressed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "state": alerting.Suppressed.String()})
	case errors.Is(err, models.ErrStaleDecision):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "state": "stale"})
	case errors.Is(err, models.ErrNotEligible):
		c.JSON(http.StatusConflict, gin.H{"error": "stock level sufficient, no alert needed", "state": alerting.Sufficient.String()})
	case errors.As(err, &transport):
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to send notification", "kind": string(transport.Kind)})
	case errors.As(err, &persistence):
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "notification_sent": persistence.NotificationSent})
	default:
		h.logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
