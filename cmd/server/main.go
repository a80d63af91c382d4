package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/watermonitor/internal/config"
	"github.com/mamadbah2/watermonitor/internal/metrics"
	"github.com/mamadbah2/watermonitor/internal/repository/sheets"
	"github.com/mamadbah2/watermonitor/internal/repository/storage"
	"github.com/mamadbah2/watermonitor/internal/scheduler"
	"github.com/mamadbah2/watermonitor/internal/server/handlers"
	"github.com/mamadbah2/watermonitor/internal/server/router"
	"github.com/mamadbah2/watermonitor/internal/service/alerting"
	"github.com/mamadbah2/watermonitor/internal/service/issues"
	"github.com/mamadbah2/watermonitor/internal/service/notify"
	"github.com/mamadbah2/watermonitor/internal/service/sites"
	sendgridclient "github.com/mamadbah2/watermonitor/pkg/clients/sendgrid"
	smtpclient "github.com/mamadbah2/watermonitor/pkg/clients/smtp"
	"github.com/mamadbah2/watermonitor/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)
	metrics.Register()

	loc := cfg.Server.Location()

	source, err := newSiteSource(context.Background(), cfg, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to init site dataset source", zap.Error(err))
	}
	directory := sites.NewDirectory(source, logger.Named(baseLogger, "svc.sites"))
	if err := directory.Refresh(context.Background()); err != nil {
		// Lookups retry the load lazily.
		baseLogger.Warn("initial dataset load failed", zap.Error(err))
	}

	stores, err := storage.Open(context.Background(), cfg, logger.Named(baseLogger, "repo.storage"))
	if err != nil {
		baseLogger.Fatal("failed to init storage", zap.Error(err))
	}
	defer func() {
		if err := stores.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close storage", zap.Error(err))
		}
	}()

	dispatcher := notify.NewDispatcher(newTransport(cfg), cfg.Mail.Recipient, cfg.Mail.MaxAttachmentBytes, logger.Named(baseLogger, "svc.notify"))
	engine := alerting.NewEngine(stores.Limits, stores.StockAlerts, dispatcher, loc, logger.Named(baseLogger, "svc.alerting"))
	issueSvc := issues.NewService(dispatcher, stores.Issues, loc, logger.Named(baseLogger, "svc.issues"))

	siteHandler := handlers.NewSiteHandler(directory, engine, issueSvc, loc, logger.Named(baseLogger, "handlers.sites"))
	ginEngine := router.New(siteHandler, logger.Named(baseLogger, "router"))

	sched := scheduler.NewScheduler(cfg.Dataset.RefreshCron, loc, directory, logger.Named(baseLogger, "scheduler"))
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      ginEngine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Mail.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("timezone", loc.String()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newSiteSource(ctx context.Context, cfg *config.Config, base *zap.Logger) (sites.Source, error) {
	if cfg.Dataset.Source == config.DatasetSheets {
		repo, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, cfg.Dataset.SheetRange, logger.Named(base, "repo.sheets"))
		if err != nil {
			return nil, err
		}
		return repo, nil
	}
	return sheets.NewCSVExportSource(cfg.SiteCSVURL(), logger.Named(base, "repo.csv")), nil
}

func newTransport(cfg *config.Config) notify.Transport {
	if cfg.Mail.Transport == config.MailSendGrid {
		return sendgridclient.NewClient(cfg.Mail)
	}
	return smtpclient.NewClient(cfg.Mail)
}
