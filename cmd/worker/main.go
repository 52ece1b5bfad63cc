// Package main runs the background job worker (confirmation emails, report exports to S3).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eventease/backend/config"
	"github.com/eventease/backend/internal/app"
	"github.com/eventease/backend/internal/mailer"
	"github.com/eventease/backend/internal/worker"
	"github.com/eventease/backend/pkg/queue"
	"github.com/eventease/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	// The worker only makes sense with the queue, whatever the server is configured with.
	cfg.Jobs.Enabled = true

	ctx := context.Background()
	a, err := app.New(ctx, cfg, app.Options{}, logger)
	if err != nil {
		logger.Fatal("app", zap.Error(err))
	}
	defer a.Close()

	s3Client, err := storage.NewS3(ctx, storage.S3Config{
		Region:               cfg.AWS.Region,
		AccessKeyID:          cfg.AWS.AccessKeyID,
		SecretAccessKey:      cfg.AWS.SecretAccessKey,
		ReportsBucket:        cfg.AWS.ReportsBucket,
		Endpoint:             cfg.AWS.Endpoint,
		PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
	}, logger)
	if err != nil {
		logger.Fatal("s3", zap.Error(err))
	}

	emails := worker.NewEmailProcessor(newMailer(cfg.Email, logger), a.EmailLog, logger)
	reports := worker.NewReportProcessor(
		a.Analytics,
		worker.ReportSources{Registrations: a.Registrations, Attendance: a.Attendance},
		a.Catalog,
		s3Client,
		logger,
	)
	runner := worker.NewRunner(a.Queue, logger).
		Handle(queue.JobTypeEmail, emails).
		Handle(queue.JobTypeReport, reports)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		runner.Run(workerCtx)
	}()
	logger.Info("worker started", zap.Strings("lists", runner.Lists()))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	select {
	case <-done:
	case <-time.After(queue.PollTimeout + 2*time.Second):
		logger.Warn("worker did not stop in time")
	}
	logger.Info("worker stopped")
}

func newMailer(cfg config.EmailConfig, logger *zap.Logger) mailer.Mailer {
	if cfg.SMTPHost == "" {
		logger.Info("SMTP_HOST not set, emails are logged only")
		return mailer.NewLogMailer(logger)
	}
	m, err := mailer.NewSMTPMailer(mailer.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.FromAddress,
		FromName: cfg.FromName,
	}, logger)
	if err != nil {
		logger.Fatal("smtp", zap.Error(err))
	}
	return m
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
