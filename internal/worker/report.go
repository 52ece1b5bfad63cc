package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/eventease/backend/internal/analytics"
	"github.com/eventease/backend/internal/models"
	"github.com/eventease/backend/pkg/queue"
	"github.com/eventease/backend/pkg/storage"
)

// Summarizer computes event statistics.
type Summarizer interface {
	Summary(ctx context.Context, eventID string) (analytics.Summary, error)
}

// ReportSources lists the ledger contents of an event.
type ReportSources struct {
	Registrations analytics.RegistrationSource
	Attendance    analytics.AttendanceSource
}

// EventLookup resolves event ids to catalog entries.
type EventLookup interface {
	Get(id string) (models.Event, bool)
}

// Uploader stores report objects.
type Uploader interface {
	Upload(ctx context.Context, bucket, key, contentType string, body io.Reader, contentLength int64) (string, error)
	ReportsBucket() string
}

// Report is the exported attendance report of one event.
type Report struct {
	Event         models.Event              `json:"event"`
	Summary       analytics.Summary         `json:"summary"`
	Registrations []models.Registration     `json:"registrations"`
	Attendance    []models.AttendanceRecord `json:"attendance"`
	GeneratedAt   time.Time                 `json:"generatedAt"`
}

// ReportProcessor builds attendance reports and uploads them as JSON.
type ReportProcessor struct {
	summarizer Summarizer
	sources    ReportSources
	events     EventLookup
	uploader   Uploader
	logger     *zap.Logger
	now        func() time.Time
}

// NewReportProcessor creates a report processor.
func NewReportProcessor(
	summarizer Summarizer,
	sources ReportSources,
	events EventLookup,
	uploader Uploader,
	logger *zap.Logger,
) *ReportProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportProcessor{
		summarizer: summarizer,
		sources:    sources,
		events:     events,
		uploader:   uploader,
		logger:     logger,
		now:        time.Now,
	}
}

// Process executes one report job.
func (p *ReportProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeReport {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.ReportPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	report, err := p.Build(ctx, payload.EventID)
	if err != nil {
		return err
	}
	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	key := storage.ReportKey(payload.EventID, report.GeneratedAt)
	url, err := p.uploader.Upload(ctx, p.uploader.ReportsBucket(), key, "application/json", bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}
	p.logger.Info("report uploaded", zap.String("event_id", payload.EventID), zap.String("s3_key", key), zap.String("url", url))
	return nil
}

// Build assembles the report of eventID from the current ledger contents.
func (p *ReportProcessor) Build(ctx context.Context, eventID string) (Report, error) {
	ev, ok := p.events.Get(eventID)
	if !ok {
		ev = models.Event{ID: eventID}
	}
	summary, err := p.summarizer.Summary(ctx, eventID)
	if err != nil {
		return Report{}, fmt.Errorf("summary: %w", err)
	}
	regs, err := p.sources.Registrations.ListForEvent(ctx, eventID)
	if err != nil {
		return Report{}, fmt.Errorf("list registrations: %w", err)
	}
	recs, err := p.sources.Attendance.ListForEvent(ctx, eventID)
	if err != nil {
		return Report{}, fmt.Errorf("list attendance: %w", err)
	}
	return Report{
		Event:         ev,
		Summary:       summary,
		Registrations: regs,
		Attendance:    recs,
		GeneratedAt:   p.now().UTC(),
	}, nil
}
