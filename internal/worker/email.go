package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eventease/backend/internal/mailer"
	"github.com/eventease/backend/internal/models"
	"github.com/eventease/backend/pkg/queue"
)

// EmailLog stores delivery attempts.
type EmailLog interface {
	Append(ctx context.Context, entry models.EmailLog) (models.EmailLog, error)
}

// EmailProcessor delivers email jobs and records each attempt.
type EmailProcessor struct {
	mailer mailer.Mailer
	log    EmailLog
	logger *zap.Logger
}

// NewEmailProcessor creates an email processor. log may be nil.
func NewEmailProcessor(m mailer.Mailer, log EmailLog, logger *zap.Logger) *EmailProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailProcessor{mailer: m, log: log, logger: logger}
}

// Process executes one email job.
func (p *EmailProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeEmail {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.EmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	sendErr := p.mailer.Send(ctx, mailer.Message{
		ToName:  payload.RecipientName,
		To:      payload.RecipientEmail,
		Subject: payload.Subject,
		Body:    payload.Body,
	})

	entry := models.EmailLog{
		JobID:          job.ID,
		EventID:        payload.EventID,
		RegistrationID: payload.RegistrationID,
		EmailType:      string(payload.EmailType),
		RecipientEmail: payload.RecipientEmail,
		Subject:        payload.Subject,
		Status:         models.EmailLogStatusSent,
		Attempt:        job.Attempt,
	}
	if sendErr != nil {
		entry.Status = models.EmailLogStatusFailed
		entry.ErrorMessage = sendErr.Error()
	} else {
		now := time.Now().UTC()
		entry.SentAt = &now
	}
	if p.log != nil {
		if _, err := p.log.Append(ctx, entry); err != nil {
			p.logger.Warn("record email log failed", zap.Error(err), zap.String("job_id", job.ID))
		}
	}
	if sendErr != nil {
		return fmt.Errorf("send email: %w", sendErr)
	}
	return nil
}
