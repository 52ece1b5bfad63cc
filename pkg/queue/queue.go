package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueEmails is the Redis list key for email jobs.
	QueueEmails = "worker:emails"
	// QueueReports is the Redis list key for attendance report exports.
	QueueReports = "worker:reports"
	// QueueDLQ is the dead-letter queue for failed jobs after retries.
	QueueDLQ = "worker:dlq"
	// MaxRetries is the number of times to retry a job before moving to DLQ.
	MaxRetries = 3
	// RetryBackoff is the delay between retries.
	RetryBackoff = 10 * time.Second
	// PollTimeout bounds one blocking dequeue so shutdown is noticed.
	PollTimeout = 5 * time.Second
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypeEmail  JobType = "email"
	JobTypeReport JobType = "report"
)

// EmailType selects the email template.
type EmailType string

const (
	EmailTypeRegistrationConfirmation EmailType = "registration_confirmation"
	EmailTypeCheckInReceipt           EmailType = "checkin_receipt"
)

// EmailPayload is the payload for email jobs.
type EmailPayload struct {
	EmailType      EmailType `json:"email_type"`
	EventID        string    `json:"event_id"`
	EventName      string    `json:"event_name,omitempty"`
	RegistrationID string    `json:"registration_id"`
	RecipientName  string    `json:"recipient_name,omitempty"`
	RecipientEmail string    `json:"recipient_email"`
	Subject        string    `json:"subject"`
	Body           string    `json:"body"`
}

// ReportPayload is the payload for attendance report exports.
type ReportPayload struct {
	EventID     string    `json:"event_id"`
	RequestedAt time.Time `json:"requested_at"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

// ListFor returns the list key that holds jobs of type t.
func ListFor(t JobType) (string, error) {
	switch t {
	case JobTypeEmail:
		return QueueEmails, nil
	case JobTypeReport:
		return QueueReports, nil
	}
	return "", fmt.Errorf("unknown job type: %s", t)
}

// EnqueueEmail enqueues an email job and returns its id.
func (q *Queue) EnqueueEmail(ctx context.Context, payload EmailPayload) (string, error) {
	id, err := q.enqueue(ctx, JobTypeEmail, payload)
	if err != nil {
		return "", err
	}
	q.logger.Debug("enqueued email job", zap.String("job_id", id), zap.String("email_type", string(payload.EmailType)))
	return id, nil
}

// EnqueueReport enqueues an attendance report export and returns its id.
func (q *Queue) EnqueueReport(ctx context.Context, payload ReportPayload) (string, error) {
	id, err := q.enqueue(ctx, JobTypeReport, payload)
	if err != nil {
		return "", err
	}
	q.logger.Debug("enqueued report job", zap.String("job_id", id), zap.String("event_id", payload.EventID))
	return id, nil
}

func (q *Queue) enqueue(ctx context.Context, t JobType, payload any) (string, error) {
	list, err := ListFor(t)
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	job := Job{
		ID:        uuid.NewString(),
		Type:      t,
		Payload:   body,
		CreatedAt: time.Now().UTC(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, list, raw).Err(); err != nil {
		return "", fmt.Errorf("rpush: %w", err)
	}
	return job.ID, nil
}

// Dequeue blocks up to PollTimeout for a job from any of lists (all job lists when empty).
// A nil job with nil error means nothing arrived in time or the payload was unreadable.
func (q *Queue) Dequeue(ctx context.Context, lists ...string) (*Job, string, error) {
	if len(lists) == 0 {
		lists = []string{QueueEmails, QueueReports}
	}
	result, err := q.client.BLPop(ctx, PollTimeout, lists...).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, "", nil
		}
		return nil, "", err
	}
	if len(result) < 2 {
		return nil, "", nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, "", nil
	}
	return &job, result[0], nil
}

// Retry re-enqueues a job with incremented attempt. If attempt >= MaxRetries, pushes to DLQ instead.
func (q *Queue) Retry(ctx context.Context, job *Job) error {
	job.Attempt++
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if job.Attempt >= MaxRetries {
		if err := q.client.RPush(ctx, QueueDLQ, raw).Err(); err != nil {
			q.logger.Error("dlq push failed", zap.Error(err), zap.String("job_id", job.ID))
			return err
		}
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		return nil
	}
	list, err := ListFor(job.Type)
	if err != nil {
		return err
	}
	if err := q.client.RPush(ctx, list, raw).Err(); err != nil {
		return err
	}
	q.logger.Info("job retried", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return nil
}

// Len returns the number of jobs waiting in list.
func (q *Queue) Len(ctx context.Context, list string) (int64, error) {
	return q.client.LLen(ctx, list).Result()
}
