//go:build integration

package queue_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/eventease/backend/pkg/queue"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestQueue_EnqueueDequeueRetry(t *testing.T) {
	ctx := context.Background()
	q := queue.NewQueue(newRedis(t), nil)

	id, err := q.EnqueueReport(ctx, queue.ReportPayload{EventID: "3", RequestedAt: time.Now()})
	require.NoError(t, err)

	job, list, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, queue.QueueReports, list)
	assert.Equal(t, id, job.ID)
	assert.Equal(t, queue.JobTypeReport, job.Type)

	var payload queue.ReportPayload
	require.NoError(t, json.Unmarshal(job.Payload, &payload))
	assert.Equal(t, "3", payload.EventID)

	for i := 1; i < queue.MaxRetries; i++ {
		require.NoError(t, q.Retry(ctx, job))
		n, err := q.Len(ctx, queue.QueueReports)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n, "retried onto its own list")
		job, _, err = q.Dequeue(ctx, queue.QueueReports)
		require.NoError(t, err)
		require.NotNil(t, job)
	}

	require.NoError(t, q.Retry(ctx, job))
	n, err := q.Len(ctx, queue.QueueDLQ)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestQueue_EmailJobs(t *testing.T) {
	ctx := context.Background()
	q := queue.NewQueue(newRedis(t), nil)

	_, err := q.EnqueueEmail(ctx, queue.EmailPayload{
		EmailType:      queue.EmailTypeRegistrationConfirmation,
		EventID:        "1",
		RecipientEmail: "ada@example.com",
	})
	require.NoError(t, err)

	job, list, err := q.Dequeue(ctx, queue.QueueEmails)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, queue.QueueEmails, list)
	assert.Equal(t, queue.JobTypeEmail, job.Type)
}
