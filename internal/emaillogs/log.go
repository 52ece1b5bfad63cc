// Package emaillogs keeps the delivery history of notification emails.
package emaillogs

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventease/backend/internal/ledger"
	"github.com/eventease/backend/internal/models"
	"github.com/eventease/backend/pkg/kvstore"
)

// maxEntries caps the stored history; the oldest entries are dropped first.
const maxEntries = 5000

// Key returns the storage key of the email log for namespace.
func Key(namespace string) string {
	if namespace == "" {
		namespace = "eventease_attendance"
	}
	return namespace + "_email_log"
}

// Log is an append-only list of email delivery attempts.
type Log struct {
	coll   *ledger.Collection[models.EmailLog]
	writer *ledger.Writer
	now    func() time.Time
}

// NewLog creates an email log over store.
func NewLog(store kvstore.Store, namespace string, logger *zap.Logger) *Log {
	return &Log{
		coll:   ledger.NewCollection[models.EmailLog](store, Key(namespace), logger, nil),
		writer: ledger.NewWriter(),
		now:    time.Now,
	}
}

// Close stops the log writer.
func (l *Log) Close() { l.writer.Close() }

// Append stores entry, filling in its id and creation time when unset.
func (l *Log) Append(ctx context.Context, entry models.EmailLog) (models.EmailLog, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = l.now().UTC()
	}
	err := l.writer.Do(ctx, func(ctx context.Context) error {
		all, err := l.coll.LoadAll(ctx)
		if err != nil {
			return err
		}
		all = append(all, entry)
		if len(all) > maxEntries {
			all = all[len(all)-maxEntries:]
		}
		return l.coll.SaveAll(ctx, all)
	})
	if err != nil {
		return models.EmailLog{}, fmt.Errorf("append email log: %w", err)
	}
	return entry, nil
}

// ListForEvent returns the email logs for eventID, newest first.
func (l *Log) ListForEvent(ctx context.Context, eventID string) ([]models.EmailLog, error) {
	eventID = strings.TrimSpace(eventID)
	all, err := l.coll.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.EmailLog, 0)
	for _, e := range all {
		if e.EventID == eventID {
			out = append(out, e)
		}
	}
	slices.Reverse(out)
	return out, nil
}
