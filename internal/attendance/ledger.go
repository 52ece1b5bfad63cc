// Package attendance records check-ins and check-outs of registered users.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventease/backend/internal/ledger"
	"github.com/eventease/backend/internal/metrics"
	"github.com/eventease/backend/internal/models"
	"github.com/eventease/backend/internal/notify"
	"github.com/eventease/backend/internal/registrations"
	"github.com/eventease/backend/pkg/kvstore"
)

const ledgerName = "attendance"

const checkoutSeparator = " | Checkout: "

var (
	ErrNotAuthenticated = errors.New("no active session")
	ErrNotRegistered    = errors.New("not registered for this event")
	ErrAlreadyCheckedIn = errors.New("already checked in to this event")
)

// Sessions resolves the current user.
type Sessions interface {
	CurrentUserID(ctx context.Context) (userID string, ok bool, err error)
}

// Registrations looks up the live registration of a user for an event.
type Registrations interface {
	Live(ctx context.Context, eventID, userID string) (*models.Registration, error)
}

// Options configure a Ledger.
type Options struct {
	Namespace string
	// AllowDuplicates lets a user hold several open check-ins for one event.
	AllowDuplicates bool
}

// Key returns the storage key of the attendance collection for namespace.
func Key(namespace string) string {
	if namespace == "" {
		namespace = registrations.DefaultNamespace
	}
	return namespace + "_records"
}

// Ledger owns the stored attendance records. Event ids are trimmed like registrations'.
type Ledger struct {
	coll     *ledger.Collection[models.AttendanceRecord]
	writer   *ledger.Writer
	sessions Sessions
	regs     Registrations
	opts     Options
	recorded *notify.Observers[models.AttendanceRecord]
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewLedger creates an attendance ledger. Call Close to stop its writer.
func NewLedger(store kvstore.Store, sessions Sessions, regs Registrations, opts Options, logger *zap.Logger, m *metrics.Metrics) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("ledger", ledgerName))
	return &Ledger{
		coll:     ledger.NewCollection[models.AttendanceRecord](store, Key(opts.Namespace), logger, m),
		writer:   ledger.NewWriter(),
		sessions: sessions,
		regs:     regs,
		opts:     opts,
		recorded: notify.NewObservers[models.AttendanceRecord]("attendance_recorded", logger),
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
}

// SetClock replaces time.Now. Used by tests.
func (l *Ledger) SetClock(now func() time.Time) { l.now = now }

// Close stops the ledger writer after pending mutations finish.
func (l *Ledger) Close() { l.writer.Close() }

// Subscribe registers fn to be called after each successful CheckIn.
func (l *Ledger) Subscribe(fn func(models.AttendanceRecord)) (unsubscribe func()) {
	return l.recorded.Subscribe(fn)
}

// CheckIn records the current user as present at eventID. The user must hold a live registration.
func (l *Ledger) CheckIn(ctx context.Context, eventID string, notes *string) (models.AttendanceRecord, error) {
	eventID = strings.TrimSpace(eventID)
	userID, ok, err := l.sessions.CurrentUserID(ctx)
	if err != nil {
		return models.AttendanceRecord{}, fmt.Errorf("resolve user: %w", err)
	}
	if !ok {
		l.metrics.IncMutation(ledgerName, "checkin", "rejected")
		return models.AttendanceRecord{}, ErrNotAuthenticated
	}
	reg, err := l.regs.Live(ctx, eventID, userID)
	if err != nil {
		l.metrics.IncMutation(ledgerName, "checkin", "error")
		return models.AttendanceRecord{}, fmt.Errorf("load registration: %w", err)
	}
	if reg == nil {
		l.metrics.IncMutation(ledgerName, "checkin", "rejected")
		return models.AttendanceRecord{}, ErrNotRegistered
	}

	var rec models.AttendanceRecord
	start := time.Now()
	err = l.writer.Do(ctx, func(ctx context.Context) error {
		all, err := l.coll.LoadAll(ctx)
		if err != nil {
			return err
		}
		if !l.opts.AllowDuplicates && indexOpen(all, eventID, userID) >= 0 {
			return ErrAlreadyCheckedIn
		}
		rec = models.AttendanceRecord{
			ID:             uuid.NewString(),
			RegistrationID: reg.ID,
			EventID:        eventID,
			UserID:         userID,
			CheckInAt:      l.now().UTC(),
			Status:         models.AttendanceStatusPresent,
			Notes:          trimmed(notes),
		}
		return l.coll.SaveAll(ctx, append(all, rec))
	})
	l.metrics.ObserveWrite(ledgerName, time.Since(start))
	switch {
	case errors.Is(err, ErrAlreadyCheckedIn):
		l.metrics.IncMutation(ledgerName, "checkin", "rejected")
		return models.AttendanceRecord{}, err
	case err != nil:
		l.metrics.IncMutation(ledgerName, "checkin", "error")
		return models.AttendanceRecord{}, fmt.Errorf("check in: %w", err)
	}

	l.metrics.IncMutation(ledgerName, "checkin", "ok")
	l.logger.Info("checked in",
		zap.String("attendance_id", rec.ID),
		zap.String("event_id", eventID),
		zap.String("user_id", userID))
	l.recorded.Notify(rec)
	return rec, nil
}

// CheckOut closes the current user's first open record for eventID. notes, when given, are
// appended to the record's notes. It returns false when there is no session or no open record.
func (l *Ledger) CheckOut(ctx context.Context, eventID string, notes *string) (bool, error) {
	eventID = strings.TrimSpace(eventID)
	userID, ok, err := l.sessions.CurrentUserID(ctx)
	if err != nil {
		return false, fmt.Errorf("resolve user: %w", err)
	}
	if !ok {
		l.metrics.IncMutation(ledgerName, "checkout", "noop")
		return false, nil
	}

	found := false
	start := time.Now()
	err = l.writer.Do(ctx, func(ctx context.Context) error {
		all, err := l.coll.LoadAll(ctx)
		if err != nil {
			return err
		}
		i := indexOpen(all, eventID, userID)
		if i < 0 {
			return nil
		}
		found = true
		out := l.now().UTC()
		if out.Before(all[i].CheckInAt) {
			out = all[i].CheckInAt
		}
		all[i].CheckOutAt = &out
		all[i].Notes = appendNotes(all[i].Notes, trimmed(notes))
		return l.coll.SaveAll(ctx, all)
	})
	l.metrics.ObserveWrite(ledgerName, time.Since(start))
	if err != nil {
		l.metrics.IncMutation(ledgerName, "checkout", "error")
		return false, fmt.Errorf("check out: %w", err)
	}
	if !found {
		l.metrics.IncMutation(ledgerName, "checkout", "noop")
		return false, nil
	}
	l.metrics.IncMutation(ledgerName, "checkout", "ok")
	l.logger.Info("checked out", zap.String("event_id", eventID), zap.String("user_id", userID))
	return true, nil
}

// ListForEvent returns every attendance record for eventID in insertion order.
func (l *Ledger) ListForEvent(ctx context.Context, eventID string) ([]models.AttendanceRecord, error) {
	eventID = strings.TrimSpace(eventID)
	all, err := l.coll.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.AttendanceRecord, 0, len(all))
	for _, a := range all {
		if a.EventID == eventID {
			out = append(out, a)
		}
	}
	return out, nil
}

// FindForCurrentUser returns the current user's first record for eventID, open or not. nil when none.
func (l *Ledger) FindForCurrentUser(ctx context.Context, eventID string) (*models.AttendanceRecord, error) {
	eventID = strings.TrimSpace(eventID)
	userID, ok, err := l.sessions.CurrentUserID(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	if !ok {
		return nil, nil
	}
	all, err := l.coll.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range all {
		if a.Matches(eventID, userID) {
			return &a, nil
		}
	}
	return nil, nil
}

func indexOpen(all []models.AttendanceRecord, eventID, userID string) int {
	for i, a := range all {
		if a.Matches(eventID, userID) && a.IsOpen() {
			return i
		}
	}
	return -1
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func appendNotes(existing, extra *string) *string {
	if extra == nil {
		return existing
	}
	if existing == nil {
		v := "Checkout: " + *extra
		return &v
	}
	v := *existing + checkoutSeparator + *extra
	return &v
}
