package registrations

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
	"github.com/eventease/backend/pkg/kvstore"
)

// DefaultNamespace prefixes the storage keys of both ledgers.
const DefaultNamespace = "eventease_attendance"

const ledgerName = "registrations"

var (
	ErrAlreadyRegistered = errors.New("already registered for this event")
	ErrInvalidInput      = errors.New("invalid registration")
	ErrEventRequired     = fmt.Errorf("%w: event id is required", ErrInvalidInput)
)

// SessionProvider resolves the current user and tracks their registered events.
type SessionProvider interface {
	CurrentUserID(ctx context.Context) (userID string, ok bool, err error)
	MarkEventRegistered(ctx context.Context, eventID string) error
}

// Options configure a Ledger.
type Options struct {
	Namespace string
	// AllowDuplicates skips the live-registration check in Register, allowing several
	// live registrations for one user/event pair.
	AllowDuplicates bool
}

// RegisterInput is the data supplied by the registering user.
type RegisterInput struct {
	EventID            string
	UserName           string
	UserEmail          string
	UserPhone          string
	SpecialRequests    *string
	EmailNotifications bool
}

// Ledger owns the stored registrations. Every operation trims surrounding whitespace
// from event ids.
type Ledger struct {
	coll     *ledger.Collection[models.Registration]
	writer   *ledger.Writer
	sessions SessionProvider
	opts     Options
	created  *notify.Observers[models.Registration]
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Key returns the storage key of the registrations collection for namespace.
func Key(namespace string) string {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return namespace + "_registrations"
}

// NewLedger creates a registration ledger. Call Close to stop its writer.
func NewLedger(store kvstore.Store, sessions SessionProvider, opts Options, logger *zap.Logger, m *metrics.Metrics) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("ledger", ledgerName))
	return &Ledger{
		coll:     ledger.NewCollection[models.Registration](store, Key(opts.Namespace), logger, m),
		writer:   ledger.NewWriter(),
		sessions: sessions,
		opts:     opts,
		created:  notify.NewObservers[models.Registration]("registration_created", logger),
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
}

// SetClock replaces time.Now. Used by tests.
func (l *Ledger) SetClock(now func() time.Time) { l.now = now }

// Close stops the ledger writer after pending mutations finish.
func (l *Ledger) Close() { l.writer.Close() }

// Subscribe registers fn to be called after each successful Register.
func (l *Ledger) Subscribe(fn func(models.Registration)) (unsubscribe func()) {
	return l.created.Subscribe(fn)
}

// Register records a new registration for the current user, or for a freshly minted
// anonymous user id when there is no session.
func (l *Ledger) Register(ctx context.Context, in RegisterInput) (models.Registration, error) {
	eventID := strings.TrimSpace(in.EventID)
	if eventID == "" {
		return models.Registration{}, ErrEventRequired
	}
	userID, ok, err := l.sessions.CurrentUserID(ctx)
	if err != nil {
		return models.Registration{}, fmt.Errorf("resolve user: %w", err)
	}
	if !ok {
		userID = uuid.NewString()
	}

	var reg models.Registration
	start := time.Now()
	err = l.writer.Do(ctx, func(ctx context.Context) error {
		all, err := l.coll.LoadAll(ctx)
		if err != nil {
			return err
		}
		if !l.opts.AllowDuplicates && indexOf(all, eventID, userID, true) >= 0 {
			return ErrAlreadyRegistered
		}
		reg = models.Registration{
			ID:                 uuid.NewString(),
			UserID:             userID,
			EventID:            eventID,
			UserName:           strings.TrimSpace(in.UserName),
			UserEmail:          strings.TrimSpace(in.UserEmail),
			UserPhone:          strings.TrimSpace(in.UserPhone),
			RegisteredAt:       l.now().UTC(),
			Status:             models.RegistrationStatusRegistered,
			SpecialRequests:    in.SpecialRequests,
			EmailNotifications: in.EmailNotifications,
		}
		return l.coll.SaveAll(ctx, append(all, reg))
	})
	l.metrics.ObserveWrite(ledgerName, time.Since(start))
	switch {
	case errors.Is(err, ErrAlreadyRegistered):
		l.metrics.IncMutation(ledgerName, "register", "rejected")
		return models.Registration{}, err
	case err != nil:
		l.metrics.IncMutation(ledgerName, "register", "error")
		return models.Registration{}, fmt.Errorf("register: %w", err)
	}

	if err := l.sessions.MarkEventRegistered(ctx, eventID); err != nil {
		l.metrics.IncMutation(ledgerName, "register", "error")
		l.logger.Error("registration stored but session sync failed",
			zap.String("registration_id", reg.ID), zap.Error(err))
		return models.Registration{}, fmt.Errorf("sync session: %w", err)
	}
	l.metrics.IncMutation(ledgerName, "register", "ok")
	l.logger.Info("registration created",
		zap.String("registration_id", reg.ID),
		zap.String("event_id", eventID),
		zap.Bool("anonymous", !ok))
	l.created.Notify(reg)
	return reg, nil
}

// ListForCurrentUser returns the current user's registrations; empty without a session.
func (l *Ledger) ListForCurrentUser(ctx context.Context) ([]models.Registration, error) {
	userID, ok, err := l.sessions.CurrentUserID(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	if !ok {
		return []models.Registration{}, nil
	}
	return l.filter(ctx, func(r models.Registration) bool { return r.UserID == userID })
}

// ListForEvent returns every registration for eventID, cancelled ones included.
func (l *Ledger) ListForEvent(ctx context.Context, eventID string) ([]models.Registration, error) {
	eventID = strings.TrimSpace(eventID)
	return l.filter(ctx, func(r models.Registration) bool { return r.EventID == eventID })
}

// Find returns the registration of userID for eventID, preferring a live one; nil when none exists.
func (l *Ledger) Find(ctx context.Context, eventID, userID string) (*models.Registration, error) {
	eventID = strings.TrimSpace(eventID)
	all, err := l.coll.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOf(all, eventID, userID, true)
	if i < 0 {
		i = indexOf(all, eventID, userID, false)
	}
	if i < 0 {
		return nil, nil
	}
	reg := all[i]
	return &reg, nil
}

// Live returns the live registration of userID for eventID, or nil.
func (l *Ledger) Live(ctx context.Context, eventID, userID string) (*models.Registration, error) {
	eventID = strings.TrimSpace(eventID)
	all, err := l.coll.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOf(all, eventID, userID, true)
	if i < 0 {
		return nil, nil
	}
	reg := all[i]
	return &reg, nil
}

// IsRegistered reports whether the current user holds a live registration for eventID.
func (l *Ledger) IsRegistered(ctx context.Context, eventID string) (bool, error) {
	userID, ok, err := l.sessions.CurrentUserID(ctx)
	if err != nil {
		return false, fmt.Errorf("resolve user: %w", err)
	}
	if !ok {
		return false, nil
	}
	reg, err := l.Live(ctx, eventID, userID)
	if err != nil {
		return false, err
	}
	return reg != nil, nil
}

// Cancel marks the current user's registration for eventID as cancelled. The record is kept.
// It returns false when the user has no registration for the event.
func (l *Ledger) Cancel(ctx context.Context, eventID string) (bool, error) {
	eventID = strings.TrimSpace(eventID)
	userID, ok, err := l.sessions.CurrentUserID(ctx)
	if err != nil {
		return false, fmt.Errorf("resolve user: %w", err)
	}
	if !ok {
		l.metrics.IncMutation(ledgerName, "cancel", "noop")
		return false, nil
	}

	found := false
	start := time.Now()
	err = l.writer.Do(ctx, func(ctx context.Context) error {
		all, err := l.coll.LoadAll(ctx)
		if err != nil {
			return err
		}
		i := indexOf(all, eventID, userID, true)
		if i < 0 {
			i = indexOf(all, eventID, userID, false)
		}
		if i < 0 {
			return nil
		}
		found = true
		if all[i].Status == models.RegistrationStatusCancelled {
			return nil
		}
		all[i].Status = models.RegistrationStatusCancelled
		return l.coll.SaveAll(ctx, all)
	})
	l.metrics.ObserveWrite(ledgerName, time.Since(start))
	if err != nil {
		l.metrics.IncMutation(ledgerName, "cancel", "error")
		return false, fmt.Errorf("cancel: %w", err)
	}
	if !found {
		l.metrics.IncMutation(ledgerName, "cancel", "noop")
		return false, nil
	}
	l.metrics.IncMutation(ledgerName, "cancel", "ok")
	l.logger.Info("registration cancelled", zap.String("event_id", eventID), zap.String("user_id", userID))
	return true, nil
}

func (l *Ledger) filter(ctx context.Context, keep func(models.Registration) bool) ([]models.Registration, error) {
	all, err := l.coll.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Registration, 0, len(all))
	for _, r := range all {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// indexOf returns the first registration of the pair, or the first live one when liveOnly.
func indexOf(all []models.Registration, eventID, userID string, liveOnly bool) int {
	for i, r := range all {
		if r.Matches(eventID, userID) && (!liveOnly || r.IsLive()) {
			return i
		}
	}
	return -1
}
