// Package session keeps the identity of the interactive user and their preferences.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventease/backend/internal/models"
	"github.com/eventease/backend/internal/notify"
	"github.com/eventease/backend/pkg/kvstore"
)

var (
	ErrNameRequired  = errors.New("name is required")
	ErrEmailRequired = errors.New("email is required")
)

// Keys are the storage keys of the session and preferences blobs.
type Keys struct {
	Session     string
	Preferences string
}

// DefaultKeys returns the keys shared with the browser client.
func DefaultKeys() Keys {
	return Keys{Session: "eventease_user_session", Preferences: "eventease_user_preferences"}
}

// Provider is the session scope of one interactive user. It caches the session after
// the first load; Clear drops the cache and Logout removes the stored blob.
type Provider struct {
	store  kvstore.Store
	keys   Keys
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	loaded  bool
	current *models.Session
	prefs   *models.Preferences

	sessionChanged *notify.Observers[*models.Session]
	prefsChanged   *notify.Observers[models.Preferences]
}

// NewProvider creates a session provider over store.
func NewProvider(store kvstore.Store, keys Keys, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if keys.Session == "" || keys.Preferences == "" {
		def := DefaultKeys()
		if keys.Session == "" {
			keys.Session = def.Session
		}
		if keys.Preferences == "" {
			keys.Preferences = def.Preferences
		}
	}
	return &Provider{
		store:          store,
		keys:           keys,
		logger:         logger,
		now:            time.Now,
		sessionChanged: notify.NewObservers[*models.Session]("session_changed", logger),
		prefsChanged:   notify.NewObservers[models.Preferences]("preferences_changed", logger),
	}
}

// SetClock replaces time.Now. Used by tests.
func (p *Provider) SetClock(now func() time.Time) { p.now = now }

// OnSessionChanged subscribes to login, logout and session updates. fn receives nil on logout.
func (p *Provider) OnSessionChanged(fn func(*models.Session)) (unsubscribe func()) {
	return p.sessionChanged.Subscribe(fn)
}

// OnPreferencesChanged subscribes to preference saves.
func (p *Provider) OnPreferencesChanged(fn func(models.Preferences)) (unsubscribe func()) {
	return p.prefsChanged.Subscribe(fn)
}

// Load reads the session from storage, replacing the cache, and bumps its last activity.
// A malformed blob is treated as no session.
func (p *Provider) Load(ctx context.Context) (*models.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.loadLocked(ctx); err != nil {
		return nil, err
	}
	return clone(p.current), nil
}

// Clear forgets the cached session and preferences without touching storage.
func (p *Provider) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loaded = false
	p.current = nil
	p.prefs = nil
}

// Current returns a copy of the current session, loading it on first use. nil means no session.
func (p *Provider) Current(ctx context.Context) (*models.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	return clone(p.current), nil
}

// CurrentUserID returns the id of the current user; ok is false without a session.
func (p *Provider) CurrentUserID(ctx context.Context) (string, bool, error) {
	s, err := p.Current(ctx)
	if err != nil {
		return "", false, err
	}
	if s == nil || s.UserID == "" {
		return "", false, nil
	}
	return s.UserID, true, nil
}

// IsLoggedIn reports whether a logged-in session exists.
func (p *Provider) IsLoggedIn(ctx context.Context) (bool, error) {
	s, err := p.Current(ctx)
	if err != nil {
		return false, err
	}
	return s != nil && s.IsLoggedIn, nil
}

// Login starts a new session with a fresh user id and persists it.
func (p *Provider) Login(ctx context.Context, name, email, phone string) (*models.Session, error) {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if name == "" {
		return nil, ErrNameRequired
	}
	if email == "" {
		return nil, ErrEmailRequired
	}
	now := p.now()
	s := &models.Session{
		UserID:           uuid.NewString(),
		Name:             name,
		Email:            email,
		PhoneNumber:      strings.TrimSpace(phone),
		SessionStart:     now,
		LastActivity:     now,
		IsLoggedIn:       true,
		RegisteredEvents: []string{},
	}

	p.mu.Lock()
	if err := p.saveLocked(ctx, s); err != nil {
		p.mu.Unlock()
		return nil, err
	}
	p.current = s
	p.loaded = true
	out := clone(s)
	p.mu.Unlock()

	p.logger.Info("user logged in", zap.String("user_id", s.UserID))
	p.sessionChanged.Notify(clone(s))
	return out, nil
}

// Logout removes the stored session.
func (p *Provider) Logout(ctx context.Context) error {
	p.mu.Lock()
	if err := p.store.Remove(ctx, p.keys.Session); err != nil {
		p.mu.Unlock()
		return fmt.Errorf("remove session: %w", err)
	}
	p.current = nil
	p.loaded = true
	p.mu.Unlock()

	p.logger.Info("user logged out")
	p.sessionChanged.Notify(nil)
	return nil
}

// Update stores s as the current session, bumping its last activity.
func (p *Provider) Update(ctx context.Context, s *models.Session) error {
	if s == nil {
		return errors.New("session is nil")
	}
	s = clone(s)
	s.LastActivity = p.now()

	p.mu.Lock()
	if err := p.saveLocked(ctx, s); err != nil {
		p.mu.Unlock()
		return err
	}
	p.current = s
	p.loaded = true
	p.mu.Unlock()

	p.sessionChanged.Notify(clone(s))
	return nil
}

// MarkEventRegistered records eventID in the session's registered events. No-op without a session.
func (p *Provider) MarkEventRegistered(ctx context.Context, eventID string) error {
	p.mu.Lock()
	s, err := p.markEventRegisteredLocked(ctx, eventID)
	p.mu.Unlock()
	if err != nil || s == nil {
		return err
	}
	p.sessionChanged.Notify(s)
	return nil
}

// markEventRegisteredLocked returns a copy of the saved session, or nil when nothing changed.
func (p *Provider) markEventRegisteredLocked(ctx context.Context, eventID string) (*models.Session, error) {
	if err := p.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	if p.current == nil || slices.Contains(p.current.RegisteredEvents, eventID) {
		return nil, nil
	}
	s := clone(p.current)
	s.RegisteredEvents = append(s.RegisteredEvents, eventID)
	s.LastActivity = p.now()
	if err := p.saveLocked(ctx, s); err != nil {
		return nil, err
	}
	p.current = s
	return clone(s), nil
}

// RegisteredEvents returns the event ids recorded in the session.
func (p *Provider) RegisteredEvents(ctx context.Context) ([]string, error) {
	s, err := p.Current(ctx)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return []string{}, nil
	}
	return s.RegisteredEvents, nil
}

// IsRegisteredForEvent reports whether eventID is in the session's registered events.
func (p *Provider) IsRegisteredForEvent(ctx context.Context, eventID string) (bool, error) {
	events, err := p.RegisteredEvents(ctx)
	if err != nil {
		return false, err
	}
	return slices.Contains(events, eventID), nil
}

// Preferences returns stored preferences, or defaults.
func (p *Provider) Preferences(ctx context.Context) (models.Preferences, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.prefs != nil {
		return *p.prefs, nil
	}
	prefs := models.DefaultPreferences()
	raw, found, err := p.store.Get(ctx, p.keys.Preferences)
	if err != nil {
		return prefs, fmt.Errorf("load preferences: %w", err)
	}
	if found && len(raw) > 0 {
		var stored models.Preferences
		if err := json.Unmarshal(raw, &stored); err != nil {
			p.logger.Warn("stored preferences are malformed, using defaults", zap.Error(err))
		} else {
			prefs = stored
		}
	}
	p.prefs = &prefs
	return prefs, nil
}

// SavePreferences persists prefs.
func (p *Provider) SavePreferences(ctx context.Context, prefs models.Preferences) error {
	raw, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}
	p.mu.Lock()
	if err := p.store.Set(ctx, p.keys.Preferences, raw); err != nil {
		p.mu.Unlock()
		return fmt.Errorf("save preferences: %w", err)
	}
	p.prefs = &prefs
	p.mu.Unlock()

	p.prefsChanged.Notify(prefs)
	return nil
}

func (p *Provider) ensureLoaded(ctx context.Context) error {
	if p.loaded {
		return nil
	}
	return p.loadLocked(ctx)
}

func (p *Provider) loadLocked(ctx context.Context) error {
	raw, found, err := p.store.Get(ctx, p.keys.Session)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	p.loaded = true
	p.current = nil
	if !found || len(raw) == 0 {
		return nil
	}
	var s models.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		p.logger.Warn("stored session is malformed, ignoring", zap.Error(err))
		return nil
	}
	if s.RegisteredEvents == nil {
		s.RegisteredEvents = []string{}
	}
	s.LastActivity = p.now()
	if err := p.saveLocked(ctx, &s); err != nil {
		return err
	}
	p.current = &s
	return nil
}

func (p *Provider) saveLocked(ctx context.Context, s *models.Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := p.store.Set(ctx, p.keys.Session, raw); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func clone(s *models.Session) *models.Session {
	if s == nil {
		return nil
	}
	out := *s
	out.RegisteredEvents = slices.Clone(s.RegisteredEvents)
	if out.RegisteredEvents == nil {
		out.RegisteredEvents = []string{}
	}
	return &out
}
