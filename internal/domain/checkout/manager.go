// internal/domain/checkout/manager.go
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Store persists session state between requests and restarts
type Store interface {
	Load(ctx context.Context, id string) (*State, error)
	Save(ctx context.Context, id string, state State, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// DefaultFreshTTL is how long a session nobody has changed stays live
const DefaultFreshTTL = 10 * time.Minute

// Manager owns the live sessions of the process
type Manager struct {
	opts     Options
	deps     Dependencies
	store    Store
	ttl      time.Duration
	freshTTL time.Duration
	logger   *logrus.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(opts Options, deps Dependencies, store Store, ttl time.Duration) (*Manager, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	deps = deps.withDefaults()

	if opts.PaymentMethods.Card && deps.Card == nil {
		return nil, errors.New("card payments enabled without a card provider")
	}
	if opts.PaymentMethods.Pix && deps.PixProvider == nil {
		return nil, errors.New("PIX payments enabled without a PIX provider")
	}
	if deps.Notifier == nil {
		return nil, errors.New("notifier is required")
	}
	if store == nil {
		store = NewMemoryStore()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &Manager{
		opts:     opts,
		deps:     deps,
		store:    store,
		ttl:      ttl,
		freshTTL: DefaultFreshTTL,
		logger:   deps.Logger,
		sessions: make(map[string]*Session),
	}, nil
}

// SetFreshTTL sets the eviction cutoff for sessions that were created but
// never changed. It never exceeds the session TTL.
func (m *Manager) SetFreshTTL(d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	m.freshTTL = d
	m.mu.Unlock()
}

// Options returns the checkout variant in use
func (m *Manager) Options() Options {
	return m.opts
}

// Get returns the live session for id, restoring it from the store or
// creating a fresh one.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, errors.New("session id is required")
	}

	m.mu.Lock()
	if s, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		return s, nil
	}
	m.mu.Unlock()

	state, err := m.store.Load(ctx, id)
	if err != nil && !errors.Is(err, ErrStateNotFound) {
		return nil, fmt.Errorf("failed to load checkout state: %w", err)
	}

	var s *Session
	if state != nil {
		s = RestoreSession(id, m.opts, m.deps, *state)
	} else {
		s = NewSession(id, m.opts, m.deps)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.sessions[id]; ok {
		s.Close()
		return existing, nil
	}

	s.OnChange(func(st State) { m.persist(id, st) })
	m.sessions[id] = s

	return s, nil
}

// Save writes the session state to the store
func (m *Manager) Save(ctx context.Context, s *Session) error {
	if err := m.store.Save(ctx, s.ID(), s.State(), m.ttl); err != nil {
		return fmt.Errorf("failed to save checkout state: %w", err)
	}
	return nil
}

// End tears down the session and forgets its stored state, as when the
// shopper's tab is closed.
func (m *Manager) End(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		s.Close()
	}
	if err := m.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete checkout state: %w", err)
	}
	return nil
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// EvictIdle closes sessions unused for longer than the TTL, and sessions
// never changed since creation after the shorter fresh TTL. Stored state
// is kept.
func (m *Manager) EvictIdle(now time.Time) int {
	m.mu.Lock()
	cutoff := now.Add(-m.ttl)
	freshCutoff := now.Add(-min(m.freshTTL, m.ttl))

	var evicted []*Session
	for id, s := range m.sessions {
		if s.idle(cutoff, freshCutoff) {
			evicted = append(evicted, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range evicted {
		s.Close()
	}
	if len(evicted) > 0 {
		m.logger.WithField("count", len(evicted)).Info("Evicted idle checkout sessions")
	}
	return len(evicted)
}

// Run evicts idle sessions periodically until ctx is done
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.EvictIdle(m.deps.Now())
		}
	}
}

// Shutdown closes every live session
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

func (m *Manager) persist(id string, state State) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := m.store.Save(ctx, id, state, m.ttl); err != nil {
		m.logger.WithError(err).WithField("session_id", id).Warn("Failed to persist checkout state")
	}
}
