package session

import (
	"context"
	"sync"
	"time"

	"github.com/fekuna/artista-service/internal/assist"
	"github.com/fekuna/artista-service/internal/catalog"
	"github.com/fekuna/artista-service/internal/identity"
	"github.com/fekuna/artista-service/internal/model"
	"github.com/fekuna/artista-service/internal/notify"
	"github.com/fekuna/artista-service/internal/scratch"
	"github.com/fekuna/artista-service/pkg/logger"
	"go.uber.org/zap"
)

type Config struct {
	WindowSize      int
	SuggestDebounce time.Duration
	NotifyCapacity  int
	DefaultLanguage string
}

// Manager owns the sessions of this instance, keyed by user id.
type Manager struct {
	gw     catalog.Gateway
	store  *scratch.Store
	assist assist.Gateway
	cfg    Config
	logger logger.ZapLogger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(gw catalog.Gateway, store *scratch.Store, ag assist.Gateway, cfg Config, log logger.ZapLogger) *Manager {
	return &Manager{
		gw:       gw,
		store:    store,
		assist:   ag,
		cfg:      cfg,
		logger:   log,
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) newSession(p model.Principal) *Session {
	return &Session{
		principal:   p,
		vm:          catalog.NewViewModel(m.gw, m.store, m.logger, catalog.WithWindowSize(m.cfg.WindowSize)),
		notes:       notify.NewQueue(m.cfg.NotifyCapacity),
		suggester:   assist.NewSuggester(m.assist, m.cfg.SuggestDebounce),
		store:       m.store,
		defaultLang: m.cfg.DefaultLanguage,
		logger:      m.logger,
	}
}

// lookup returns the principal's session, creating it when absent.
func (m *Manager) lookup(p model.Principal) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[p.UserID]; ok {
		return s, false
	}
	s := m.newSession(p)
	m.sessions[p.UserID] = s
	return s, true
}

// Get returns the principal's session. A session created here, for example after a
// restart while the caller's token is still valid, is loaded before it is returned.
func (m *Manager) Get(ctx context.Context, p model.Principal) *Session {
	s, created := m.lookup(p)
	if created {
		m.logger.Info("Session created", zap.String("user_id", p.UserID))
		_, _ = s.Reload(context.WithoutCancel(ctx))
	}
	return s
}

// OnIdentityChange loads the catalog for a principal that signed in and drops the
// session of one that signed out. Subscribe it to the identity hub.
func (m *Manager) OnIdentityChange(ctx context.Context, c identity.Change) {
	ctx = context.WithoutCancel(ctx)
	if c.Present {
		s, _ := m.lookup(c.Principal)
		_, _ = s.Reload(ctx)
		return
	}

	m.mu.Lock()
	s, ok := m.sessions[c.Principal.UserID]
	delete(m.sessions, c.Principal.UserID)
	m.mu.Unlock()
	if ok {
		s.close(ctx)
		m.logger.Info("Session dropped", zap.String("user_id", c.Principal.UserID))
	}
}

func (m *Manager) each(fn func(*Session)) {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		fn(s)
	}
}

// ProductCreated, ProductUpdated and ProductDeleted apply product writes from the
// catalog topic to every live session. Each is idempotent per product id.
func (m *Manager) ProductCreated(p model.Product) {
	m.each(func(s *Session) { s.vm.AddProduct(p) })
}

func (m *Manager) ProductUpdated(p model.Product) {
	m.each(func(s *Session) { s.vm.ReplaceProduct(p) })
}

func (m *Manager) ProductDeleted(id string) {
	m.each(func(s *Session) { s.vm.RemoveProduct(id) })
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close releases every session.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.suggester.Close()
	}
}
