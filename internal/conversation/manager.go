package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"telegram-usersettings/internal/domain"
	"telegram-usersettings/internal/domain/ports/adapter"
	"telegram-usersettings/internal/domain/ports/repository"
	"telegram-usersettings/internal/infra/metrics"

	"github.com/rs/zerolog"
)

type Config struct {
	Timeout         time.Duration
	PollInterval    time.Duration
	RefreshInterval time.Duration
	EditTimeout     time.Duration
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 500 * time.Millisecond
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = 8 * time.Second
	}
	if c.EditTimeout <= 0 {
		c.EditTimeout = 5 * time.Second
	}
	return c
}

// Transport is the slice of the messenger the core needs.
type Transport interface {
	adapter.MessageStream
	FetchMessage(ctx context.Context, chatID int64, messageID int) (*adapter.Message, error)
	EditMessage(ctx context.Context, msg *adapter.Message, text string, markup *adapter.ReplyMarkup) (*adapter.Message, error)
}

type ArmRequest struct {
	UserID int64
	ChatID int64
	// PromptMessageID is the message whose last line shows the countdown; 0 disables it.
	PromptMessageID int
	Mode            Mode
	OnMatch         MatchFunc
	OnTimeout       TimeoutFunc
}

type Option func(*Manager)

func WithClock(c Clock) Option { return func(m *Manager) { m.clock = c } }

func WithMirror(mirror repository.SessionMirror) Option {
	return func(m *Manager) { m.mirror = mirror }
}

// Manager arms, tracks and cancels per-user sessions.
type Manager struct {
	registry *Registry
	stream   Transport
	clock    Clock
	mirror   repository.SessionMirror
	cfg      Config
	log      *zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	current map[int64]*Session
	closed  bool
}

func NewManager(registry *Registry, stream Transport, cfg Config, logger *zerolog.Logger, opts ...Option) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		registry: registry,
		stream:   stream,
		clock:    realClock{},
		cfg:      cfg.withDefaults(),
		log:      logger,
		ctx:      ctx,
		cancel:   cancel,
		current:  make(map[int64]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Registry() *Registry { return m.registry }

// ArmSession starts intercepting req.UserID's next matching message in
// req.ChatID. A session already armed for the user is superseded and will
// not fire its callbacks.
func (m *Manager) ArmSession(ctx context.Context, req ArmRequest) (*Session, error) {
	if req.OnMatch == nil || req.OnTimeout == nil {
		return nil, fmt.Errorf("arm session: callbacks are required: %w", domain.ErrInvalidArgument)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, domain.ErrSessionClosed
	}
	gen := m.registry.Arm(req.UserID)
	now := m.clock.Now()
	s := &Session{
		m:           m,
		user:        req.UserID,
		chat:        req.ChatID,
		promptID:    req.PromptMessageID,
		mode:        req.Mode,
		generation:  gen,
		start:       now,
		deadline:    now.Add(m.cfg.Timeout),
		lastRefresh: now,
		onMatch:     req.OnMatch,
		onTimeout:   req.OnTimeout,
		state:       StateArmed,
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
	prev := m.current[req.UserID]
	m.current[req.UserID] = s
	m.wg.Add(1)
	m.mu.Unlock()

	if prev != nil {
		prev.wakeUp()
	}

	base := Filter(req.UserID, req.ChatID, req.Mode)
	s.sub = m.stream.Subscribe(func(msg *adapter.Message) bool {
		return base(msg) && s.live()
	}, s.handle)

	metrics.ConversationArmed(req.Mode.String())
	m.mirrorArmed(ctx, s)
	m.log.Debug().Int64("tg_id", s.user).Int64("chat_id", s.chat).Str("mode", s.mode.String()).
		Uint64("generation", gen).Time("deadline", s.deadline).Msg("conversation armed")

	go s.run(m.ctx)
	return s, nil
}

func (m *Manager) IsSessionArmed(user int64) bool {
	return m.registry.IsArmed(user)
}

// ArmedGeneration returns the generation of the user's armed session.
func (m *Manager) ArmedGeneration(user int64) (uint64, bool) {
	return m.registry.Armed(user)
}

// CancelSession disarms the user's session; its loop exits without callbacks.
func (m *Manager) CancelSession(user int64) {
	m.registry.Disarm(user)
	m.mu.Lock()
	s := m.current[user]
	m.mu.Unlock()
	if s != nil {
		s.wakeUp()
	}
}

// Shutdown cancels every armed session and waits for their loops to exit.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.New("conversation shutdown: " + ctx.Err().Error())
	}
}

func (m *Manager) finish(s *Session) {
	s.release()

	m.mu.Lock()
	if m.current[s.user] == s {
		delete(m.current, s.user)
	}
	m.mu.Unlock()

	outcome := s.State()
	metrics.ConversationClosed(outcome.String(), s.mode.String(), m.clock.Now().Sub(s.start))
	m.mirrorCleared(s)
	m.log.Debug().Int64("tg_id", s.user).Uint64("generation", s.generation).Str("outcome", outcome.String()).Msg("conversation closed")

	close(s.done)
	m.wg.Done()
}

func (m *Manager) mirrorArmed(ctx context.Context, s *Session) {
	if m.mirror == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.EditTimeout)
	defer cancel()
	if err := m.mirror.MarkArmed(ctx, s.user, s.generation); err != nil {
		m.log.Warn().Err(err).Int64("tg_id", s.user).Msg("mirror armed session failed")
	}
}

func (m *Manager) mirrorCleared(s *Session) {
	if m.mirror == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.EditTimeout)
	defer cancel()
	if err := m.mirror.ClearArmed(ctx, s.user, s.generation); err != nil {
		m.log.Warn().Err(err).Int64("tg_id", s.user).Msg("mirror clear session failed")
	}
}
