package connection

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/dmitrymomot/notifysync/pkg/broadcast"
	"github.com/dmitrymomot/notifysync/pkg/logger"
	"github.com/dmitrymomot/notifysync/pkg/transport"
)

const (
	defaultSendTimeout  = 5 * time.Second
	statusBufferSize    = 16
	componentConnection = "connection"
)

// Option configures a Manager.
type Option func(*Manager)

// WithPolicy sets the reconnect policy.
func WithPolicy(p Policy) Option {
	return func(m *Manager) { m.policy = p }
}

// WithLogger sets the manager logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithDialTimeout bounds every open attempt. Zero leaves it to the dialer.
func WithDialTimeout(d time.Duration) Option {
	return func(m *Manager) { m.dialTimeout = d }
}

// WithSendTimeout bounds the user:join send after each open.
func WithSendTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.sendTimeout = d
		}
	}
}

// WithStatusObserver registers fn for every status transition. It runs
// synchronously while the manager holds its lock and must not call back
// into the Manager.
func WithStatusObserver(fn func(from, to Status)) Option {
	return func(m *Manager) {
		if fn != nil {
			m.observers = append(m.observers, fn)
		}
	}
}

// Manager owns at most one connection for one user and keeps it open
// according to its Policy. It is the only writer of the connection status.
type Manager struct {
	dialer      transport.Dialer
	endpoint    transport.Endpoint
	router      *transport.Router
	policy      Policy
	logger      *slog.Logger
	dialTimeout time.Duration
	sendTimeout time.Duration
	observers   []func(from, to Status)

	mu         sync.Mutex
	fsm        *statusMachine
	gen        uint64
	userID     string
	conn       transport.Conn
	failures   int
	backoff    *backoff.ExponentialBackOff
	timer      *time.Timer
	cancelDial context.CancelFunc
	closed     bool

	statuses *broadcast.MemoryBroadcaster[Status]
}

// New creates a manager in the disconnected state. Inbound events of every
// connection it opens are dispatched through router.
func New(dialer transport.Dialer, endpoint transport.Endpoint, router *transport.Router, opts ...Option) *Manager {
	fsm, err := newStatusMachine()
	if err != nil {
		panic(err)
	}
	if router == nil {
		router = transport.NewRouter()
	}

	m := &Manager{
		dialer:      dialer,
		endpoint:    endpoint,
		router:      router,
		policy:      DefaultPolicy(),
		logger:      slog.Default(),
		sendTimeout: defaultSendTimeout,
		fsm:         fsm,
		statuses:    broadcast.NewMemoryBroadcaster[Status](statusBufferSize),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(logger.Component(componentConnection))
	m.backoff = m.policy.newBackOff()

	fsm.OnTransition(func(from, to Status, t trigger) {
		m.logger.Debug("status changed",
			slog.String("from", from.String()),
			logger.Status(to.String()),
			slog.String("trigger", string(t)),
		)
		for _, fn := range m.observers {
			fn(from, to)
		}
		_ = m.statuses.Broadcast(context.Background(), broadcast.Message[Status]{Data: to})
	})
	return m
}

// Status returns the current status.
func (m *Manager) Status() Status {
	return m.fsm.Current()
}

// UserID returns the user the manager connects for, or "" when stopped.
func (m *Manager) UserID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userID
}

// Subscribe returns a feed of status transitions that lives until ctx ends
// or the manager is closed.
func (m *Manager) Subscribe(ctx context.Context) broadcast.Subscriber[Status] {
	return m.statuses.Subscribe(ctx)
}

// Start begins connecting for userID and returns immediately. A connection
// held for another user is closed first. Starting the same user while
// connecting or connected is a no-op; from error or disconnected it starts
// over with a fresh retry budget.
func (m *Manager) Start(userID string) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	status := m.fsm.Current()
	if m.userID == userID && (status == StatusConnecting || status == StatusConnected) {
		m.mu.Unlock()
		return
	}

	stale := m.teardownLocked()
	if status == StatusConnecting || status == StatusConnected {
		m.fire(triggerStop)
	}
	m.userID = userID
	m.failures = 0
	m.backoff.Reset()
	m.fire(triggerConnect)
	m.dialLocked()
	m.mu.Unlock()

	closeConn(stale)
}

// Stop cancels any pending retry, closes the connection and moves to
// disconnected. Idempotent.
func (m *Manager) Stop() {
	m.mu.Lock()
	conn := m.teardownLocked()
	m.userID = ""
	m.fire(triggerStop)
	m.mu.Unlock()

	closeConn(conn)
}

// Close stops the manager for good and ends every status subscription.
func (m *Manager) Close() error {
	m.Stop()

	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return m.statuses.Close()
}

// Send transmits an event over the live connection. It reports false when
// no connection is live or the send failed; failures are logged, never returned.
func (m *Manager) Send(ctx context.Context, event string, payload any) bool {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return false
	}
	if err := conn.Send(ctx, event, payload); err != nil {
		m.logger.DebugContext(ctx, "send failed", logger.Event(event), logger.Error(err))
		return false
	}
	return true
}

func (m *Manager) fire(t trigger) {
	if _, err := m.fsm.Fire(t); err != nil {
		m.logger.Error("invalid status transition", logger.Error(err))
	}
}

// teardownLocked invalidates in-flight work and returns the connection the
// caller must close after releasing the lock.
func (m *Manager) teardownLocked() transport.Conn {
	m.gen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if m.cancelDial != nil {
		m.cancelDial()
		m.cancelDial = nil
	}
	conn := m.conn
	m.conn = nil
	return conn
}

func (m *Manager) dialLocked() {
	m.gen++
	gen := m.gen
	logCtx := logger.ContextWithUserID(context.Background(), m.userID)
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if m.dialTimeout > 0 {
		ctx, cancel = context.WithTimeout(logCtx, m.dialTimeout)
	} else {
		ctx, cancel = context.WithCancel(logCtx)
	}
	m.cancelDial = cancel
	attempt := m.failures + 1
	userID := m.userID

	go m.dial(ctx, logCtx, cancel, gen, userID, attempt)
}

func (m *Manager) dial(ctx, logCtx context.Context, cancel context.CancelFunc, gen uint64, userID string, attempt int) {
	log := m.logger.With(logger.Attempt(attempt))
	log.DebugContext(logCtx, "opening connection")

	conn, err := m.dialer.Dial(ctx, m.endpoint, m.router)
	cancel()

	if err == nil && m.current(gen) {
		// The join precedes the connected status. A failed join is a failed open.
		if err = m.join(conn, userID); err != nil {
			closeConn(conn)
			conn = nil
		}
	}

	m.mu.Lock()
	if gen != m.gen || m.closed {
		m.mu.Unlock()
		// Superseded by Stop or a newer Start.
		closeConn(conn)
		return
	}
	m.cancelDial = nil

	if err != nil {
		m.failures++
		m.fire(triggerFailed)
		if m.policy.Exhausted(m.failures) {
			log.WarnContext(logCtx, "giving up on connection", logger.Error(err))
			m.mu.Unlock()
			return
		}
		delay := m.backoff.NextBackOff()
		log.InfoContext(logCtx, "connection failed, retrying", logger.Error(err), logger.Delay(delay))
		m.scheduleLocked(delay)
		m.mu.Unlock()
		return
	}

	m.conn = conn
	m.failures = 0
	m.backoff.Reset()
	m.fire(triggerOpened)
	m.mu.Unlock()

	log.InfoContext(logCtx, "connected", logger.Transport(conn.Transport()))
	go m.watch(logCtx, gen, conn)
}

func (m *Manager) join(conn transport.Conn, userID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), m.sendTimeout)
	defer cancel()
	if err := conn.Send(ctx, transport.EventUserJoin, userID); err != nil {
		return errors.Join(ErrJoinFailed, err)
	}
	return nil
}

func (m *Manager) current(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return gen == m.gen && !m.closed
}

func (m *Manager) scheduleLocked(delay time.Duration) {
	gen := m.gen
	m.timer = time.AfterFunc(delay, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if gen != m.gen || m.closed {
			return
		}
		m.timer = nil
		m.fire(triggerRetry)
		m.dialLocked()
	})
}

func (m *Manager) watch(logCtx context.Context, gen uint64, conn transport.Conn) {
	<-conn.Done()
	err := conn.Err()

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen || m.conn != conn {
		return
	}
	m.conn = nil

	if !m.policy.AutoReconnect {
		m.logger.InfoContext(logCtx, "connection closed", logger.Error(err))
		m.fire(triggerDropped)
		return
	}
	m.backoff.Reset()
	delay := m.backoff.NextBackOff()
	m.logger.InfoContext(logCtx, "connection lost, reconnecting", logger.Error(err), logger.Delay(delay))
	m.fire(triggerLost)
	m.scheduleLocked(delay)
}

func closeConn(c transport.Conn) {
	if c != nil {
		_ = c.Close()
	}
}
