package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/dmitrymomot/notifysync/pkg/connection"
	"github.com/dmitrymomot/notifysync/pkg/logger"
	"github.com/dmitrymomot/notifysync/pkg/notifications"
	"github.com/dmitrymomot/notifysync/pkg/transport"
)

// Binding ties one signed-in user to its store and connection.
type Binding struct {
	UserID string
	Store  *notifications.Store
	Conn   *connection.Manager
}

// Option configures a Binder.
type Option func(*Binder)

// WithLogger sets the binder logger. Bindings inherit it.
func WithLogger(l *slog.Logger) Option {
	return func(b *Binder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithPolicy sets the reconnect policy of every binding.
func WithPolicy(p connection.Policy) Option {
	return func(b *Binder) { b.policy = p }
}

// WithStoreOptions passes options to every new store.
func WithStoreOptions(opts ...notifications.StoreOption) Option {
	return func(b *Binder) { b.storeOpts = append(b.storeOpts, opts...) }
}

// WithManagerOptions passes options to every new connection manager.
func WithManagerOptions(opts ...connection.Option) Option {
	return func(b *Binder) { b.managerOpts = append(b.managerOpts, opts...) }
}

// WithOnBind registers fn, called after every swap with the new binding
// (nil when signed out) and before its connection starts.
func WithOnBind(fn func(*Binding)) Option {
	return func(b *Binder) {
		if fn != nil {
			b.onBind = append(b.onBind, fn)
		}
	}
}

// Binder keeps exactly one Binding for the signed-in user and replaces it
// whenever the authentication state changes.
type Binder struct {
	dialer      transport.Dialer
	endpoint    transport.Endpoint
	policy      connection.Policy
	logger      *slog.Logger
	storeOpts   []notifications.StoreOption
	managerOpts []connection.Option
	onBind      []func(*Binding)

	bindMu  sync.Mutex
	mu      sync.RWMutex
	current *Binding
	closed  bool
}

// NewBinder creates a binder with nothing bound.
func NewBinder(dialer transport.Dialer, endpoint transport.Endpoint, opts ...Option) *Binder {
	b := &Binder{
		dialer:   dialer,
		endpoint: endpoint,
		policy:   connection.DefaultPolicy(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With(logger.Component("session"))
	return b
}

// Current returns the active binding or nil.
func (b *Binder) Current() *Binding {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current
}

// Bind applies an authentication state. Signing in creates a fresh store
// and connection; signing out or switching users tears the old binding
// down. Current never returns the old binding once its teardown has begun.
// Re-applying the bound user is a no-op.
func (b *Binder) Bind(state AuthState) {
	b.bindMu.Lock()
	defer b.bindMu.Unlock()

	b.mu.RLock()
	cur, closed := b.current, b.closed
	b.mu.RUnlock()
	if closed {
		return
	}
	if state.Active() && cur != nil && cur.UserID == state.UserID {
		return
	}
	if !state.Active() && cur == nil {
		return
	}

	var next *Binding
	if state.Active() {
		next = b.newBinding(state.UserID)
	}

	// Readers see next before the old connection starts closing.
	b.mu.Lock()
	b.current = next
	b.mu.Unlock()

	if cur != nil {
		b.logger.InfoContext(logger.ContextWithUserID(context.Background(), cur.UserID), "unbinding session")
		teardown(cur)
	}
	if next != nil {
		b.logger.InfoContext(logger.ContextWithUserID(context.Background(), next.UserID), "binding session")
	}

	for _, fn := range b.onBind {
		fn(next)
	}
	if next != nil {
		next.Conn.Start(next.UserID)
	}
}

// Run applies the provider's current state and every later change until
// ctx ends or the provider stops delivering. The active binding is torn
// down on return.
func (b *Binder) Run(ctx context.Context, provider AuthProvider) error {
	updates := provider.Subscribe(ctx)
	b.Bind(provider.Current())
	defer b.Bind(AuthState{})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case state, ok := <-updates:
			if !ok {
				return nil
			}
			b.Bind(state)
		}
	}
}

// Close tears down the active binding. Later Bind calls are ignored.
func (b *Binder) Close() error {
	b.bindMu.Lock()
	defer b.bindMu.Unlock()

	b.mu.Lock()
	cur := b.current
	b.current = nil
	b.closed = true
	b.mu.Unlock()

	if cur != nil {
		teardown(cur)
		for _, fn := range b.onBind {
			fn(nil)
		}
	}
	return nil
}

func (b *Binder) newBinding(userID string) *Binding {
	ctx := logger.ContextWithUserID(context.Background(), userID)
	store := notifications.NewStore(b.storeOpts...)

	router := transport.NewRouter()
	router.On(transport.EventNotification, func(raw json.RawMessage) {
		rec, err := notifications.Decode(raw)
		if err != nil {
			b.logger.WarnContext(ctx, "dropping malformed notification", logger.Error(err))
			return
		}
		if _, err := store.ApplyServerPush(rec); err != nil {
			b.logger.WarnContext(ctx, "rejected notification", logger.NotificationID(rec.ID), logger.Error(err))
		}
	})
	router.On(transport.EventNotificationCount, func(raw json.RawMessage) {
		n, err := notifications.DecodeCount(raw)
		if err == nil {
			err = store.ApplyServerCount(n)
		}
		if err != nil {
			b.logger.WarnContext(ctx, "dropping unread count", logger.Error(err))
		}
	})
	router.On(transport.EventNotificationsRead, func(json.RawMessage) {
		store.ApplyServerMarkAllRead()
	})

	opts := make([]connection.Option, 0, len(b.managerOpts)+2)
	opts = append(opts, connection.WithLogger(b.logger), connection.WithPolicy(b.policy))
	opts = append(opts, b.managerOpts...)
	return &Binding{
		UserID: userID,
		Store:  store,
		Conn:   connection.New(b.dialer, b.endpoint, router, opts...),
	}
}

func teardown(b *Binding) {
	_ = b.Conn.Close()
	_ = b.Store.Close()
}
