package notifysync

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/text/language"

	"github.com/dmitrymomot/notifysync/pkg/broadcast"
	"github.com/dmitrymomot/notifysync/pkg/connection"
	"github.com/dmitrymomot/notifysync/pkg/logger"
	"github.com/dmitrymomot/notifysync/pkg/notifications"
	"github.com/dmitrymomot/notifysync/pkg/session"
	"github.com/dmitrymomot/notifysync/pkg/transport"
)

const feedBufferSize = 64

// Client is the entry point for applications. It exposes the connection
// status, the notification list and unread count of the signed-in user,
// and the local mutations. Nothing it does returns a connectivity error:
// with no session, reads return zero values and mutations do nothing.
type Client struct {
	binder      *session.Binder
	logger      *slog.Logger
	languages   notifications.Languages
	sendTimeout time.Duration
	closers     []io.Closer

	statuses *broadcast.MemoryBroadcaster[connection.Status]
	changes  *broadcast.MemoryBroadcaster[notifications.Change]

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	closed  bool
	pending sync.WaitGroup
}

// New creates a client that connects through dialer once a user is bound.
func New(dialer transport.Dialer, endpoint transport.Endpoint, opts ...Option) *Client {
	o := newOptions(opts)
	ctx, cancel := context.WithCancel(context.Background())

	c := &Client{
		logger:      o.logger,
		languages:   o.languages,
		sendTimeout: o.sendTimeout,
		statuses:    broadcast.NewMemoryBroadcaster[connection.Status](feedBufferSize),
		changes:     broadcast.NewMemoryBroadcaster[notifications.Change](feedBufferSize),
		ctx:         ctx,
		cancel:      cancel,
	}

	binderOpts := []session.Option{
		session.WithLogger(o.logger),
		session.WithStoreOptions(o.storeOpts...),
		session.WithManagerOptions(connection.WithStatusObserver(c.publishStatus)),
		session.WithOnBind(c.onBind),
	}
	if o.policy != nil {
		binderOpts = append(binderOpts, session.WithPolicy(*o.policy))
	}
	c.binder = session.NewBinder(dialer, endpoint, binderOpts...)
	return c
}

// Run follows provider until ctx ends, binding whichever user is signed in.
func (c *Client) Run(ctx context.Context, provider session.AuthProvider) error {
	return c.binder.Run(ctx, provider)
}

// Bind applies a single authentication state.
func (c *Client) Bind(state session.AuthState) {
	c.binder.Bind(state)
}

// Status returns the connection status; disconnected when nobody is signed in.
func (c *Client) Status() connection.Status {
	if b := c.binder.Current(); b != nil {
		return b.Conn.Status()
	}
	return connection.StatusDisconnected
}

// UserID returns the bound user, or "".
func (c *Client) UserID() string {
	if b := c.binder.Current(); b != nil {
		return b.UserID
	}
	return ""
}

// Notifications returns a snapshot of the notifications, newest first.
func (c *Client) Notifications() []notifications.Record {
	if b := c.binder.Current(); b != nil {
		return b.Store.List()
	}
	return nil
}

// UnreadCount returns the unread counter.
func (c *Client) UnreadCount() int {
	if b := c.binder.Current(); b != nil {
		return b.Store.UnreadCount()
	}
	return 0
}

// Text returns the variant of t that best matches the preferred languages.
func (c *Client) Text(t notifications.LocalizedText, preferred ...language.Tag) string {
	return c.languages.Pick(t, preferred...)
}

// InsertLocal adds a notification created by the application. It returns
// the stored record and whether it was inserted.
func (c *Client) InsertLocal(rec notifications.Record) (notifications.Record, bool) {
	b := c.binder.Current()
	if b == nil {
		return notifications.Record{}, false
	}
	stored, inserted, err := b.Store.InsertLocal(rec)
	if err != nil {
		c.logger.Warn("local notification rejected", logger.UserID(b.UserID), logger.Error(err))
		return notifications.Record{}, false
	}
	return stored, inserted
}

// MarkOneRead marks one notification read and tells the server when connected.
func (c *Client) MarkOneRead(id string) {
	b := c.binder.Current()
	if b == nil {
		return
	}
	b.Store.MarkOneRead(id)
	c.notifyServer(b, transport.EventMarkRead, id)
}

// MarkAllRead marks every notification read and tells the server when connected.
func (c *Client) MarkAllRead() {
	b := c.binder.Current()
	if b == nil {
		return
	}
	b.Store.MarkAllRead()
	c.notifyServer(b, transport.EventMarkAllRead, nil)
}

// ClearAll empties the local list. The server is not told.
func (c *Client) ClearAll() {
	if b := c.binder.Current(); b != nil {
		b.Store.ClearAll()
	}
}

// Reconnect restarts connecting for the bound user, typically after the
// status settled in error.
func (c *Client) Reconnect() {
	if b := c.binder.Current(); b != nil {
		b.Conn.Start(b.UserID)
	}
}

// SubscribeStatus returns a feed of status transitions across sessions. A
// subscriber that falls behind misses transitions but stays subscribed.
func (c *Client) SubscribeStatus(ctx context.Context) broadcast.Subscriber[connection.Status] {
	return c.statuses.Subscribe(ctx)
}

// SubscribeChanges returns a feed of store changes of the bound user. A
// ChangeSession entry marks a change of user. A subscriber that falls
// behind misses changes but stays subscribed; the store stays the source
// of truth.
func (c *Client) SubscribeChanges(ctx context.Context) broadcast.Subscriber[notifications.Change] {
	return c.changes.Subscribe(ctx)
}

// Close unbinds the session, waits for in-flight sends and ends every feed.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	_ = c.binder.Close()
	c.pending.Wait()
	c.cancel()

	_ = c.statuses.Close()
	_ = c.changes.Close()
	for _, cl := range c.closers {
		_ = cl.Close()
	}
	return nil
}

// notifyServer sends an event in the background when b is connected.
func (c *Client) notifyServer(b *session.Binding, event string, payload any) {
	if b.Conn.Status() != connection.StatusConnected {
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.pending.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.pending.Done()
		ctx, cancel := context.WithTimeout(logger.ContextWithUserID(c.ctx, b.UserID), c.sendTimeout)
		defer cancel()
		if !b.Conn.Send(ctx, event, payload) {
			c.logger.DebugContext(ctx, "server not notified", logger.Event(event))
		}
	}()
}

func (c *Client) publishStatus(_, to connection.Status) {
	_ = c.statuses.Broadcast(context.Background(), broadcast.Message[connection.Status]{Data: to})
}

func (c *Client) onBind(b *session.Binding) {
	if b != nil {
		sub := b.Store.Subscribe(c.ctx)
		go c.forwardChanges(b, sub)
	}
	_ = c.changes.Broadcast(context.Background(), broadcast.Message[notifications.Change]{
		Data: notifications.Change{Kind: notifications.ChangeSession},
	})
}

// forwardChanges relays the store feed of b while b is the bound session.
func (c *Client) forwardChanges(b *session.Binding, sub broadcast.Subscriber[notifications.Change]) {
	defer sub.Close()
	for msg := range sub.Receive(c.ctx) {
		if c.binder.Current() != b {
			continue
		}
		_ = c.changes.Broadcast(context.Background(), msg)
	}
}
