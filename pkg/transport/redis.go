package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/notifysync/pkg/logger"
	"github.com/dmitrymomot/notifysync/pkg/redis"
)

const (
	transportRedis        = "redis"
	defaultHealthInterval = 15 * time.Second
	outboundChannel       = "outbound"
)

// RedisOption configures a RedisDialer.
type RedisOption func(*RedisDialer)

// WithHealthInterval sets how often an open connection pings the server.
// Zero or negative disables the health check.
func WithHealthInterval(d time.Duration) RedisOption {
	return func(r *RedisDialer) { r.healthInterval = d }
}

// WithRedisLogger sets the dialer logger.
func WithRedisLogger(l *slog.Logger) RedisOption {
	return func(r *RedisDialer) {
		if l != nil {
			r.logger = l
		}
	}
}

// RedisDialer delivers events over Redis pub/sub. Inbound events arrive on
// <prefix>:<user>, subscribed when user:join is sent. Outbound events are
// published to <prefix>:outbound with the user id attached.
type RedisDialer struct {
	client         goredis.UniversalClient
	prefix         string
	healthInterval time.Duration
	logger         *slog.Logger
}

// NewRedisDialer creates a pub/sub dialer on an existing client.
func NewRedisDialer(client goredis.UniversalClient, prefix string, opts ...RedisOption) *RedisDialer {
	d := &RedisDialer{
		client:         client,
		prefix:         prefix,
		healthInterval: defaultHealthInterval,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dial implements Dialer. The endpoint is not used; the client already
// knows the server.
func (d *RedisDialer) Dial(ctx context.Context, _ Endpoint, r *Router) (Conn, error) {
	check := redis.Healthcheck(d.client)
	if err := check(ctx); err != nil {
		return nil, errors.Join(ErrConnect, err)
	}

	c := &redisConn{
		connState: newConnState(),
		client:    d.client,
		prefix:    d.prefix,
		router:    r,
		logger:    d.logger.With(logger.Transport(transportRedis)),
	}
	r.notify(LifecycleOpened, transportRedis, nil)
	if d.healthInterval > 0 {
		go c.healthLoop(check, d.healthInterval)
	}
	return c, nil
}

type redisConn struct {
	*connState
	client goredis.UniversalClient
	prefix string
	router *Router
	logger *slog.Logger

	mu     sync.Mutex
	userID string
	pubsub *goredis.PubSub
}

type redisEnvelope struct {
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data,omitempty"`
	UserID string          `json:"user_id,omitempty"`
}

func (c *redisConn) Transport() string { return transportRedis }

func (c *redisConn) Send(ctx context.Context, event string, payload any) error {
	if c.closed() {
		return ErrClosed
	}
	env, err := NewEnvelope(event, payload)
	if err != nil {
		return err
	}
	if event == EventUserJoin {
		var user string
		if err := json.Unmarshal(env.Data, &user); err != nil || user == "" {
			return fmt.Errorf("transport: %s payload must be a user id string", EventUserJoin)
		}
		if err := c.join(ctx, user); err != nil {
			return fmt.Errorf("transport: send %s: %w", event, err)
		}
	}

	c.mu.Lock()
	user := c.userID
	c.mu.Unlock()
	data, err := json.Marshal(redisEnvelope{Event: env.Event, Data: env.Data, UserID: user})
	if err != nil {
		return fmt.Errorf("transport: marshal envelope: %w", err)
	}
	if err := c.client.Publish(ctx, c.prefix+":"+outboundChannel, data).Err(); err != nil {
		return fmt.Errorf("transport: send %s: %w", event, err)
	}
	return nil
}

// join subscribes to the user channel, replacing any earlier subscription.
func (c *redisConn) join(ctx context.Context, user string) error {
	ps := c.client.Subscribe(ctx, c.prefix+":"+user)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return err
	}

	c.mu.Lock()
	if c.closed() {
		c.mu.Unlock()
		_ = ps.Close()
		return ErrClosed
	}
	prev := c.pubsub
	c.pubsub = ps
	c.userID = user
	c.mu.Unlock()

	if prev != nil {
		_ = prev.Close()
	}
	go c.readLoop(ps)
	return nil
}

func (c *redisConn) readLoop(ps *goredis.PubSub) {
	for msg := range ps.Channel() {
		var env Envelope
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil || env.Event == "" {
			c.logger.Warn("dropping malformed message", logger.Error(err))
			continue
		}
		if !c.router.Dispatch(env.Event, env.Data) {
			c.logger.Debug("no handler for event", logger.Event(env.Event))
		}
	}
}

func (c *redisConn) healthLoop(check func(context.Context) error, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-c.Done():
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), every)
			err := check(ctx)
			cancel()
			if err != nil {
				c.fail(err)
				return
			}
		}
	}
}

func (c *redisConn) release() {
	c.mu.Lock()
	ps := c.pubsub
	c.pubsub = nil
	c.mu.Unlock()
	if ps != nil {
		_ = ps.Close()
	}
}

func (c *redisConn) Close() error {
	if !c.finish(nil) {
		return nil
	}
	c.release()
	c.router.notify(LifecycleClosed, transportRedis, nil)
	return nil
}

func (c *redisConn) fail(err error) {
	if !c.finish(err) {
		return
	}
	c.release()
	c.router.notify(LifecycleErrored, transportRedis, err)
}
