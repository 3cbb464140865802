package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// Envelope is the frame every shipped adapter exchanges with the server.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals payload into an Envelope. A nil payload leaves Data empty.
func NewEnvelope(event string, payload any) (Envelope, error) {
	env := Envelope{Event: event}
	if payload == nil {
		return env, nil
	}
	if raw, ok := payload.(json.RawMessage); ok {
		env.Data = raw
		return env, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("transport: marshal %s payload: %w", event, err)
	}
	env.Data = data
	return env, nil
}

// Endpoint is the connection target.
type Endpoint struct {
	// URL is the base URL of the notification service, e.g. https://api.example.com/notifications.
	URL string
	// Credentials supplies the session token. May be nil.
	Credentials oauth2.TokenSource
}

// Conn is one open connection to the event source.
type Conn interface {
	// Send transmits a named event. Delivery is not guaranteed.
	Send(ctx context.Context, event string, payload any) error
	// Close releases the connection. Idempotent.
	Close() error
	// Done is closed when the connection ends for any reason.
	Done() <-chan struct{}
	// Err is nil after a local Close, ErrPeerClosed after a clean remote
	// close, or the failure that ended the connection.
	Err() error
	// Transport names the adapter, e.g. "websocket".
	Transport() string
}

// Dialer opens connections. Dial must not block beyond ctx.
type Dialer interface {
	Dial(ctx context.Context, ep Endpoint, r *Router) (Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, ep Endpoint, r *Router) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context, ep Endpoint, r *Router) (Conn, error) {
	return f(ctx, ep, r)
}

// Options are the recognized connection options. The reconnect fields are
// consumed by the connection manager; adapters use the rest.
type Options struct {
	// PreferSecureTransport tries the websocket stream first and falls back to long-polling.
	PreferSecureTransport bool
	// SendCredentials attaches the endpoint credentials to every request.
	SendCredentials bool

	AutoReconnect        bool
	ReconnectDelayMin    time.Duration
	ReconnectDelayMax    time.Duration
	MaxReconnectAttempts int

	// PollTimeout bounds one long-poll request.
	PollTimeout time.Duration
	// HandshakeTimeout bounds opening a connection.
	HandshakeTimeout time.Duration
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		PreferSecureTransport: true,
		SendCredentials:       true,
		AutoReconnect:         true,
		ReconnectDelayMin:     time.Second,
		ReconnectDelayMax:     5 * time.Second,
		MaxReconnectAttempts:  5,
		PollTimeout:           30 * time.Second,
		HandshakeTimeout:      10 * time.Second,
	}
}

// Option configures an adapter.
type Option func(*settings)

type settings struct {
	logger     *slog.Logger
	httpClient *http.Client
}

func newSettings(opts []Option) settings {
	s := settings{
		logger:     slog.Default(),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithLogger sets the adapter logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithHTTPClient sets the HTTP client used by the polling adapter.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// authorize sets the Authorization header from the endpoint credentials
// when enabled. A token that cannot be obtained fails the request.
func authorize(h http.Header, ep Endpoint, enabled bool) error {
	if !enabled || ep.Credentials == nil {
		return nil
	}
	tok, err := ep.Credentials.Token()
	if err != nil {
		return fmt.Errorf("transport: obtain credentials: %w", err)
	}
	if tok.AccessToken == "" {
		return nil
	}
	h.Set("Authorization", tok.Type()+" "+tok.AccessToken)
	return nil
}

// connState implements the Done/Err half of Conn.
type connState struct {
	done chan struct{}
	once sync.Once
	mu   sync.RWMutex
	err  error
}

func newConnState() *connState {
	return &connState{done: make(chan struct{})}
}

// finish ends the connection with err. Only the first call has an effect;
// it reports whether this call ended the connection.
func (c *connState) finish(err error) bool {
	ended := false
	c.once.Do(func() {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		close(c.done)
		ended = true
	})
	return ended
}

func (c *connState) Done() <-chan struct{} { return c.done }

func (c *connState) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

func (c *connState) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// lifecycleOf maps a connection error onto the lifecycle signal it represents.
func lifecycleOf(err error) Lifecycle {
	if err == nil || errors.Is(err, ErrPeerClosed) {
		return LifecycleClosed
	}
	return LifecycleErrored
}
