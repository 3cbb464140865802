package notifysync

import (
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/dmitrymomot/notifysync/pkg/connection"
	"github.com/dmitrymomot/notifysync/pkg/notifications"
)

const defaultSendTimeout = 5 * time.Second

// Option configures a Client.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	policy      *connection.Policy
	sendTimeout time.Duration
	languages   notifications.Languages
	storeOpts   []notifications.StoreOption
	tokenSource oauth2.TokenSource
	httpClient  *http.Client
}

func newOptions(opts []Option) options {
	o := options{
		logger:      slog.Default(),
		sendTimeout: defaultSendTimeout,
		languages:   notifications.DefaultLanguages,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger shared by every component.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithPolicy sets the reconnect policy.
func WithPolicy(p connection.Policy) Option {
	return func(o *options) { o.policy = &p }
}

// WithSendTimeout bounds each outbound read acknowledgement.
func WithSendTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.sendTimeout = d
		}
	}
}

// WithLanguages sets the languages of the primary and secondary text variants.
func WithLanguages(l notifications.Languages) Option {
	return func(o *options) { o.languages = l }
}

// WithStoreOptions passes options to every notification store.
func WithStoreOptions(opts ...notifications.StoreOption) Option {
	return func(o *options) { o.storeOpts = append(o.storeOpts, opts...) }
}

// WithTokenSource supplies session credentials to NewFromConfig, taking
// precedence over Config.AccessToken.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(o *options) { o.tokenSource = ts }
}

// WithHTTPClient sets the HTTP client NewFromConfig hands to HTTP based transports.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}
