package notifysync

import (
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/oauth2"

	"github.com/dmitrymomot/notifysync/pkg/connection"
	"github.com/dmitrymomot/notifysync/pkg/notifications"
	"github.com/dmitrymomot/notifysync/pkg/redis"
	"github.com/dmitrymomot/notifysync/pkg/transport"
)

// TransportKind selects the event channel implementation.
type TransportKind string

const (
	// TransportAuto tries websocket and long-polling in the order given by
	// PreferSecureTransport.
	TransportAuto      TransportKind = "auto"
	TransportWebSocket TransportKind = "websocket"
	TransportPolling   TransportKind = "polling"
	TransportRedis     TransportKind = "redis"
)

// Config is the client configuration. It loads from NOTIFY_* environment
// variables with config.Load or from YAML with config.LoadFile.
type Config struct {
	Endpoint    string        `env:"NOTIFY_ENDPOINT" yaml:"endpoint"`
	AccessToken string        `env:"NOTIFY_ACCESS_TOKEN" yaml:"access_token"`
	Transport   TransportKind `env:"NOTIFY_TRANSPORT" envDefault:"auto" yaml:"transport"`

	PreferSecureTransport bool          `env:"NOTIFY_PREFER_SECURE_TRANSPORT" envDefault:"true" yaml:"prefer_secure_transport"`
	SendCredentials       bool          `env:"NOTIFY_SEND_CREDENTIALS" envDefault:"true" yaml:"send_credentials"`
	AutoReconnect         bool          `env:"NOTIFY_AUTO_RECONNECT" envDefault:"true" yaml:"auto_reconnect"`
	ReconnectDelayMin     time.Duration `env:"NOTIFY_RECONNECT_DELAY_MIN" envDefault:"1s" yaml:"reconnect_delay_min"`
	ReconnectDelayMax     time.Duration `env:"NOTIFY_RECONNECT_DELAY_MAX" envDefault:"5s" yaml:"reconnect_delay_max"`
	MaxReconnectAttempts  int           `env:"NOTIFY_MAX_RECONNECT_ATTEMPTS" envDefault:"5" yaml:"max_reconnect_attempts"`
	PollTimeout           time.Duration `env:"NOTIFY_POLL_TIMEOUT" envDefault:"30s" yaml:"poll_timeout"`
	HandshakeTimeout      time.Duration `env:"NOTIFY_HANDSHAKE_TIMEOUT" envDefault:"10s" yaml:"handshake_timeout"`

	PrimaryLanguage   string `env:"NOTIFY_PRIMARY_LANGUAGE" envDefault:"en" yaml:"primary_language"`
	SecondaryLanguage string `env:"NOTIFY_SECONDARY_LANGUAGE" envDefault:"ar" yaml:"secondary_language"`

	Redis redis.Config `yaml:"redis"`
}

// TransportOptions converts the configuration to transport options.
func (c Config) TransportOptions() transport.Options {
	return transport.Options{
		PreferSecureTransport: c.PreferSecureTransport,
		SendCredentials:       c.SendCredentials,
		AutoReconnect:         c.AutoReconnect,
		ReconnectDelayMin:     c.ReconnectDelayMin,
		ReconnectDelayMax:     c.ReconnectDelayMax,
		MaxReconnectAttempts:  c.MaxReconnectAttempts,
		PollTimeout:           c.PollTimeout,
		HandshakeTimeout:      c.HandshakeTimeout,
	}
}

// Languages returns the configured language pair.
func (c Config) Languages() notifications.Languages {
	return notifications.ParseLanguages(c.PrimaryLanguage, c.SecondaryLanguage)
}

// Validate checks the fields the selected transport depends on.
func (c Config) Validate() error {
	switch c.Transport {
	case TransportAuto, TransportWebSocket, TransportPolling, "":
		if c.Endpoint == "" {
			return ErrMissingEndpoint
		}
	case TransportRedis:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTransport, c.Transport)
	}
	return nil
}

// NewFromConfig builds a Client with the dialer cfg selects. The redis
// transport connects to the server before returning.
func NewFromConfig(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := newOptions(opts)

	topts := cfg.TransportOptions()
	adapterOpts := []transport.Option{transport.WithLogger(o.logger)}
	if o.httpClient != nil {
		adapterOpts = append(adapterOpts, transport.WithHTTPClient(o.httpClient))
	}

	var (
		dialer  transport.Dialer
		closers []io.Closer
	)
	switch cfg.Transport {
	case TransportWebSocket:
		dialer = transport.NewWebSocketDialer(topts, adapterOpts...)
	case TransportPolling:
		dialer = transport.NewPollingDialer(topts, adapterOpts...)
	case TransportRedis:
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("notifysync: connect redis: %w", err)
		}
		dialer = transport.NewRedisDialer(client, cfg.Redis.ChannelPrefix, transport.WithRedisLogger(o.logger))
		closers = append(closers, client)
	default:
		dialer = transport.NewDialer(topts, adapterOpts...)
	}

	endpoint := transport.Endpoint{URL: cfg.Endpoint, Credentials: o.tokenSource}
	if endpoint.Credentials == nil && cfg.AccessToken != "" {
		endpoint.Credentials = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken})
	}

	opts = append([]Option{
		WithPolicy(connection.PolicyFromOptions(topts)),
		WithLanguages(cfg.Languages()),
	}, opts...)
	c := New(dialer, endpoint, opts...)
	c.closers = closers
	return c, nil
}
