package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrymomot/notifysync/pkg/logger"
)

const (
	transportPolling    = "polling"
	pollRetryPause      = 100 * time.Millisecond
	defaultPollTimeout  = 30 * time.Second
	pollReleaseTimeout  = 2 * time.Second
	maxPollResponseSize = 4 << 20
)

// PollingDialer opens an HTTP long-polling session at <endpoint>/poll.
type PollingDialer struct {
	opts Options
	s    settings
}

// NewPollingDialer creates a long-polling dialer.
func NewPollingDialer(opts Options, o ...Option) *PollingDialer {
	return &PollingDialer{opts: opts, s: newSettings(o)}
}

type pollHandshake struct {
	SID string `json:"sid"`
}

// Dial implements Dialer. It performs the session handshake and starts the poll loop.
func (d *PollingDialer) Dial(ctx context.Context, ep Endpoint, r *Router) (Conn, error) {
	base, err := pollURL(ep.URL)
	if err != nil {
		return nil, errors.Join(ErrConnect, err)
	}
	if d.opts.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.HandshakeTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base, nil)
	if err != nil {
		return nil, errors.Join(ErrConnect, err)
	}
	if err := authorize(req.Header, ep, d.opts.SendCredentials); err != nil {
		return nil, errors.Join(ErrConnect, err)
	}
	resp, err := d.s.httpClient.Do(req)
	if err != nil {
		return nil, errors.Join(ErrConnect, err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, errors.Join(ErrConnect, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode))
	}
	var hs pollHandshake
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxPollResponseSize)).Decode(&hs); err != nil {
		return nil, errors.Join(ErrConnect, fmt.Errorf("decode handshake: %w", err))
	}
	if hs.SID == "" {
		return nil, errors.Join(ErrConnect, errors.New("handshake returned empty session id"))
	}

	timeout := d.opts.PollTimeout
	if timeout <= 0 {
		timeout = defaultPollTimeout
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	c := &pollConn{
		connState: newConnState(),
		client:    d.s.httpClient,
		endpoint:  ep,
		creds:     d.opts.SendCredentials,
		target:    base + "?sid=" + url.QueryEscape(hs.SID),
		timeout:   timeout,
		router:    r,
		logger:    d.s.logger.With(logger.Transport(transportPolling)),
		ctx:       loopCtx,
		cancel:    cancel,
	}
	r.notify(LifecycleOpened, transportPolling, nil)
	go c.pollLoop()
	return c, nil
}

func pollURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	switch u.Scheme {
	case "http", "https":
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	default:
		return "", fmt.Errorf("unsupported endpoint scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/poll"
	u.RawQuery = ""
	return u.String(), nil
}

type pollConn struct {
	*connState
	client   *http.Client
	endpoint Endpoint
	creds    bool
	target   string
	timeout  time.Duration
	router   *Router
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

func (c *pollConn) Transport() string { return transportPolling }

func (c *pollConn) Send(ctx context.Context, event string, payload any) error {
	if c.closed() {
		return ErrClosed
	}
	env, err := NewEnvelope(event, payload)
	if err != nil {
		return err
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("transport: marshal envelope: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("transport: send %s: %w", event, err)
	}
	defer drain(resp)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("transport: send %s: %w: %d", event, ErrUnexpectedStatus, resp.StatusCode)
	}
	return nil
}

func (c *pollConn) Close() error {
	if !c.finish(nil) {
		return nil
	}
	c.cancel()

	// Release the server session. Best effort.
	ctx, cancel := context.WithTimeout(context.Background(), pollReleaseTimeout)
	defer cancel()
	if resp, err := c.do(ctx, http.MethodDelete, nil); err == nil {
		drain(resp)
	}
	c.router.notify(LifecycleClosed, transportPolling, nil)
	return nil
}

func (c *pollConn) pollLoop() {
	for {
		if c.ctx.Err() != nil {
			return
		}
		envs, err := c.poll()
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			if errors.Is(err, context.DeadlineExceeded) {
				// The server held the request longer than our own timeout.
				continue
			}
			c.fail(err)
			return
		}
		for _, env := range envs {
			if env.Event == "" {
				c.logger.Warn("dropping envelope without event name")
				continue
			}
			if !c.router.Dispatch(env.Event, env.Data) {
				c.logger.Debug("no handler for event", logger.Event(env.Event))
			}
		}
		if len(envs) == 0 {
			select {
			case <-c.ctx.Done():
				return
			case <-time.After(pollRetryPause):
			}
		}
	}
}

func (c *pollConn) poll() ([]Envelope, error) {
	ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
	defer cancel()

	resp, err := c.do(ctx, http.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusNoContent:
		return nil, nil
	case http.StatusOK:
	case http.StatusNotFound, http.StatusGone:
		return nil, ErrSessionExpired
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var envs []Envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxPollResponseSize)).Decode(&envs); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("transport: decode poll response: %w", err)
	}
	return envs, nil
}

func (c *pollConn) do(ctx context.Context, method string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.target, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if err := authorize(req.Header, c.endpoint, c.creds); err != nil {
		return nil, err
	}
	return c.client.Do(req)
}

func (c *pollConn) fail(err error) {
	if !c.finish(err) {
		return
	}
	c.cancel()
	c.router.notify(LifecycleErrored, transportPolling, err)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxPollResponseSize))
	_ = resp.Body.Close()
}
