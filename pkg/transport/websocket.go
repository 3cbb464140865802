package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/notifysync/pkg/logger"
)

const (
	transportWebSocket = "websocket"
	closeWriteTimeout  = time.Second
)

// WebSocketDialer opens a websocket stream at <endpoint>/ws.
type WebSocketDialer struct {
	opts   Options
	s      settings
	dialer *websocket.Dialer
}

// NewWebSocketDialer creates a websocket dialer.
func NewWebSocketDialer(opts Options, o ...Option) *WebSocketDialer {
	return &WebSocketDialer{
		opts: opts,
		s:    newSettings(o),
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opts.HandshakeTimeout,
		},
	}
}

// Dial implements Dialer.
func (d *WebSocketDialer) Dial(ctx context.Context, ep Endpoint, r *Router) (Conn, error) {
	target, err := websocketURL(ep.URL)
	if err != nil {
		return nil, errors.Join(ErrConnect, err)
	}

	header := http.Header{}
	if err := authorize(header, ep, d.opts.SendCredentials); err != nil {
		return nil, errors.Join(ErrConnect, err)
	}

	ws, resp, err := d.dialer.DialContext(ctx, target, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, errors.Join(ErrConnect, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode), err)
		}
		return nil, errors.Join(ErrConnect, err)
	}

	c := &wsConn{
		connState: newConnState(),
		ws:        ws,
		router:    r,
		logger:    d.s.logger.With(logger.Transport(transportWebSocket)),
	}
	r.notify(LifecycleOpened, transportWebSocket, nil)
	go c.readLoop()
	return c, nil
}

// websocketURL maps http(s)://host/path to ws(s)://host/path/ws.
func websocketURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported endpoint scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String(), nil
}

type wsConn struct {
	*connState
	ws     *websocket.Conn
	router *Router
	logger *slog.Logger

	writeMu sync.Mutex
}

func (c *wsConn) Transport() string { return transportWebSocket }

func (c *wsConn) Send(ctx context.Context, event string, payload any) error {
	if c.closed() {
		return ErrClosed
	}
	env, err := NewEnvelope(event, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("transport: marshal envelope: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	deadline, _ := ctx.Deadline()
	_ = c.ws.SetWriteDeadline(deadline)
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("transport: send %s: %w", event, err)
	}
	return nil
}

func (c *wsConn) Close() error {
	if !c.finish(nil) {
		return nil
	}
	c.writeMu.Lock()
	_ = c.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(closeWriteTimeout),
	)
	c.writeMu.Unlock()
	err := c.ws.Close()
	c.router.notify(LifecycleClosed, transportWebSocket, nil)
	return err
}

func (c *wsConn) readLoop() {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.fail(err)
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			c.logger.Warn("dropping malformed frame", logger.Error(err))
			continue
		}
		if !c.router.Dispatch(env.Event, env.Data) {
			c.logger.Debug("no handler for event", logger.Event(env.Event))
		}
	}
}

func (c *wsConn) fail(err error) {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		err = ErrPeerClosed
	}
	if !c.finish(err) {
		// Closed locally.
		return
	}
	_ = c.ws.Close()
	c.router.notify(lifecycleOf(err), transportWebSocket, err)
}
