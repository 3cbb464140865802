package transport

import (
	"context"
	"errors"
)

// Fallback returns a Dialer that tries each dialer in order and returns the
// first connection that opens.
func Fallback(dialers ...Dialer) Dialer {
	return DialerFunc(func(ctx context.Context, ep Endpoint, r *Router) (Conn, error) {
		if len(dialers) == 0 {
			return nil, errors.Join(ErrConnect, ErrNoDialers)
		}
		errs := make([]error, 0, len(dialers))
		for _, d := range dialers {
			conn, err := d.Dial(ctx, ep, r)
			if err == nil {
				return conn, nil
			}
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
		}
		return nil, errors.Join(append([]error{ErrConnect}, errs...)...)
	})
}

// NewDialer returns the HTTP based dialer for opts: websocket then
// long-polling when PreferSecureTransport is set, the reverse otherwise.
func NewDialer(opts Options, o ...Option) Dialer {
	ws := NewWebSocketDialer(opts, o...)
	poll := NewPollingDialer(opts, o...)
	if opts.PreferSecureTransport {
		return Fallback(ws, poll)
	}
	return Fallback(poll, ws)
}
