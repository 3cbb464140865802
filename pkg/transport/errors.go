package transport

import "errors"

var (
	// ErrConnect wraps every failure to open a connection.
	ErrConnect = errors.New("transport: connect failed")

	// ErrClosed is returned by Send on a connection that is already closed.
	ErrClosed = errors.New("transport: connection closed")

	// ErrPeerClosed is reported by Conn.Err when the server ended the connection cleanly.
	ErrPeerClosed = errors.New("transport: connection closed by peer")

	// ErrSessionExpired is reported by Conn.Err when a polling session is no longer known to the server.
	ErrSessionExpired = errors.New("transport: polling session expired")

	// ErrNoDialers is returned by a Fallback dialer without candidates.
	ErrNoDialers = errors.New("transport: no dialers configured")

	// ErrUnexpectedStatus is returned for HTTP responses outside the expected range.
	ErrUnexpectedStatus = errors.New("transport: unexpected http status")
)
