package notifysync

import "errors"

var (
	// ErrUnknownTransport is returned for a Config.Transport value that names no dialer.
	ErrUnknownTransport = errors.New("notifysync: unknown transport")

	// ErrMissingEndpoint is returned when an HTTP based transport has no endpoint.
	ErrMissingEndpoint = errors.New("notifysync: endpoint is required")
)
