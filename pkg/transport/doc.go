// Package transport implements the event channel between the client and the
// notification server.
//
// A Dialer opens a Conn for an Endpoint and delivers inbound events to the
// handlers registered on a Router. Conn.Send transmits a named event with a
// JSON payload and offers no delivery guarantee.
//
// Shipped dialers:
//
//   - WebSocketDialer: one JSON envelope per text frame at <endpoint>/ws.
//   - PollingDialer: HTTP long-polling at <endpoint>/poll.
//   - RedisDialer: Redis pub/sub, one channel per user.
//   - Pipe: in-memory, for tests and embedding.
//
// Fallback chains dialers, and NewDialer picks websocket or long-polling
// first according to Options.PreferSecureTransport.
//
//	router := transport.NewRouter()
//	router.On(transport.EventNotification, func(raw json.RawMessage) {
//	    // decode and apply
//	})
//	conn, err := transport.NewDialer(transport.DefaultOptions()).Dial(ctx, transport.Endpoint{
//	    URL:         "https://api.example.com/notifications",
//	    Credentials: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
//	}, router)
//
// Every dial failure wraps ErrConnect. A Conn's Done channel closes when the
// connection ends; Err then tells a local close (nil), a clean remote close
// (ErrPeerClosed) and a failure apart.
package transport
