// Package connection keeps one event channel open per user session.
//
// A Manager opens connections through a transport.Dialer, sends user:join
// after every successful open and reports its Status. An open whose join
// cannot be sent counts as failed:
//
//	disconnected -> connecting -> connected
//	                    |  ^          |
//	                    v  |          v
//	                   error      connecting (lost, auto reconnect)
//
// Failed opens and unexpected closes are retried per Policy with a delay of
// DelayMin doubled per consecutive failure, capped at DelayMax, computed by
// a jitter-free cenkalti/backoff ExponentialBackOff. After
// MaxAttempts consecutive failed opens the manager stays in StatusError
// until Start is called again. Failures never surface as errors; the status
// is the only signal.
//
//	m := connection.New(dialer, endpoint, router,
//	    connection.WithPolicy(connection.DefaultPolicy()),
//	    connection.WithLogger(log),
//	)
//	m.Start(userID)
//	defer m.Close()
//
// Stop cancels pending retries and discards the result of a dial still in
// flight. Log records carry the user id in their context; register
// logger.UserIDExtractor to print it.
package connection
