// Package redis connects to the Redis server that backs the pub/sub
// transport.
//
// Connect parses a redis:// URL, pings the server and retries according to
// Config. Healthcheck returns a check the transport runs periodically to
// detect a dead server on an otherwise idle subscription.
//
//	client, err := redis.Connect(ctx, redis.Config{
//	    ConnectionURL: "redis://localhost:6379/0",
//	    RetryAttempts: 3,
//	    RetryInterval: 2 * time.Second,
//	})
//	if err != nil {
//	    return err
//	}
//	dialer := transport.NewRedisDialer(client, "notifications")
//
// Errors are sentinel values joined with the underlying go-redis error, so
// errors.Is works against both.
package redis
