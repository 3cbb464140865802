package redis

import "errors"

var (
	// ErrFailedToParseRedisConnString is returned for a URL go-redis cannot parse.
	ErrFailedToParseRedisConnString = errors.New("redis: invalid connection url")
	// ErrRedisNotReady is returned when no connection attempt succeeded.
	ErrRedisNotReady = errors.New("redis: server not ready")
	// ErrEmptyConnectionURL is returned when Config.ConnectionURL is empty.
	ErrEmptyConnectionURL = errors.New("redis: empty connection url")
	// ErrHealthcheckFailed is returned by the check from Healthcheck.
	ErrHealthcheckFailed = errors.New("redis: healthcheck failed")
)
