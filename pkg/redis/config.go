package redis

import "time"

type Config struct {
	ConnectionURL  string        `env:"NOTIFY_REDIS_URL" yaml:"url" envDefault:"redis://localhost:6379/0"`    // ConnectionURL in the format "redis://:password@localhost:6379/0".
	ChannelPrefix  string        `env:"NOTIFY_REDIS_PREFIX" yaml:"prefix" envDefault:"notifications"`         // ChannelPrefix namespaces the per-user and outbound channels.
	RetryAttempts  int           `env:"NOTIFY_REDIS_RETRY_ATTEMPTS" yaml:"retry_attempts" envDefault:"3"`     // RetryAttempts is the number of connection attempts.
	RetryInterval  time.Duration `env:"NOTIFY_REDIS_RETRY_INTERVAL" yaml:"retry_interval" envDefault:"2s"`    // RetryInterval is the pause between attempts.
	ConnectTimeout time.Duration `env:"NOTIFY_REDIS_CONNECT_TIMEOUT" yaml:"connect_timeout" envDefault:"10s"` // ConnectTimeout bounds the whole connect sequence.
}
