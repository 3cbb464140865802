// Package config loads typed configuration structs from the environment and
// from optional YAML files.
//
// Load parses environment variables (after a one-time, best-effort load of
// the default .env file) into any struct annotated with `env` tags and caches
// the result per type. LoadEnv loads additional .env files explicitly.
// LoadFile is uncached: it applies env values and defaults first and then
// decodes a YAML file on top, so keys present in the file win.
//
//	type Config struct {
//	    Endpoint string        `env:"NOTIFY_ENDPOINT,required" yaml:"endpoint"`
//	    MaxDelay time.Duration `env:"NOTIFY_RECONNECT_DELAY_MAX" envDefault:"5s" yaml:"reconnect_delay_max"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil {
//	    return err
//	}
//
// Errors are sentinels to be checked with errors.Is: ErrParsingConfig,
// ErrNilPointer, ErrLoadingEnvFile, ErrReadingFile and ErrParsingFile.
// ResetCache clears the per-type cache between tests.
package config
