package notifysync_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/dmitrymomot/notifysync"
	"github.com/dmitrymomot/notifysync/pkg/config"
	"github.com/dmitrymomot/notifysync/pkg/connection"
	"github.com/dmitrymomot/notifysync/pkg/logger"
	"github.com/dmitrymomot/notifysync/pkg/redis"
	"github.com/dmitrymomot/notifysync/pkg/session"
	"github.com/dmitrymomot/notifysync/pkg/transport"
)

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     notifysync.Config
		wantErr error
	}{
		{name: "auto with endpoint", cfg: notifysync.Config{Transport: notifysync.TransportAuto, Endpoint: "https://x"}},
		{name: "auto without endpoint", cfg: notifysync.Config{Transport: notifysync.TransportAuto}, wantErr: notifysync.ErrMissingEndpoint},
		{name: "polling without endpoint", cfg: notifysync.Config{Transport: notifysync.TransportPolling}, wantErr: notifysync.ErrMissingEndpoint},
		{name: "redis without endpoint", cfg: notifysync.Config{Transport: notifysync.TransportRedis}},
		{name: "unknown transport", cfg: notifysync.Config{Transport: "carrier-pigeon", Endpoint: "https://x"}, wantErr: notifysync.ErrUnknownTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestConfig_LoadFile(t *testing.T) {
	t.Setenv("NOTIFY_ACCESS_TOKEN", "env-token")

	var cfg notifysync.Config
	require.NoError(t, config.LoadFile("testdata/client.yaml", &cfg))

	assert.Equal(t, "https://notify.example.com/api/notifications", cfg.Endpoint)
	assert.Equal(t, "env-token", cfg.AccessToken)
	assert.Equal(t, notifysync.TransportPolling, cfg.Transport)
	assert.False(t, cfg.PreferSecureTransport)
	assert.True(t, cfg.SendCredentials)
	assert.Equal(t, 30*time.Second, cfg.PollTimeout)
	assert.Equal(t, "redis://cache.internal:6379/2", cfg.Redis.ConnectionURL)
	assert.Equal(t, "inbox", cfg.Redis.ChannelPrefix)
	assert.Equal(t, 3, cfg.Redis.RetryAttempts)

	opts := cfg.TransportOptions()
	assert.Equal(t, 500*time.Millisecond, opts.ReconnectDelayMin)
	assert.Equal(t, 10*time.Second, opts.ReconnectDelayMax)
	assert.Equal(t, 8, opts.MaxReconnectAttempts)

	langs := cfg.Languages()
	assert.Equal(t, language.Arabic, langs.Primary)
	assert.Equal(t, language.English, langs.Secondary)
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	t.Run("invalid config", func(t *testing.T) {
		t.Parallel()
		_, err := notifysync.NewFromConfig(t.Context(), notifysync.Config{Transport: notifysync.TransportWebSocket})
		assert.ErrorIs(t, err, notifysync.ErrMissingEndpoint)
	})

	t.Run("http transports", func(t *testing.T) {
		t.Parallel()
		for _, kind := range []notifysync.TransportKind{
			notifysync.TransportAuto,
			notifysync.TransportWebSocket,
			notifysync.TransportPolling,
		} {
			c, err := notifysync.NewFromConfig(t.Context(), notifysync.Config{
				Transport:   kind,
				Endpoint:    "https://notify.example.com",
				AccessToken: "token",
			}, notifysync.WithLogger(logger.Discard()))
			require.NoError(t, err, kind)
			assert.Equal(t, connection.StatusDisconnected, c.Status())
			require.NoError(t, c.Close())
		}
	})

	t.Run("redis unreachable", func(t *testing.T) {
		t.Parallel()
		srv := miniredis.RunT(t)
		addr := srv.Addr()
		srv.Close()

		_, err := notifysync.NewFromConfig(t.Context(), notifysync.Config{
			Transport: notifysync.TransportRedis,
			Redis: redis.Config{
				ConnectionURL:  "redis://" + addr,
				RetryAttempts:  1,
				ConnectTimeout: time.Second,
			},
		})
		assert.ErrorIs(t, err, redis.ErrRedisNotReady)
	})

	t.Run("redis end to end", func(t *testing.T) {
		t.Parallel()
		srv := miniredis.RunT(t)

		c, err := notifysync.NewFromConfig(t.Context(), notifysync.Config{
			Transport:     notifysync.TransportRedis,
			AutoReconnect: true,
			Redis: redis.Config{
				ConnectionURL:  "redis://" + srv.Addr(),
				ChannelPrefix:  "inbox",
				RetryAttempts:  1,
				ConnectTimeout: time.Second,
			},
		}, notifysync.WithLogger(logger.Discard()))
		require.NoError(t, err)
		t.Cleanup(func() { _ = c.Close() })

		c.Bind(session.SignedIn("u1"))
		require.Eventually(t, func() bool {
			return c.Status() == connection.StatusConnected
		}, waitFor, tick)

		payload, err := json.Marshal(transport.Envelope{
			Event: transport.EventNotification,
			Data:  json.RawMessage(`{"id":"r1","title":"Hearing tomorrow","type":"hearing_reminder"}`),
		})
		require.NoError(t, err)
		srv.Publish("inbox:u1", string(payload))

		require.Eventually(t, func() bool {
			return len(c.Notifications()) == 1
		}, waitFor, tick)
		assert.Equal(t, "r1", c.Notifications()[0].ID)
		assert.Equal(t, 1, c.UnreadCount())
	})
}
