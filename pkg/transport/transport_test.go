package transport_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifysync/pkg/transport"
)

func TestNewEnvelope(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload any
		want    string
	}{
		{name: "nil payload", payload: nil, want: `{"event":"e"}`},
		{name: "string payload", payload: "user-1", want: `{"event":"e","data":"user-1"}`},
		{name: "raw payload", payload: json.RawMessage(`{"id":"n1"}`), want: `{"event":"e","data":{"id":"n1"}}`},
		{name: "struct payload", payload: struct {
			ID string `json:"id"`
		}{ID: "n1"}, want: `{"event":"e","data":{"id":"n1"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env, err := transport.NewEnvelope("e", tt.payload)
			require.NoError(t, err)
			data, err := json.Marshal(env)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}

	t.Run("unmarshalable payload", func(t *testing.T) {
		t.Parallel()
		_, err := transport.NewEnvelope("e", make(chan int))
		assert.Error(t, err)
	})
}

func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := transport.DefaultOptions()
	assert.True(t, opts.AutoReconnect)
	assert.True(t, opts.PreferSecureTransport)
	assert.True(t, opts.SendCredentials)
	assert.Equal(t, time.Second, opts.ReconnectDelayMin)
	assert.Equal(t, 5*time.Second, opts.ReconnectDelayMax)
	assert.Equal(t, 5, opts.MaxReconnectAttempts)
}
