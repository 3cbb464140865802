package session_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifysync/pkg/session"
)

func receive(t *testing.T, ch <-chan session.AuthState) session.AuthState {
	t.Helper()
	select {
	case st, ok := <-ch:
		require.True(t, ok, "channel closed")
		return st
	case <-time.After(2 * time.Second):
		t.Fatal("no auth state received")
		return session.AuthState{}
	}
}

func TestAuthState_Active(t *testing.T) {
	t.Parallel()

	assert.True(t, session.SignedIn("u1").Active())
	assert.False(t, session.AuthState{}.Active())
	assert.False(t, session.AuthState{Authenticated: true}.Active())
	assert.False(t, session.AuthState{UserID: "u1"}.Active())
}

func TestMemoryAuthProvider(t *testing.T) {
	t.Parallel()

	t.Run("delivers changes", func(t *testing.T) {
		t.Parallel()
		p := session.NewMemoryAuthProvider(session.AuthState{})
		t.Cleanup(func() { _ = p.Close() })
		ch := p.Subscribe(t.Context())

		p.Login("u1")
		assert.Equal(t, session.SignedIn("u1"), receive(t, ch))
		assert.Equal(t, session.SignedIn("u1"), p.Current())

		p.Logout()
		assert.Equal(t, session.AuthState{}, receive(t, ch))
	})

	t.Run("unchanged state is not broadcast", func(t *testing.T) {
		t.Parallel()
		p := session.NewMemoryAuthProvider(session.SignedIn("u1"))
		t.Cleanup(func() { _ = p.Close() })
		ch := p.Subscribe(t.Context())

		p.Login("u1")
		select {
		case st := <-ch:
			t.Fatalf("unexpected state %+v", st)
		case <-time.After(30 * time.Millisecond):
		}
	})

	t.Run("slow reader gets the latest state", func(t *testing.T) {
		t.Parallel()
		p := session.NewMemoryAuthProvider(session.AuthState{})
		t.Cleanup(func() { _ = p.Close() })
		ch := p.Subscribe(t.Context())

		for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"} {
			p.Login(id)
		}
		require.Eventually(t, func() bool {
			select {
			case st := <-ch:
				return st.UserID == "l"
			default:
				return false
			}
		}, 2*time.Second, 5*time.Millisecond)
	})

	t.Run("burst keeps the subscription open", func(t *testing.T) {
		t.Parallel()
		p := session.NewMemoryAuthProvider(session.AuthState{})
		t.Cleanup(func() { _ = p.Close() })
		ch := p.Subscribe(t.Context())

		for i := range 50 {
			p.Login(fmt.Sprintf("u%d", i))
		}
		assert.Equal(t, session.SignedIn("u49"), receive(t, ch))

		p.Logout()
		assert.Equal(t, session.AuthState{}, receive(t, ch))
	})

	t.Run("subscribe after close yields a closed channel", func(t *testing.T) {
		t.Parallel()
		p := session.NewMemoryAuthProvider(session.AuthState{})
		require.NoError(t, p.Close())
		require.NoError(t, p.Close())

		_, ok := <-p.Subscribe(t.Context())
		assert.False(t, ok)
	})

	t.Run("subscription ends with context", func(t *testing.T) {
		t.Parallel()
		p := session.NewMemoryAuthProvider(session.AuthState{})
		t.Cleanup(func() { _ = p.Close() })
		ctx, cancel := context.WithCancel(t.Context())
		ch := p.Subscribe(ctx)
		cancel()

		select {
		case _, ok := <-ch:
			assert.False(t, ok)
		case <-time.After(2 * time.Second):
			t.Fatal("channel not closed")
		}
	})

	t.Run("close ends subscriptions", func(t *testing.T) {
		t.Parallel()
		p := session.NewMemoryAuthProvider(session.AuthState{})
		ch := p.Subscribe(t.Context())
		require.NoError(t, p.Close())

		select {
		case _, ok := <-ch:
			assert.False(t, ok)
		case <-time.After(2 * time.Second):
			t.Fatal("channel not closed")
		}
	})
}
