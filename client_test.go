package notifysync_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/dmitrymomot/notifysync"
	"github.com/dmitrymomot/notifysync/pkg/connection"
	"github.com/dmitrymomot/notifysync/pkg/logger"
	"github.com/dmitrymomot/notifysync/pkg/notifications"
	"github.com/dmitrymomot/notifysync/pkg/session"
	"github.com/dmitrymomot/notifysync/pkg/transport"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func newClient(t *testing.T, pipe *transport.Pipe, opts ...notifysync.Option) *notifysync.Client {
	t.Helper()
	opts = append([]notifysync.Option{
		notifysync.WithLogger(logger.Discard()),
		notifysync.WithPolicy(connection.Policy{
			AutoReconnect: true,
			DelayMin:      time.Millisecond,
			DelayMax:      5 * time.Millisecond,
			MaxAttempts:   3,
		}),
	}, opts...)
	c := notifysync.New(pipe, transport.Endpoint{URL: "http://localhost"}, opts...)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func signIn(t *testing.T, c *notifysync.Client, userID string) {
	t.Helper()
	c.Bind(session.SignedIn(userID))
	require.Eventually(t, func() bool {
		return c.Status() == connection.StatusConnected
	}, waitFor, tick)
}

func push(t *testing.T, pipe *transport.Pipe, id, createdAt string) {
	t.Helper()
	require.NoError(t, pipe.Emit(transport.EventNotification, map[string]any{
		"id": id, "title": "Title " + id, "type": "task_reminder", "createdAt": createdAt,
	}))
}

func sentEvents(pipe *transport.Pipe, event string) []string {
	var payloads []string
	for _, env := range pipe.Sent() {
		if env.Event == event {
			payloads = append(payloads, string(env.Data))
		}
	}
	return payloads
}

func TestClient_NoSession(t *testing.T) {
	t.Parallel()

	pipe := transport.NewPipe()
	c := newClient(t, pipe)

	assert.Equal(t, connection.StatusDisconnected, c.Status())
	assert.Empty(t, c.UserID())
	assert.Nil(t, c.Notifications())
	assert.Zero(t, c.UnreadCount())

	_, inserted := c.InsertLocal(notifications.Record{Title: notifications.LocalizedText{Primary: "x"}})
	assert.False(t, inserted)
	c.MarkOneRead("n1")
	c.MarkAllRead()
	c.ClearAll()
	c.Reconnect()

	assert.Zero(t, pipe.Dials())
	assert.Empty(t, pipe.Sent())
}

func TestClient_Session(t *testing.T) {
	t.Parallel()

	pipe := transport.NewPipe()
	c := newClient(t, pipe)
	signIn(t, c, "u1")
	assert.Equal(t, "u1", c.UserID())

	push(t, pipe, "n1", "2024-05-01T10:00:00Z")
	push(t, pipe, "n2", "2024-05-03T10:00:00Z")
	push(t, pipe, "n1", "2024-05-01T10:00:00Z")

	list := c.Notifications()
	require.Len(t, list, 2)
	assert.Equal(t, "n2", list[0].ID)
	assert.Equal(t, 2, c.UnreadCount())

	t.Run("mark one read", func(t *testing.T) {
		c.MarkOneRead("n1")
		assert.Equal(t, 1, c.UnreadCount())
		require.Eventually(t, func() bool {
			return len(sentEvents(pipe, transport.EventMarkRead)) == 1
		}, waitFor, tick)
		assert.Equal(t, []string{`"n1"`}, sentEvents(pipe, transport.EventMarkRead))
	})

	t.Run("insert local", func(t *testing.T) {
		rec, inserted := c.InsertLocal(notifications.Record{
			Title: notifications.LocalizedText{Primary: "Local"},
		})
		require.True(t, inserted)
		assert.NotEmpty(t, rec.ID)
		assert.Equal(t, rec.ID, c.Notifications()[0].ID)
		assert.Equal(t, 2, c.UnreadCount())
	})

	t.Run("mark all read", func(t *testing.T) {
		c.MarkAllRead()
		assert.Zero(t, c.UnreadCount())
		require.Eventually(t, func() bool {
			return len(sentEvents(pipe, transport.EventMarkAllRead)) == 1
		}, waitFor, tick)
	})

	t.Run("clear all stays local", func(t *testing.T) {
		sent := len(pipe.Sent())
		c.ClearAll()
		assert.Empty(t, c.Notifications())
		assert.Zero(t, c.UnreadCount())
		time.Sleep(20 * time.Millisecond)
		assert.Len(t, pipe.Sent(), sent)
	})
}

func TestClient_UserSwitchIsolation(t *testing.T) {
	t.Parallel()

	pipe := transport.NewPipe()
	c := newClient(t, pipe)
	signIn(t, c, "u1")
	push(t, pipe, "n1", "2024-05-01T10:00:00Z")
	require.NoError(t, pipe.Emit(transport.EventNotificationCount, 12))
	require.Len(t, c.Notifications(), 1)

	c.Bind(session.SignedIn("u2"))
	assert.Equal(t, "u2", c.UserID())
	assert.Empty(t, c.Notifications())
	assert.Zero(t, c.UnreadCount())

	require.Eventually(t, func() bool {
		return c.Status() == connection.StatusConnected
	}, waitFor, tick)
	assert.Equal(t, []string{`"u1"`, `"u2"`}, sentEvents(pipe, transport.EventUserJoin))

	c.Bind(session.AuthState{})
	assert.Empty(t, c.UserID())
	assert.Nil(t, c.Notifications())
	assert.Equal(t, connection.StatusDisconnected, c.Status())
}

func TestClient_OfflineMutations(t *testing.T) {
	t.Parallel()

	pipe := transport.NewPipe()
	pipe.FailDials(-1)
	c := newClient(t, pipe)
	c.Bind(session.SignedIn("u1"))
	require.Eventually(t, func() bool {
		return c.Status() == connection.StatusError && pipe.Dials() == 3
	}, waitFor, tick)

	rec, inserted := c.InsertLocal(notifications.Record{
		ID:    "local-1",
		Title: notifications.LocalizedText{Primary: "Offline"},
	})
	require.True(t, inserted)
	c.MarkOneRead(rec.ID)
	c.MarkAllRead()

	assert.Zero(t, c.UnreadCount())
	assert.True(t, c.Notifications()[0].Read)
	assert.Empty(t, pipe.Sent())

	pipe.FailDials(0)
	c.Reconnect()
	require.Eventually(t, func() bool {
		return c.Status() == connection.StatusConnected
	}, waitFor, tick)
}

func TestClient_Feeds(t *testing.T) {
	t.Parallel()

	pipe := transport.NewPipe()
	c := newClient(t, pipe)
	statuses := c.SubscribeStatus(t.Context())
	changes := c.SubscribeChanges(t.Context())

	signIn(t, c, "u1")
	push(t, pipe, "n1", "2024-05-01T10:00:00Z")

	var gotStatus []connection.Status
	for len(gotStatus) < 2 {
		select {
		case msg := <-statuses.Receive(t.Context()):
			gotStatus = append(gotStatus, msg.Data)
		case <-time.After(waitFor):
			t.Fatalf("status feed stalled at %v", gotStatus)
		}
	}
	assert.Equal(t, []connection.Status{connection.StatusConnecting, connection.StatusConnected}, gotStatus)

	var gotKinds []notifications.ChangeKind
	for len(gotKinds) < 2 {
		select {
		case msg := <-changes.Receive(t.Context()):
			gotKinds = append(gotKinds, msg.Data.Kind)
		case <-time.After(waitFor):
			t.Fatalf("change feed stalled at %v", gotKinds)
		}
	}
	assert.Equal(t, []notifications.ChangeKind{notifications.ChangeSession, notifications.ChangeInserted}, gotKinds)
}

func TestClient_ChangeFeedSurvivesBurst(t *testing.T) {
	t.Parallel()

	pipe := transport.NewPipe()
	c := newClient(t, pipe)
	changes := c.SubscribeChanges(t.Context())

	signIn(t, c, "u1")
	for i := range 100 {
		push(t, pipe, fmt.Sprintf("n%03d", i), "2024-05-01T10:00:00Z")
	}
	require.Len(t, c.Notifications(), 100)

	// Drain whatever fit in the buffer.
	for drained := false; !drained; {
		select {
		case _, ok := <-changes.Receive(t.Context()):
			require.True(t, ok, "change feed closed")
		case <-time.After(50 * time.Millisecond):
			drained = true
		}
	}

	push(t, pipe, "late", "2024-05-02T10:00:00Z")
	for {
		select {
		case msg, ok := <-changes.Receive(t.Context()):
			require.True(t, ok, "change feed closed")
			if msg.Data.ID == "late" {
				return
			}
		case <-time.After(waitFor):
			t.Fatal("change after the burst not delivered")
		}
	}
}

func TestClient_RunFollowsAuthBurst(t *testing.T) {
	t.Parallel()

	pipe := transport.NewPipe()
	c := newClient(t, pipe)
	auth := session.NewMemoryAuthProvider(session.AuthState{})
	t.Cleanup(func() { _ = auth.Close() })

	done := make(chan error, 1)
	go func() { done <- c.Run(t.Context(), auth) }()

	for i := range 20 {
		auth.Login(fmt.Sprintf("u%d", i))
	}
	require.Eventually(t, func() bool { return c.UserID() == "u19" }, waitFor, tick)
	require.Eventually(t, func() bool { return c.Status() == connection.StatusConnected }, waitFor, tick)

	select {
	case err := <-done:
		t.Fatalf("run returned early: %v", err)
	default:
	}
}

func TestClient_Text(t *testing.T) {
	t.Parallel()

	c := newClient(t, transport.NewPipe())
	text := notifications.LocalizedText{Primary: "Payment received", Secondary: "تم استلام الدفعة"}

	assert.Equal(t, "Payment received", c.Text(text))
	assert.Equal(t, "تم استلام الدفعة", c.Text(text, language.Arabic))
}

func TestClient_Close(t *testing.T) {
	t.Parallel()

	pipe := transport.NewPipe()
	c := notifysync.New(pipe, transport.Endpoint{}, notifysync.WithLogger(logger.Discard()))
	signIn(t, c, "u1")
	c.MarkAllRead()

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.False(t, pipe.Live())
	assert.Equal(t, connection.StatusDisconnected, c.Status())

	c.Bind(session.SignedIn("u2"))
	assert.Empty(t, c.UserID())
}
