// Package session binds the notification state to the signed-in user.
//
// A Binder watches an AuthProvider. When a user signs in it creates an empty
// notifications.Store and a connection.Manager for that user; when the user
// signs out or another user signs in, the previous binding is closed and
// discarded before the next one is published, so Current never exposes
// another user's notifications.
//
//	auth := session.NewMemoryAuthProvider(session.AuthState{})
//	binder := session.NewBinder(dialer, endpoint, session.WithLogger(log))
//	go binder.Run(ctx, auth)
//
//	auth.Login("user-42")
//
// Inbound events are applied to the binding's store; malformed payloads are
// logged and dropped.
package session
