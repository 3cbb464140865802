// Package broadcast provides typed one-to-many fan-out with non-blocking
// delivery. It backs the status and inbox change feeds.
//
//	b := broadcast.NewMemoryBroadcaster[string](8)
//	defer b.Close()
//
//	sub := b.Subscribe(ctx)
//	_ = b.Broadcast(ctx, broadcast.Message[string]{Data: "hello"})
//	msg := <-sub.Receive(ctx)
//
// A subscriber whose buffer is full misses the message rather than blocking
// the broadcaster, and keeps receiving later ones. Subscriptions end when
// their context is cancelled, the subscriber is closed or the broadcaster
// is closed.
package broadcast
