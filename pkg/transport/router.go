package transport

import (
	"encoding/json"
	"sync"
)

// Handler processes the payload of one inbound event.
type Handler func(payload json.RawMessage)

// Lifecycle is a connection lifecycle signal.
type Lifecycle string

const (
	LifecycleOpened  Lifecycle = "opened"
	LifecycleClosed  Lifecycle = "closed"
	LifecycleErrored Lifecycle = "errored"
)

// LifecycleHandler observes lifecycle signals. err is nil for opened.
type LifecycleHandler func(l Lifecycle, transport string, err error)

// Router maps inbound event names to handlers. Each event name has at most
// one handler; registering again replaces it. Adapters dispatch from a
// single goroutine per connection, so handlers for one connection never
// run concurrently and see events in arrival order.
type Router struct {
	mu        sync.RWMutex
	handlers  map[string]Handler
	lifecycle []LifecycleHandler
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{handlers: make(map[string]Handler)}
}

// On registers h for event. A nil handler removes the registration.
func (r *Router) On(event string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h == nil {
		delete(r.handlers, event)
		return
	}
	r.handlers[event] = h
}

// OnLifecycle registers a lifecycle observer.
func (r *Router) OnLifecycle(h LifecycleHandler) {
	if h == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lifecycle = append(r.lifecycle, h)
}

// Dispatch invokes the handler registered for event. It reports whether one was found.
func (r *Router) Dispatch(event string, payload json.RawMessage) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	h, ok := r.handlers[event]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	h(payload)
	return true
}

func (r *Router) notify(l Lifecycle, transport string, err error) {
	if r == nil {
		return
	}
	r.mu.RLock()
	observers := r.lifecycle
	r.mu.RUnlock()
	for _, h := range observers {
		h(l, transport, err)
	}
}
