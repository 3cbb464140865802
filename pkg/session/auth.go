package session

import (
	"context"
	"sync"
)

// AuthState is the authentication state of the embedding application.
type AuthState struct {
	Authenticated bool
	UserID        string
}

// Active reports whether the state identifies a signed-in user.
func (s AuthState) Active() bool {
	return s.Authenticated && s.UserID != ""
}

// SignedIn returns the state of an authenticated user.
func SignedIn(userID string) AuthState {
	return AuthState{Authenticated: true, UserID: userID}
}

// AuthProvider exposes the current authentication state and its changes.
type AuthProvider interface {
	Current() AuthState
	// Subscribe delivers state changes until ctx ends. Intermediate states
	// may be coalesced; the latest state is always delivered.
	Subscribe(ctx context.Context) <-chan AuthState
}

// MemoryAuthProvider is an AuthProvider whose state the application sets directly.
// Each subscriber holds at most one pending state, replaced by newer ones,
// so bursts of changes never block Set or end a subscription.
type MemoryAuthProvider struct {
	mu     sync.Mutex
	state  AuthState
	subs   map[chan AuthState]struct{}
	done   chan struct{}
	closed bool
}

// NewMemoryAuthProvider creates a provider holding initial.
func NewMemoryAuthProvider(initial AuthState) *MemoryAuthProvider {
	return &MemoryAuthProvider{
		state: initial,
		subs:  make(map[chan AuthState]struct{}),
		done:  make(chan struct{}),
	}
}

// Current implements AuthProvider.
func (p *MemoryAuthProvider) Current() AuthState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Login marks userID as signed in.
func (p *MemoryAuthProvider) Login(userID string) {
	p.Set(SignedIn(userID))
}

// Logout clears the signed-in user.
func (p *MemoryAuthProvider) Logout() {
	p.Set(AuthState{})
}

// Set replaces the state and notifies subscribers when it changed.
func (p *MemoryAuthProvider) Set(state AuthState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.state == state {
		return
	}
	p.state = state
	for ch := range p.subs {
		replace(ch, state)
	}
}

// Subscribe implements AuthProvider. The channel is closed when ctx ends or
// the provider is closed.
func (p *MemoryAuthProvider) Subscribe(ctx context.Context) <-chan AuthState {
	ch := make(chan AuthState, 1)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		close(ch)
		return ch
	}
	p.subs[ch] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
			p.unsubscribe(ch)
		case <-p.done:
		}
	}()
	return ch
}

// Close ends every subscription. Later changes are ignored.
func (p *MemoryAuthProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	close(p.done)
	for ch := range p.subs {
		close(ch)
	}
	clear(p.subs)
	return nil
}

func (p *MemoryAuthProvider) unsubscribe(ch chan AuthState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.subs[ch]; ok {
		delete(p.subs, ch)
		close(ch)
	}
}

// replace puts state into the single-slot ch, discarding an unread older
// state. Callers hold the provider lock, so ch has no other writer.
func replace(ch chan AuthState, state AuthState) {
	select {
	case <-ch:
	default:
	}
	ch <- state
}
