package transport

import (
	"context"
	"errors"
	"sync"
)

const transportPipe = "pipe"

// Pipe is an in-memory Dialer. The test or embedding code plays the server:
// Emit pushes inbound events, Sent returns what clients sent, Drop ends the
// live connection from the server side.
type Pipe struct {
	mu        sync.Mutex
	emitMu    sync.Mutex
	live      *pipeConn
	dials     int
	failDials int
	dialHook  func(ctx context.Context) error
	sent      []Envelope
}

// NewPipe creates a pipe with no live connection.
func NewPipe() *Pipe {
	return &Pipe{}
}

// Dial implements Dialer. A previous live connection is left to its owner.
func (p *Pipe) Dial(ctx context.Context, _ Endpoint, r *Router) (Conn, error) {
	p.mu.Lock()
	p.dials++
	hook := p.dialHook
	fail := p.failDials != 0
	if p.failDials > 0 {
		p.failDials--
	}
	p.mu.Unlock()

	if hook != nil {
		if err := hook(ctx); err != nil {
			return nil, errors.Join(ErrConnect, err)
		}
	}
	if fail {
		return nil, errors.Join(ErrConnect, errors.New("pipe: dial refused"))
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Join(ErrConnect, err)
	}

	c := &pipeConn{connState: newConnState(), pipe: p, router: r}
	p.mu.Lock()
	p.live = c
	p.mu.Unlock()
	r.notify(LifecycleOpened, transportPipe, nil)
	return c, nil
}

// FailDials makes the next n dials fail. A negative n fails every dial until
// FailDials(0) is called.
func (p *Pipe) FailDials(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failDials = n
}

// SetDialHook installs a function run at the start of every dial. It may
// block; a non-nil error fails the dial.
func (p *Pipe) SetDialHook(fn func(ctx context.Context) error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dialHook = fn
}

// Dials returns the number of dial attempts so far.
func (p *Pipe) Dials() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dials
}

// Live reports whether a connection is open.
func (p *Pipe) Live() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live != nil && !p.live.closed()
}

// Emit delivers an inbound event to the live connection. Handlers run
// synchronously, in Emit call order.
func (p *Pipe) Emit(event string, payload any) error {
	env, err := NewEnvelope(event, payload)
	if err != nil {
		return err
	}
	p.emitMu.Lock()
	defer p.emitMu.Unlock()

	p.mu.Lock()
	c := p.live
	p.mu.Unlock()
	if c == nil || c.closed() {
		return ErrClosed
	}
	c.router.Dispatch(env.Event, env.Data)
	return nil
}

// Sent returns a copy of every envelope clients sent through the pipe.
func (p *Pipe) Sent() []Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Envelope, len(p.sent))
	copy(out, p.sent)
	return out
}

// Drop ends the live connection from the server side. A nil err reports a
// clean close (ErrPeerClosed).
func (p *Pipe) Drop(err error) {
	if err == nil {
		err = ErrPeerClosed
	}
	p.mu.Lock()
	c := p.live
	p.live = nil
	p.mu.Unlock()
	if c != nil && c.finish(err) {
		c.router.notify(lifecycleOf(err), transportPipe, err)
	}
}

type pipeConn struct {
	*connState
	pipe   *Pipe
	router *Router
}

func (c *pipeConn) Transport() string { return transportPipe }

func (c *pipeConn) Send(_ context.Context, event string, payload any) error {
	if c.closed() {
		return ErrClosed
	}
	env, err := NewEnvelope(event, payload)
	if err != nil {
		return err
	}
	c.pipe.mu.Lock()
	c.pipe.sent = append(c.pipe.sent, env)
	c.pipe.mu.Unlock()
	return nil
}

func (c *pipeConn) Close() error {
	if !c.finish(nil) {
		return nil
	}
	c.pipe.mu.Lock()
	if c.pipe.live == c {
		c.pipe.live = nil
	}
	c.pipe.mu.Unlock()
	c.router.notify(LifecycleClosed, transportPipe, nil)
	return nil
}
