// Package retry implements the Ack/Nack subscription-context routing and
// the exponential retry processor. github.com/cenkalti/backoff/v4 is
// pulled in transitively through go.opentelemetry.io/collector's
// exporterhelper; it is promoted to a direct dependency here for the
// retry processor's backoff schedule, replacing what would otherwise be
// a hand-rolled clamp(initial*mult^n) loop.
package retry

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/otelcol-arrow-dataflow/engine/internal/node"
)

// CallFrame is one entry in the subscription-context stack attached to a
// pdata unit: the node that pushed it, plus opaque bytes it
// will use to correlate a later Ack/Nack (e.g. a slot.Key encoding).
type CallFrame struct {
	NodeID node.NodeId
	State  []byte
}

// Context is the ordered, LIFO subscription-context stack carried by a
// pdata unit across retry-capable processors.
type Context struct {
	frames []CallFrame
}

// Push adds a new frame for self, to be popped when the matching Ack/Nack
// returns.
func (c *Context) Push(selfNodeID node.NodeId, state []byte) {
	c.frames = append(c.frames, CallFrame{NodeID: selfNodeID, State: state})
}

// Pop removes and returns the top frame, or ok=false if the stack is
// empty.
func (c *Context) Pop() (CallFrame, bool) {
	if len(c.frames) == 0 {
		return CallFrame{}, false
	}
	n := len(c.frames)
	f := c.frames[n-1]
	c.frames = c.frames[:n-1]
	return f, true
}

const (
	DefaultInitialInterval = 5 * time.Second
	DefaultMaxInterval     = 30 * time.Second
	DefaultMultiplier      = 1.5
	DefaultMaxElapsedTime  = 300 * time.Second
)

// PolicyConfig configures the exponential retry processor.
type PolicyConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	MaxElapsedTime  time.Duration
}

// DefaultPolicy returns the default backoff policy.
func DefaultPolicy() PolicyConfig {
	return PolicyConfig{
		InitialInterval: DefaultInitialInterval,
		MaxInterval:     DefaultMaxInterval,
		Multiplier:      DefaultMultiplier,
		MaxElapsedTime:  DefaultMaxElapsedTime,
	}
}

func (p PolicyConfig) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.Multiplier = p.Multiplier
	b.MaxElapsedTime = p.MaxElapsedTime
	b.RandomizationFactor = 0 // deterministic clamp(initial*mult^attempt, 0, max)
	b.Reset()
	return b
}

// DelayScheduler is the pipeline-controller-provided timer wheel that the
// retry processor delegates delay to instead of sleeping in-task: After
// requests a callback once d has elapsed.
type DelayScheduler interface {
	After(ctx context.Context, d time.Duration) <-chan time.Time
}

// realScheduler is the production DelayScheduler, backed by time.After;
// a fake implementation is used in tests to avoid real sleeps.
type realScheduler struct{}

func (realScheduler) After(ctx context.Context, d time.Duration) <-chan time.Time {
	return time.After(d)
}

// RealScheduler is the default DelayScheduler.
var RealScheduler DelayScheduler = realScheduler{}

// Outcome is the result of one delivery attempt.
type Outcome int

const (
	OutcomeAck Outcome = iota
	OutcomeNack
)

// Attempt tracks one payload's retry state across its lifetime.
type Attempt[Payload any] struct {
	Payload Payload
	backoff backoff.BackOff
	elapsed time.Duration
	started time.Time
}

// Processor implements the exponential-backoff retry loop: on Nack, it
// redelivers after a scheduled delay; on exhaustion (next backoff
// returns backoff.Stop, i.e. max_elapsed_time exceeded) it forgets the
// attempt and passes the original payload to onExhaust. The processor
// itself sends no Nack and touches no subscription frame.
type Processor[Payload any] struct {
	nodeID    node.NodeId
	policy    PolicyConfig
	scheduler DelayScheduler
	deliver   func(ctx context.Context, p Payload) Outcome
	onExhaust func(ctx context.Context, p Payload)

	mu       sync.Mutex
	attempts map[string]*Attempt[Payload]
}

// NewProcessor builds a retry processor. deliver performs one delivery
// attempt and reports its outcome; onExhaust is invoked once retries are
// exhausted, with the subscription frame already popped by the caller.
func NewProcessor[Payload any](id node.NodeId, policy PolicyConfig, scheduler DelayScheduler, deliver func(context.Context, Payload) Outcome, onExhaust func(context.Context, Payload)) *Processor[Payload] {
	if scheduler == nil {
		scheduler = RealScheduler
	}
	return &Processor[Payload]{
		nodeID:    id,
		policy:    policy,
		scheduler: scheduler,
		deliver:   deliver,
		onExhaust: onExhaust,
		attempts:  map[string]*Attempt[Payload]{},
	}
}

// Submit starts (or continues retrying) delivery of payload, keyed by a
// caller-chosen correlation id (e.g. a slot.Key encoding). Blocks the
// calling goroutine only long enough to perform one attempt; subsequent
// retries are scheduled via DelayScheduler and run on their own goroutine,
// so retry load never pins the submitting task.
func (p *Processor[Payload]) Submit(ctx context.Context, correlationID string, payload Payload) {
	p.mu.Lock()
	a, ok := p.attempts[correlationID]
	if !ok {
		a = &Attempt[Payload]{Payload: payload, backoff: p.policy.newBackOff(), started: time.Now()}
		p.attempts[correlationID] = a
	}
	p.mu.Unlock()

	p.attemptOnce(ctx, correlationID, a)
}

func (p *Processor[Payload]) attemptOnce(ctx context.Context, correlationID string, a *Attempt[Payload]) {
	outcome := p.deliver(ctx, a.Payload)
	if outcome == OutcomeAck {
		p.mu.Lock()
		delete(p.attempts, correlationID)
		p.mu.Unlock()
		return
	}

	next := a.backoff.NextBackOff()
	if next == backoff.Stop {
		p.mu.Lock()
		delete(p.attempts, correlationID)
		p.mu.Unlock()
		p.onExhaust(ctx, a.Payload)
		return
	}

	go func() {
		select {
		case <-p.scheduler.After(ctx, next):
			p.attemptOnce(ctx, correlationID, a)
		case <-ctx.Done():
			p.mu.Lock()
			delete(p.attempts, correlationID)
			p.mu.Unlock()
		}
	}()
}

// InFlight reports how many correlation ids are currently mid-retry,
// useful for tests and observability.
func (p *Processor[Payload]) InFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.attempts)
}
