// Package chanpipe implements the bounded MPSC channel primitive used as
// the message-passing substrate between pipeline nodes.
//
// Two flavors are provided with an identical Sender/Receiver contract:
// Local, a single-goroutine-owned channel for nodes pinned to one core,
// and Shared, the same shape with an optional weighted semaphore capping
// how many goroutines may be inside Send at once. Both satisfy Sender[T]/Receiver[T] so callers (notably
// internal/msgchannel) are flavor-agnostic.
package chanpipe

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// ErrClosed is returned by Send/Recv once the channel has been closed.
var ErrClosed = errors.New("chanpipe: closed")

// ClosedError carries the unsent message back to the caller on Send.
type ClosedError[T any] struct {
	Msg T
}

func (e *ClosedError[T]) Error() string { return ErrClosed.Error() }
func (e *ClosedError[T]) Unwrap() error { return ErrClosed }

// Sender is the send half of a bounded channel.
type Sender[T any] interface {
	// Send blocks until capacity is available or ctx is done. On a
	// closed channel it returns *ClosedError[T] carrying msg back.
	Send(ctx context.Context, msg T) error
	// Clone returns an additional owning handle to the same channel;
	// the underlying channel only closes once every clone is closed.
	Clone() Sender[T]
	// Close releases this handle; the last handle closed closes the
	// channel for receivers.
	Close()
}

// Receiver is the receive half of a bounded channel.
type Receiver[T any] interface {
	// Recv blocks until an item is available, ctx is done, or the
	// channel is closed (ok=false).
	Recv(ctx context.Context) (msg T, ok bool)
}

// Local is a single-threaded (!Send in the source model) bounded channel.
// Go has no type-level send-ability distinction; Local simply documents
// the intended usage (single producer-set, single consumer goroutine) and
// is the cheap path with no semaphore overhead.
type Local[T any] struct {
	ch       chan T
	refs     *int64
	closedCh chan struct{}
	once     *sync.Once
}

// NewLocal creates a Local channel of the given capacity and returns its
// initial sender and receiver.
func NewLocal[T any](capacity int) (Sender[T], Receiver[T]) {
	l := &Local[T]{
		ch:       make(chan T, capacity),
		refs:     new(int64),
		closedCh: make(chan struct{}),
		once:     &sync.Once{},
	}
	atomic.StoreInt64(l.refs, 1)
	return l, l
}

func (l *Local[T]) Send(ctx context.Context, msg T) error {
	// Checked first: Close also closes l.ch, and a select that picked the
	// send case on a closed channel would panic.
	select {
	case <-l.closedCh:
		return &ClosedError[T]{Msg: msg}
	default:
	}
	select {
	case l.ch <- msg:
		return nil
	case <-l.closedCh:
		return &ClosedError[T]{Msg: msg}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Local[T]) Recv(ctx context.Context) (T, bool) {
	select {
	case msg, ok := <-l.ch:
		if !ok {
			var zero T
			return zero, false
		}
		return msg, true
	case <-ctx.Done():
		var zero T
		return zero, false
	}
}

func (l *Local[T]) Clone() Sender[T] {
	atomic.AddInt64(l.refs, 1)
	return l
}

func (l *Local[T]) Close() {
	if atomic.AddInt64(l.refs, -1) == 0 {
		l.once.Do(func() {
			close(l.closedCh)
			close(l.ch)
		})
	}
}

// Shared is the cross-goroutine (Send+Sync in the source model) flavor,
// used by nodes whose implementation requires it (e.g. a gRPC server
// fanning requests across its own goroutine pool). It wraps the same
// channel shape as Local plus a weighted semaphore bounding the number of
// concurrent in-flight sends, matching the admission-control idiom seen
// in concurrentbatchprocessor (sem *semaphore.Weighted).
type Shared[T any] struct {
	*Local[T]
	sem *semaphore.Weighted
}

// NewShared creates a Shared channel of the given capacity. maxConcurrent
// bounds how many goroutines may be blocked inside Send at once; 0 means
// unbounded (capacity alone provides backpressure).
func NewShared[T any](capacity int, maxConcurrent int64) (Sender[T], Receiver[T]) {
	s, r := NewLocal[T](capacity)
	local := s.(*Local[T])
	var sem *semaphore.Weighted
	if maxConcurrent > 0 {
		sem = semaphore.NewWeighted(maxConcurrent)
	}
	sh := &Shared[T]{Local: local, sem: sem}
	_ = r
	return sh, sh
}

func (s *Shared[T]) Send(ctx context.Context, msg T) error {
	if s.sem != nil {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			return err
		}
		defer s.sem.Release(1)
	}
	return s.Local.Send(ctx, msg)
}

func (s *Shared[T]) Clone() Sender[T] {
	s.Local.Clone()
	return s
}
