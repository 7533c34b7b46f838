package retry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeScheduler fires immediately, recording how many delays were
// requested so tests can assert retry counts without real sleeps.
type fakeScheduler struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (f *fakeScheduler) After(ctx context.Context, d time.Duration) <-chan time.Time {
	f.mu.Lock()
	f.delays = append(f.delays, d)
	f.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func (f *fakeScheduler) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.delays)
}

func TestScenarioS5RetryToExhaustion(t *testing.T) {
	sched := &fakeScheduler{}
	policy := PolicyConfig{
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     150 * time.Millisecond,
		Multiplier:      2,
		MaxElapsedTime:  300 * time.Millisecond,
	}

	var exhausted sync.WaitGroup
	exhausted.Add(1)
	var finalPayload string

	var deliverCount int
	var mu sync.Mutex
	p := NewProcessor[string]("retry-node", policy, sched,
		func(ctx context.Context, payload string) Outcome {
			mu.Lock()
			deliverCount++
			mu.Unlock()
			return OutcomeNack // exporter always Nacks
		},
		func(ctx context.Context, payload string) {
			finalPayload = payload
			exhausted.Done()
		},
	)

	p.Submit(context.Background(), "corr-1", "payload-A")

	done := make(chan struct{})
	go func() {
		exhausted.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("retry never exhausted")
	}

	assert.Equal(t, "payload-A", finalPayload)
	mu.Lock()
	count := deliverCount
	mu.Unlock()
	assert.GreaterOrEqual(t, count, 3, "expected at least 3 attempts before exhaustion")
	assert.Equal(t, 0, p.InFlight())
}

func TestAckClearsAttempt(t *testing.T) {
	sched := &fakeScheduler{}
	p := NewProcessor[int]("n", DefaultPolicy(), sched,
		func(ctx context.Context, payload int) Outcome { return OutcomeAck },
		func(ctx context.Context, payload int) { t.Fatal("should not exhaust") },
	)
	p.Submit(context.Background(), "k", 1)
	require.Equal(t, 0, p.InFlight())
}

func TestContextStackLIFO(t *testing.T) {
	var c Context
	c.Push("a", []byte("1"))
	c.Push("b", []byte("2"))

	top, ok := c.Pop()
	require.True(t, ok)
	assert.Equal(t, "b", string(top.NodeID))

	top, ok = c.Pop()
	require.True(t, ok)
	assert.Equal(t, "a", string(top.NodeID))

	_, ok = c.Pop()
	assert.False(t, ok)
}
