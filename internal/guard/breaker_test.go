package guard

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBreakerSet(clock *fakeClock) *BreakerSet {
	s := NewBreakerSet(3, 60*time.Second, 4)
	s.now = clock.Now
	return s
}

func TestBreakerSet_OpensAfterThreshold(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	s := newTestBreakerSet(clock)

	for range 2 {
		require.True(t, s.Allow("restart-nginx"))
		s.RecordFailure("restart-nginx")
	}
	assert.Equal(t, BreakerClosed, s.State("restart-nginx"), "below threshold stays closed")

	require.True(t, s.Allow("restart-nginx"))
	s.RecordFailure("restart-nginx")

	assert.Equal(t, BreakerOpen, s.State("restart-nginx"))
	assert.False(t, s.Allow("restart-nginx"), "open breaker rejects immediately")
}

func TestBreakerSet_SuccessResetsConsecutiveCount(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	s := newTestBreakerSet(clock)

	s.RecordFailure("k")
	s.RecordFailure("k")
	s.RecordSuccess("k") // breaks the consecutive streak
	s.RecordFailure("k")
	s.RecordFailure("k")

	assert.Equal(t, BreakerClosed, s.State("k"))
}

func TestBreakerSet_HalfOpenSingleTrial(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	s := newTestBreakerSet(clock)

	for range 3 {
		s.RecordFailure("k")
	}
	require.Equal(t, BreakerOpen, s.State("k"))
	require.False(t, s.Allow("k"))

	// Cooldown elapses: exactly one trial call is permitted.
	clock.Advance(61 * time.Second)
	assert.True(t, s.Allow("k"))
	assert.Equal(t, BreakerHalfOpen, s.State("k"))
	assert.False(t, s.Allow("k"), "second caller during the trial is rejected")

	// Trial success closes the breaker and resets the count.
	s.RecordSuccess("k")
	assert.Equal(t, BreakerClosed, s.State("k"))
	assert.True(t, s.Allow("k"))

	snaps := s.Snapshot()
	require.Len(t, snaps, 1)
	assert.Equal(t, 0, snaps[0].FailureCount)
}

func TestBreakerSet_TrialFailureReopens(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	s := newTestBreakerSet(clock)

	for range 3 {
		s.RecordFailure("k")
	}
	clock.Advance(61 * time.Second)
	require.True(t, s.Allow("k"))

	s.RecordFailure("k")
	assert.Equal(t, BreakerOpen, s.State("k"))
	assert.False(t, s.Allow("k"), "fresh cooldown after failed trial")

	// The cooldown restarts from the trial failure.
	clock.Advance(59 * time.Second)
	assert.False(t, s.Allow("k"))
	clock.Advance(2 * time.Second)
	assert.True(t, s.Allow("k"))
}

func TestBreakerSet_QueueBoundedAndReplayedFIFO(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	s := newTestBreakerSet(clock)

	assert.False(t, s.Enqueue("k", func() {}), "closed breaker does not queue")

	for range 3 {
		s.RecordFailure("k")
	}

	var mu sync.Mutex
	var order []int
	done := make(chan struct{})

	for i := range 4 {
		ok := s.Enqueue("k", func() {
			mu.Lock()
			order = append(order, i)
			if len(order) == 4 {
				close(done)
			}
			mu.Unlock()
		})
		assert.True(t, ok)
	}
	assert.False(t, s.Enqueue("k", func() {}), "queue is bounded")

	// Close via successful half-open trial; queue replays in FIFO order.
	clock.Advance(61 * time.Second)
	require.True(t, s.Allow("k"))
	s.RecordSuccess("k")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("queued tasks were not replayed")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 3}, order)
}

func TestBreakerSet_Reset(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	s := newTestBreakerSet(clock)

	for range 3 {
		s.RecordFailure("k")
	}
	require.Equal(t, BreakerOpen, s.State("k"))

	s.Reset("k")
	assert.Equal(t, BreakerClosed, s.State("k"))
	assert.True(t, s.Allow("k"))

	snaps := s.Snapshot()
	require.Len(t, snaps, 1)
	assert.Equal(t, 0, snaps[0].FailureCount)
}

func TestBreakerSet_KeysAreIndependent(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	s := newTestBreakerSet(clock)

	for range 3 {
		s.RecordFailure("a")
	}
	assert.Equal(t, BreakerOpen, s.State("a"))
	assert.True(t, s.Allow("b"), "breaker b is unaffected by a's failures")
}

func TestBreakerSet_TransitionObserver(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	s := newTestBreakerSet(clock)

	type hop struct{ from, to BreakerState }
	var mu sync.Mutex
	var hops []hop
	s.OnTransition(func(_ string, from, to BreakerState) {
		mu.Lock()
		hops = append(hops, hop{from, to})
		mu.Unlock()
	})

	for range 3 {
		s.RecordFailure("k")
	}
	clock.Advance(61 * time.Second)
	require.True(t, s.Allow("k"))
	s.RecordSuccess("k")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []hop{
		{BreakerClosed, BreakerOpen},
		{BreakerOpen, BreakerHalfOpen},
		{BreakerHalfOpen, BreakerClosed},
	}, hops)
}

// TestBreakerSet_ConcurrentHalfOpen hammers the cooldown edge: exactly one
// goroutine may win the half-open trial.
func TestBreakerSet_ConcurrentHalfOpen(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	s := newTestBreakerSet(clock)

	for range 3 {
		s.RecordFailure("k")
	}
	clock.Advance(61 * time.Second)

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Allow("k") {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
}
