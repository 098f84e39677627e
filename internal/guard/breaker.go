package guard

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// BreakerState is the lifecycle state of one circuit breaker.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

// BreakerSnapshot is a read-only view of one breaker for operator stats.
type BreakerSnapshot struct {
	Key          string       `json:"key"`
	State        BreakerState `json:"state"`
	FailureCount int          `json:"failure_count"`
	LastFailure  *time.Time   `json:"last_failure,omitempty"`
	QueuedTasks  int          `json:"queued_tasks"`
}

// Task is a unit of deferred work queued while a breaker is open and
// replayed best-effort when it closes. Queued tasks are held only in
// memory; they do not survive a restart.
type Task func()

// TransitionFunc observes breaker state changes (for audit and metrics).
type TransitionFunc func(key string, from, to BreakerState)

// breaker is the per-key failure tracker. All reads and writes for one
// key are serialized by its mutex; breakers for different keys operate
// independently.
type breaker struct {
	mu            sync.Mutex
	state         BreakerState
	failureCount  int
	lastFailure   time.Time
	trialInFlight bool
	queue         []Task
}

// BreakerSet manages one circuit breaker per action key.
//
// closed: calls pass; threshold consecutive failures open the breaker.
// open: calls are rejected and may be queued; after cooldown the next
// check moves to half_open (lazy, on the read path — no poller).
// half_open: exactly one trial call passes; success closes the breaker
// and replays the queue, failure re-opens it.
type BreakerSet struct {
	threshold int
	cooldown  time.Duration
	queueCap  int

	mu       sync.Mutex
	breakers map[string]*breaker

	onTransition TransitionFunc
	now          func() time.Time
}

// NewBreakerSet creates a breaker set. threshold is the number of
// consecutive failures that opens a breaker; cooldown is how long an open
// breaker waits before permitting a half-open trial; queueCap bounds the
// best-effort deferred-task queue per key.
func NewBreakerSet(threshold int, cooldown time.Duration, queueCap int) *BreakerSet {
	return &BreakerSet{
		threshold: threshold,
		cooldown:  cooldown,
		queueCap:  queueCap,
		breakers:  make(map[string]*breaker),
		now:       time.Now,
	}
}

// OnTransition registers an observer for state changes. Must be called
// before the set is shared between goroutines.
func (s *BreakerSet) OnTransition(fn TransitionFunc) {
	s.onTransition = fn
}

// Allow reports whether a call for key may proceed right now. An open
// breaker whose cooldown has elapsed moves to half_open and admits exactly
// one trial call; concurrent callers during the trial are rejected.
func (s *BreakerSet) Allow(key string) bool {
	b := s.breakerFor(key)

	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if s.now().Sub(b.lastFailure) < s.cooldown {
			return false
		}
		s.transition(key, b, BreakerHalfOpen)
		b.trialInFlight = true
		return true
	case BreakerHalfOpen:
		if b.trialInFlight {
			return false
		}
		b.trialInFlight = true
		return true
	default:
		return false
	}
}

// Enqueue defers a task for key while its breaker is open. Bounded and
// best-effort: returns false when the queue is full or the breaker is not
// open.
func (s *BreakerSet) Enqueue(key string, task Task) bool {
	b := s.breakerFor(key)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != BreakerOpen || len(b.queue) >= s.queueCap {
		return false
	}
	b.queue = append(b.queue, task)
	return true
}

// RecordSuccess marks a successful execution for key. In half_open this
// closes the breaker, resets the failure count, and replays queued tasks
// in FIFO order on a separate goroutine.
func (s *BreakerSet) RecordSuccess(key string) {
	b := s.breakerFor(key)

	b.mu.Lock()
	var replay []Task
	switch b.state {
	case BreakerHalfOpen:
		s.transition(key, b, BreakerClosed)
		b.failureCount = 0
		b.trialInFlight = false
		replay = b.queue
		b.queue = nil
	case BreakerClosed:
		b.failureCount = 0
	case BreakerOpen:
		// A success while open means the call was admitted before the
		// breaker tripped; it does not close the breaker.
	}
	b.mu.Unlock()

	if len(replay) > 0 {
		go func() {
			log.Debug().Str("key", key).Int("tasks", len(replay)).Msg("guard: replaying queued tasks")
			for _, task := range replay {
				task()
			}
		}()
	}
}

// RecordFailure marks a failed execution for key. Only execution failures
// count; rejections from rate limiting or validation never reach here.
func (s *BreakerSet) RecordFailure(key string) {
	b := s.breakerFor(key)

	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerHalfOpen:
		// Trial failed: back to open with a fresh cooldown.
		s.transition(key, b, BreakerOpen)
		b.trialInFlight = false
		b.lastFailure = s.now()
	case BreakerClosed:
		b.failureCount++
		b.lastFailure = s.now()
		if b.failureCount >= s.threshold {
			s.transition(key, b, BreakerOpen)
		}
	case BreakerOpen:
		b.lastFailure = s.now()
	}
}

// Reset is the manual operator override: forces the breaker for key to
// closed and clears its failure count. Queued tasks are kept and replayed.
func (s *BreakerSet) Reset(key string) {
	b := s.breakerFor(key)

	b.mu.Lock()
	var replay []Task
	if b.state != BreakerClosed {
		s.transition(key, b, BreakerClosed)
	}
	b.failureCount = 0
	b.trialInFlight = false
	replay = b.queue
	b.queue = nil
	b.mu.Unlock()

	if len(replay) > 0 {
		go func() {
			for _, task := range replay {
				task()
			}
		}()
	}
}

// Snapshot returns a stable view of every breaker in the set.
func (s *BreakerSet) Snapshot() []BreakerSnapshot {
	s.mu.Lock()
	keys := make([]string, 0, len(s.breakers))
	for k := range s.breakers {
		keys = append(keys, k)
	}
	s.mu.Unlock()

	snaps := make([]BreakerSnapshot, 0, len(keys))
	for _, k := range keys {
		b := s.breakerFor(k)
		b.mu.Lock()
		snap := BreakerSnapshot{
			Key:          k,
			State:        b.state,
			FailureCount: b.failureCount,
			QueuedTasks:  len(b.queue),
		}
		if !b.lastFailure.IsZero() {
			t := b.lastFailure
			snap.LastFailure = &t
		}
		b.mu.Unlock()
		snaps = append(snaps, snap)
	}
	return snaps
}

// State returns the current state for key without admitting anything.
func (s *BreakerSet) State(key string) BreakerState {
	b := s.breakerFor(key)

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (s *BreakerSet) breakerFor(key string) *breaker {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.breakers[key]
	if !ok {
		b = &breaker{state: BreakerClosed}
		s.breakers[key] = b
	}
	return b
}

// transition mutates b.state and notifies the observer. Caller holds b.mu.
func (s *BreakerSet) transition(key string, b *breaker, to BreakerState) {
	from := b.state
	b.state = to
	if s.onTransition != nil {
		s.onTransition(key, from, to)
	}
}
