package executor_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/aegis/internal/classify"
	"github.com/gosuda/aegis/internal/domain"
	"github.com/gosuda/aegis/internal/executor"
	"github.com/gosuda/aegis/internal/guard"
	"github.com/gosuda/aegis/internal/metrics"
)

// ---------------------------------------------------------------------------
// Test doubles
// ---------------------------------------------------------------------------

// fakeRunner counts spawns and returns a scripted outcome.
type fakeRunner struct {
	mu     sync.Mutex
	spawns int

	stdout   string
	stderr   string
	exitCode *int
	err      error
	block    bool // block until the context deadline fires
}

func (r *fakeRunner) Run(ctx context.Context, _ string) (string, string, *int, error) {
	r.mu.Lock()
	r.spawns++
	r.mu.Unlock()

	if r.block {
		<-ctx.Done()
		return "", "", nil, ctx.Err()
	}
	return r.stdout, r.stderr, r.exitCode, r.err
}

func (r *fakeRunner) spawnCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.spawns
}

// memAudit is an in-memory append-only audit repository.
type memAudit struct {
	mu      sync.Mutex
	entries []*domain.AuditEntry
}

func (a *memAudit) Record(_ context.Context, entry *domain.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return nil
}

func (a *memAudit) List(_ context.Context, _ domain.AuditFilter) ([]*domain.AuditEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*domain.AuditEntry(nil), a.entries...), nil
}

func (a *memAudit) byType(et domain.AuditEventType) []*domain.AuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []*domain.AuditEntry
	for _, e := range a.entries {
		if e.EventType == et {
			out = append(out, e)
		}
	}
	return out
}

func intPtr(n int) *int { return &n }

func newTestExecutor(runner executor.Runner, audit domain.AuditRepository, rateMax int) *executor.SafeExecutor {
	return executor.New(
		classify.Default(),
		guard.NewRateLimiter(60*time.Second, rateMax),
		guard.NewBreakerSet(2, 60*time.Second, 4),
		runner,
		audit,
		metrics.New(),
		5*time.Second,
	)
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestExecute_ForbiddenNeverSpawns(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{exitCode: intPtr(0)}
	audit := &memAudit{}
	e := newTestExecutor(runner, audit, 10)

	res := e.Execute(context.Background(), executor.Request{
		Command: "rm -rf /",
		Caller:  "agent-1",
	})

	assert.False(t, res.Success)
	assert.Equal(t, domain.ModeForbidden, res.Mode)
	assert.Equal(t, domain.RiskForbidden, res.RiskLevel)
	assert.Equal(t, 0, runner.spawnCount(), "forbidden commands must never spawn")
	require.Len(t, audit.byType(domain.AuditClassified), 1, "exactly one audit entry")
}

func TestExecute_ApprovalRequiredWithoutContext(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{exitCode: intPtr(0)}
	e := newTestExecutor(runner, &memAudit{}, 10)

	res := e.Execute(context.Background(), executor.Request{
		Name:    "restart-nginx",
		Command: "systemctl restart nginx",
		Caller:  "agent-1",
	})

	assert.False(t, res.Success)
	assert.Equal(t, domain.ModeApprovalRequired, res.Mode)
	assert.Equal(t, domain.RiskMedium, res.RiskLevel)
	assert.Equal(t, 0, runner.spawnCount())
}

func TestExecute_ApprovedCommandRuns(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{stdout: "restarted\n", exitCode: intPtr(0)}
	audit := &memAudit{}
	e := newTestExecutor(runner, audit, 10)

	res := e.Execute(context.Background(), executor.Request{
		Name:     "restart-nginx",
		Command:  "systemctl restart nginx",
		Caller:   "operator",
		Approved: true,
	})

	assert.True(t, res.Success)
	assert.Equal(t, domain.ModeLive, res.Mode)
	assert.Equal(t, "restarted\n", res.Stdout)
	require.NotNil(t, res.ExitCode)
	assert.Equal(t, 0, *res.ExitCode)
	assert.Equal(t, 1, runner.spawnCount())
	assert.Len(t, audit.byType(domain.AuditExecuted), 1)
}

func TestExecute_RateLimited(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{exitCode: intPtr(0)}
	audit := &memAudit{}
	e := newTestExecutor(runner, audit, 3)

	success, limited := 0, 0
	for range 5 {
		res := e.Execute(context.Background(), executor.Request{
			Command: "uptime",
			Caller:  "agent-1",
		})
		switch res.Mode {
		case domain.ModeLive:
			success++
		case domain.ModeRateLimited:
			limited++
			assert.Contains(t, res.Detail, "retry after")
		}
	}

	assert.Equal(t, 3, success)
	assert.Equal(t, 2, limited)
	assert.Equal(t, 3, runner.spawnCount(), "rejected calls must not spawn")
	assert.Len(t, audit.byType(domain.AuditRateLimited), 2)
}

func TestExecute_CircuitOpensAndRejects(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{stderr: "boom", exitCode: intPtr(1)}
	e := newTestExecutor(runner, &memAudit{}, 100)

	// Threshold is 2: two failures open the breaker.
	for range 2 {
		res := e.Execute(context.Background(), executor.Request{
			Name:    "flaky-check",
			Command: "uptime",
			Caller:  "scheduler",
		})
		assert.False(t, res.Success)
		assert.Equal(t, domain.ModeLive, res.Mode)
	}

	res := e.Execute(context.Background(), executor.Request{
		Name:    "flaky-check",
		Command: "uptime",
		Caller:  "scheduler",
	})
	assert.Equal(t, domain.ModeCircuitOpen, res.Mode)
	assert.Equal(t, 2, runner.spawnCount(), "open breaker rejects without spawning")
	assert.Equal(t, guard.BreakerOpen, e.Breakers().State("flaky-check"))
}

// TestExecute_RateLimitRejectionIsNotABreakerFailure verifies the failure
// semantics: admission rejections never count toward the breaker threshold.
func TestExecute_RateLimitRejectionIsNotABreakerFailure(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{exitCode: intPtr(0)}
	e := newTestExecutor(runner, &memAudit{}, 1)

	for range 5 {
		e.Execute(context.Background(), executor.Request{
			Name:    "uptime-check",
			Command: "uptime",
			Caller:  "agent-1",
		})
	}

	assert.Equal(t, guard.BreakerClosed, e.Breakers().State("uptime-check"))
}

func TestExecute_TimeoutKillsProcess(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{block: true}
	e := newTestExecutor(runner, &memAudit{}, 10)

	start := time.Now()
	res := e.Execute(context.Background(), executor.Request{
		Command: "uptime",
		Caller:  "agent-1",
		Timeout: 50 * time.Millisecond,
	})

	assert.False(t, res.Success)
	assert.Equal(t, domain.ModeLive, res.Mode)
	assert.Nil(t, res.ExitCode, "timed-out run has no exit code")
	assert.Contains(t, res.Detail, "deadline")
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestExecute_SpawnErrorIsNormalized(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{err: errors.New("no such shell")}
	e := newTestExecutor(runner, &memAudit{}, 10)

	res := e.Execute(context.Background(), executor.Request{
		Command: "uptime",
		Caller:  "agent-1",
	})

	assert.False(t, res.Success)
	assert.Nil(t, res.ExitCode)
	assert.Contains(t, res.Detail, "no such shell")
}

func TestDryRun_NeverSpawns(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{exitCode: intPtr(0)}
	audit := &memAudit{}
	e := newTestExecutor(runner, audit, 10)

	tests := []struct {
		name        string
		req         executor.Request
		wantSuccess bool
	}{
		{"safe", executor.Request{Command: "uptime", Caller: "a"}, true},
		{"forbidden", executor.Request{Command: "rm -rf /", Caller: "a"}, false},
		{"needs_approval", executor.Request{Command: "systemctl restart nginx", Caller: "a"}, false},
		{"approved", executor.Request{Command: "systemctl restart nginx", Caller: "a", Approved: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.DryRun(context.Background(), tt.req)
			assert.Equal(t, domain.ModeDryRun, res.Mode)
			assert.Equal(t, tt.wantSuccess, res.Success)
		})
	}

	assert.Equal(t, 0, runner.spawnCount(), "dry run never spawns")
	assert.Len(t, audit.byType(domain.AuditClassified), 4)
}

// ---------------------------------------------------------------------------
// LocalRunner — real process boundary.
// ---------------------------------------------------------------------------

func TestLocalRunner_CapturesOutputAndExitCode(t *testing.T) {
	t.Parallel()

	r := executor.NewLocalRunner()

	stdout, stderr, code, err := r.Run(context.Background(), "echo out; echo err 1>&2")
	require.NoError(t, err)
	require.NotNil(t, code)
	assert.Equal(t, 0, *code)
	assert.Equal(t, "out\n", stdout)
	assert.Equal(t, "err\n", stderr)
}

func TestLocalRunner_NonzeroExit(t *testing.T) {
	t.Parallel()

	r := executor.NewLocalRunner()

	_, _, code, err := r.Run(context.Background(), "exit 3")
	require.NoError(t, err, "nonzero exit is not a spawn error")
	require.NotNil(t, code)
	assert.Equal(t, 3, *code)
}

func TestLocalRunner_DeadlineKills(t *testing.T) {
	t.Parallel()

	r := executor.NewLocalRunner()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, _, code, err := r.Run(ctx, "sleep 10")
	require.Error(t, err)
	assert.Nil(t, code)
	assert.Less(t, time.Since(start), 5*time.Second)
}
