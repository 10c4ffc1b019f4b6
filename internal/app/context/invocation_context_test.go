package context

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/process-engine/internal/app/trace"
	"github.com/jsamuelsen/process-engine/internal/domain"
	"github.com/jsamuelsen/process-engine/internal/mocks"
	"github.com/jsamuelsen/process-engine/internal/platform/logging"
	"github.com/jsamuelsen/process-engine/internal/ports"
)

type testExecution struct {
	id       string
	activity string
	ended    bool
}

func (e *testExecution) ID() string                  { return e.id }
func (e *testExecution) ProcessInstanceID() string   { return e.id }
func (e *testExecution) ProcessDefinitionID() string { return "invoice:1" }
func (e *testExecution) DeploymentID() string        { return "dep-1" }
func (e *testExecution) BusinessKey() string         { return "" }
func (e *testExecution) TenantID() string            { return "" }
func (e *testExecution) ActivityID() string          { return e.activity }
func (e *testExecution) ActivityName() string        { return "" }
func (e *testExecution) IsEnded() bool               { return e.ended }
func (e *testExecution) IsCanceled() bool            { return false }
func (e *testExecution) String() string              { return "Execution[" + e.id + "]" }

type testOp struct {
	name  string
	async bool
	calls *[]string
	run   func(ctx context.Context, execution ports.Execution) error
}

func (o *testOp) Name() string         { return o.name }
func (o *testOp) IsAsyncCapable() bool { return o.async }

func (o *testOp) Execute(ctx context.Context, execution ports.Execution) error {
	*o.calls = append(*o.calls, o.name)
	if o.run != nil {
		return o.run(ctx, execution)
	}

	return nil
}

type conditionalOp struct {
	testOp
}

func (o *conditionalOp) CanExecute(execution ports.Execution) bool {
	return !execution.IsEnded()
}

type spyObserver struct {
	invoked  []string
	drains   []int
	switches []string
	recorded int
	masked   int
}

func (s *spyObserver) OperationInvoked(op string, async bool) {
	if async {
		op += "(async)"
	}

	s.invoked = append(s.invoked, op)
}

func (s *spyObserver) DrainCompleted(n int)       { s.drains = append(s.drains, n) }
func (s *spyObserver) ContextSwitched(app string) { s.switches = append(s.switches, app) }
func (s *spyObserver) FailureRecorded(masked bool) {
	if masked {
		s.masked++
		return
	}

	s.recorded++
}

type harness struct {
	ic       *InvocationContext
	ctx      context.Context
	logs     *bytes.Buffer
	mdc      *logging.MDC
	observer *spyObserver
	calls    []string
}

func newHarness(t *testing.T, mutate func(*Config)) *harness {
	t.Helper()

	h := &harness{
		logs:     &bytes.Buffer{},
		mdc:      logging.NewMDC(),
		observer: &spyObserver{},
	}

	logger := slog.New(logging.NewMDCHandler(
		slog.NewJSONHandler(h.logs, &slog.HandlerOptions{Level: logging.LevelTrace}),
	))

	cfg := Config{
		Command:     "TestCommand",
		Logger:      logger,
		Diagnostics: h.mdc,
		Observer:    h.observer,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	h.ic = New(cfg)
	h.ctx = WithContext(logging.WithMDC(context.Background(), h.mdc), h.ic)

	return h
}

func (h *harness) op(name string, async bool, run func(ctx context.Context, execution ports.Execution) error) *testOp {
	return &testOp{name: name, async: async, calls: &h.calls, run: run}
}

func (h *harness) records(t *testing.T, msg string) []map[string]any {
	t.Helper()

	var out []map[string]any

	scanner := bufio.NewScanner(bytes.NewReader(h.logs.Bytes()))
	for scanner.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))

		if entry["msg"] == msg {
			out = append(out, entry)
		}
	}

	return out
}

func TestFromContext(t *testing.T) {
	assert.Nil(t, FromContext(nil)) //nolint:staticcheck // Testing nil guard intentionally
	assert.Nil(t, FromContext(context.Background()))

	ic := New(Config{Command: "StartProcessInstance"})
	assert.Same(t, ic, FromContext(WithContext(context.Background(), ic)))
	assert.Equal(t, "StartProcessInstance", ic.Command())
}

func TestEnqueue_NilExecution(t *testing.T) {
	h := newHarness(t, nil)

	err := h.ic.Enqueue(h.ctx, h.op("a", false, nil), nil, false)

	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	assert.Empty(t, h.calls)
}

func TestEnqueue_SingleSyncOperation(t *testing.T) {
	h := newHarness(t, nil)
	exec := &testExecution{id: "pi-1"}

	op := h.op("a", false, func(ctx context.Context, _ ports.Execution) error {
		assert.False(t, FromContext(ctx).IsDraining())
		return nil
	})

	require.NoError(t, h.ic.PerformOperation(h.ctx, op, exec))

	assert.Equal(t, []string{"a"}, h.calls)
	assert.Empty(t, h.observer.drains)
	assert.Equal(t, 0, h.ic.Pending())
}

func TestEnqueue_DrainsDepthFirst(t *testing.T) {
	h := newHarness(t, nil)
	exec := &testExecution{id: "pi-1"}

	b := h.op("b", true, nil)
	c := h.op("c", true, nil)
	d := h.op("d", true, nil)

	a := h.op("a", true, func(ctx context.Context, execution ports.Execution) error {
		ic := FromContext(ctx)
		assert.True(t, ic.IsDraining())

		for _, next := range []*testOp{b, c, d} {
			require.NoError(t, ic.PerformOperation(ctx, next, execution))
		}

		// left to the drain loop
		assert.Equal(t, []string{"a"}, h.calls)
		assert.Equal(t, 3, ic.Pending())

		return nil
	})

	require.NoError(t, h.ic.PerformOperation(h.ctx, a, exec))

	assert.Equal(t, []string{"a", "d", "c", "b"}, h.calls)
	assert.Equal(t, []int{4}, h.observer.drains)
	assert.False(t, h.ic.IsDraining())
	assert.Equal(t, 0, h.ic.Pending())
}

func TestEnqueue_ChainRunsInOneDrainLoop(t *testing.T) {
	h := newHarness(t, nil)
	e1 := &testExecution{id: "pi-1"}
	e2 := &testExecution{id: "pi-2"}

	c := h.op("c", true, func(_ context.Context, execution ports.Execution) error {
		assert.Equal(t, "pi-2", execution.ID())
		return nil
	})
	b := h.op("b", true, func(ctx context.Context, _ ports.Execution) error {
		return FromContext(ctx).PerformOperation(ctx, c, e2)
	})

	require.NoError(t, h.ic.PerformOperation(h.ctx, b, e1))

	assert.Equal(t, []string{"b", "c"}, h.calls)
	assert.Equal(t, []int{2}, h.observer.drains)
}

func TestEnqueue_SyncOperationRunsImmediatelyWhileDraining(t *testing.T) {
	h := newHarness(t, nil)
	exec := &testExecution{id: "pi-1"}

	later := h.op("later", true, nil)
	now := h.op("now", false, nil)

	a := h.op("a", true, func(ctx context.Context, execution ports.Execution) error {
		ic := FromContext(ctx)
		require.NoError(t, ic.PerformOperation(ctx, later, execution))
		require.NoError(t, ic.PerformOperation(ctx, now, execution))

		assert.Equal(t, []string{"a", "now"}, h.calls)

		return nil
	})

	require.NoError(t, h.ic.PerformOperation(h.ctx, a, exec))

	assert.Equal(t, []string{"a", "now", "later"}, h.calls)
}

func TestEnqueue_FailureStopsDrain(t *testing.T) {
	h := newHarness(t, nil)
	exec := &testExecution{id: "pi-1"}
	boom := errors.New("boom")

	b := h.op("b", true, nil)
	c := h.op("c", true, func(context.Context, ports.Execution) error { return boom })
	a := h.op("a", true, func(ctx context.Context, execution ports.Execution) error {
		ic := FromContext(ctx)
		require.NoError(t, ic.PerformOperation(ctx, b, execution))

		return ic.PerformOperation(ctx, c, execution)
	})

	err := h.ic.PerformOperation(h.ctx, a, exec)

	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a", "c"}, h.calls)
	assert.Equal(t, 1, h.ic.Pending())
	assert.False(t, h.ic.IsDraining())

	h.ic.TrySetFailure(h.ctx, err)
	assert.Equal(t, boom, h.ic.Failure())

	rethrown := h.ic.Rethrow()
	require.ErrorIs(t, rethrown, boom)
	assert.Equal(t, "exception while executing command TestCommand: boom", rethrown.Error())
}

func TestEnqueue_FailureIsReportedOnce(t *testing.T) {
	h := newHarness(t, nil)
	exec := &testExecution{id: "pi-1", activity: "approve"}
	boom := errors.New("boom")

	inner := h.op("inner", false, func(context.Context, ports.Execution) error { return boom })
	outer := h.op("outer", false, func(ctx context.Context, execution ports.Execution) error {
		return FromContext(ctx).PerformOperation(ctx, inner, execution)
	})

	err := h.ic.PerformOperation(h.ctx, outer, exec)
	require.ErrorIs(t, err, boom)

	failed := h.records(t, "operation failed")
	require.Len(t, failed, 1)
	assert.Equal(t, "inner", failed[0]["operation"])
	assert.Equal(t, "pi-1", failed[0]["instanceId"])
	assert.Equal(t, "approve", failed[0]["activityId"])

	traces := h.records(t, "bpmn stack trace")
	require.Len(t, traces, 1)
	assert.Contains(t, traces[0]["trace"], "approve (inner, Execution[pi-1])")
}

func TestEnqueue_SwallowedFailureThenNewFailureIsReported(t *testing.T) {
	h := newHarness(t, nil)
	exec := &testExecution{id: "pi-1", activity: "approve"}
	inner := h.op("inner", false, func(context.Context, ports.Execution) error { return errors.New("boom") })
	rejected := errors.New("rejected")

	outer := h.op("outer", false, func(ctx context.Context, execution ports.Execution) error {
		_ = FromContext(ctx).PerformOperation(ctx, inner, execution)
		return rejected
	})

	err := h.ic.PerformOperation(h.ctx, outer, exec)
	require.ErrorIs(t, err, rejected)

	failed := h.records(t, "operation failed")
	require.Len(t, failed, 2)
	assert.Equal(t, "inner", failed[0]["operation"])
	assert.Equal(t, "outer", failed[1]["operation"])
	assert.Equal(t, "rejected", failed[1]["error"])
}

func TestEnqueue_FailurePathReleasesCorrelation(t *testing.T) {
	h := newHarness(t, nil)
	exec := &testExecution{id: "pi-1", activity: "approve"}

	op := h.op("a", true, func(context.Context, ports.Execution) error { return errors.New("boom") })

	require.Error(t, h.ic.PerformOperation(h.ctx, op, exec))

	assert.Equal(t, 0, h.mdc.Len())
	assert.Equal(t, 0, h.ic.Correlation().Depth("instanceId"))
}

func TestEnqueue_CorrelationFollowsNesting(t *testing.T) {
	h := newHarness(t, nil)
	e1 := &testExecution{id: "pi-1", activity: "receive"}
	e2 := &testExecution{id: "pi-2", activity: "archive"}

	instance := func() string {
		v, _ := h.mdc.Get("instanceId")
		return v
	}
	activity := func() string {
		v, _ := h.mdc.Get("activityId")
		return v
	}

	same := h.op("same", false, func(context.Context, ports.Execution) error {
		assert.Equal(t, "pi-1", instance())
		return nil
	})
	inner := h.op("inner", false, func(context.Context, ports.Execution) error {
		assert.Equal(t, "pi-2", instance())
		assert.Equal(t, "archive", activity())
		return nil
	})
	outer := h.op("outer", false, func(ctx context.Context, _ ports.Execution) error {
		ic := FromContext(ctx)

		assert.Equal(t, "pi-1", instance())
		require.NoError(t, ic.PerformOperation(ctx, inner, e2))
		assert.Equal(t, "pi-1", instance())
		assert.Equal(t, "receive", activity())

		require.NoError(t, ic.PerformOperation(ctx, same, e1))
		assert.Equal(t, "pi-1", instance())

		return nil
	})

	require.NoError(t, h.ic.PerformOperation(h.ctx, outer, e1))

	assert.Equal(t, []string{"outer", "inner", "same"}, h.calls)
	assert.Equal(t, 0, h.mdc.Len())
}

func TestEnqueue_ContextSwitch(t *testing.T) {
	type appKey struct{}

	app := &domain.Application{Name: "invoicing"}
	exec := &testExecution{id: "pi-1", activity: "approve"}
	st := trace.New(nil)

	switcher := mocks.NewMockContextSwitcher(t)
	switcher.EXPECT().TargetApplication(exec).Return(app)
	switcher.EXPECT().RequiresSwitch(mock.Anything, app).
		RunAndReturn(func(ctx context.Context, _ *domain.Application) bool {
			return ctx.Value(appKey{}) == nil
		})
	switcher.EXPECT().RunInApplication(mock.Anything, app, exec, mock.Anything).
		RunAndReturn(func(ctx context.Context, target *domain.Application, _ ports.Execution, fn func(context.Context) error) error {
			return fn(context.WithValue(ctx, appKey{}, target))
		})
	switcher.EXPECT().CurrentApplication(mock.Anything).
		RunAndReturn(func(ctx context.Context) *domain.Application {
			current, _ := ctx.Value(appKey{}).(*domain.Application)
			return current
		})

	h := newHarness(t, func(cfg *Config) {
		cfg.Switcher = switcher
		cfg.StackTrace = st
	})

	op := h.op("a", false, func(ctx context.Context, _ ports.Execution) error {
		assert.Equal(t, app, ctx.Value(appKey{}))
		return nil
	})

	require.NoError(t, h.ic.PerformOperation(h.ctx, op, exec))

	assert.Equal(t, []string{"a"}, h.calls)
	assert.Equal(t, []string{"invoicing"}, h.observer.switches)

	records := st.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "invoicing", records[0].ApplicationName)
	assert.Equal(t, "approve", records[0].ActivityID)
}

func TestEnqueue_ContextSwitchResyncsCorrelation(t *testing.T) {
	type appKey struct{}

	app := &domain.Application{Name: "billing"}
	local := &testExecution{id: "pi-1", activity: "receive"}
	remote := &testExecution{id: "pi-2", activity: "charge"}

	h := newHarness(t, nil)

	switcher := mocks.NewMockContextSwitcher(t)
	switcher.EXPECT().TargetApplication(local).Return(nil)
	switcher.EXPECT().TargetApplication(remote).Return(app)
	switcher.EXPECT().RequiresSwitch(mock.Anything, app).Return(true)
	switcher.EXPECT().CurrentApplication(mock.Anything).
		RunAndReturn(func(ctx context.Context) *domain.Application {
			current, _ := ctx.Value(appKey{}).(*domain.Application)
			return current
		})
	switcher.EXPECT().RunInApplication(mock.Anything, app, remote, mock.Anything).
		RunAndReturn(func(ctx context.Context, target *domain.Application, _ ports.Execution, fn func(context.Context) error) error {
			err := fn(context.WithValue(ctx, appKey{}, target))
			h.mdc.Remove("instanceId")

			return err
		})
	h.ic.switcher = switcher

	charge := h.op("charge", false, nil)
	receive := h.op("receive", false, func(ctx context.Context, _ ports.Execution) error {
		require.NoError(t, FromContext(ctx).PerformOperation(ctx, charge, remote))

		id, ok := h.mdc.Get("instanceId")
		assert.True(t, ok)
		assert.Equal(t, "pi-1", id)

		return nil
	})

	require.NoError(t, h.ic.PerformOperation(h.ctx, receive, local))
	assert.Equal(t, []string{"receive", "charge"}, h.calls)
	assert.Equal(t, []string{"billing"}, h.observer.switches)
}

func TestEnqueue_RequestedAsyncIsScheduled(t *testing.T) {
	exec := &testExecution{id: "pi-1"}
	scheduler := mocks.NewMockAsyncScheduler(t)

	h := newHarness(t, func(cfg *Config) { cfg.Scheduler = scheduler })
	op := h.op("a", true, nil)

	scheduler.EXPECT().ScheduleAsync(mock.Anything, op, exec).Return(nil).Once()

	require.NoError(t, h.ic.PerformOperationAsync(h.ctx, op, exec))

	assert.Empty(t, h.calls)
	assert.Equal(t, []string{"a(async)"}, h.observer.invoked)
}

func TestEnqueue_RequestedAsyncWithoutScheduler(t *testing.T) {
	h := newHarness(t, nil)

	err := h.ic.PerformOperationAsync(h.ctx, h.op("a", false, nil), &testExecution{id: "pi-1"})

	require.ErrorIs(t, err, ErrNoScheduler)
	assert.Empty(t, h.calls)
}

func TestEnqueue_SkipsOperationThatCannotRun(t *testing.T) {
	st := trace.New(nil)
	h := newHarness(t, func(cfg *Config) { cfg.StackTrace = st })

	op := &conditionalOp{testOp: *h.op("a", false, nil)}

	require.NoError(t, h.ic.PerformOperation(h.ctx, op, &testExecution{id: "pi-1", ended: true}))

	assert.Empty(t, h.calls)
	assert.Equal(t, 0, st.Len())
	assert.Empty(t, h.observer.invoked)
}

func TestTrySetFailure_FirstWins(t *testing.T) {
	h := newHarness(t, nil)
	first := domain.NewNotFoundError("process definition", "invoice")
	second := errors.New("second")

	h.ic.TrySetFailure(h.ctx, nil)
	assert.NoError(t, h.ic.Failure())

	h.ic.TrySetFailure(h.ctx, first)
	h.ic.TrySetFailure(h.ctx, second)

	assert.Equal(t, first, h.ic.Failure())
	assert.Equal(t, first, h.ic.Rethrow())
	assert.Equal(t, 1, h.observer.recorded)
	assert.Equal(t, 1, h.observer.masked)

	masked := h.records(t, "masked exception in command context")
	require.Len(t, masked, 1)
	assert.Equal(t, "second", masked[0]["masked"])
}

func TestRethrow(t *testing.T) {
	cause := errors.New("deadlock")
	persistence := domain.NewPersistenceError("flush", cause)
	engine := domain.NewEngineError("already modeled", nil)
	fatal := domain.NewFatalError("runtime error: index out of range", nil)

	tests := []struct {
		name  string
		err   error
		check func(t *testing.T, got error)
	}{
		{
			name: "no failure",
			check: func(t *testing.T, got error) {
				assert.NoError(t, got)
			},
		},
		{
			name: "fatal unchanged",
			err:  fatal,
			check: func(t *testing.T, got error) {
				assert.Same(t, fatal, got)
			},
		},
		{
			name: "persistence wrapped",
			err:  persistence,
			check: func(t *testing.T, got error) {
				var engineErr *domain.EngineError
				require.ErrorAs(t, got, &engineErr)
				assert.Equal(t, "process engine persistence exception", engineErr.Message)
				assert.Same(t, persistence, engineErr.Cause)
				assert.ErrorIs(t, got, cause)
			},
		},
		{
			name: "persistence already wrapped by engine",
			err:  fmt.Errorf("flush: %w", domain.NewEngineError("process engine persistence exception", persistence)),
			check: func(t *testing.T, got error) {
				assert.Equal(t, "flush: process engine persistence exception: persistence flush failed: deadlock", got.Error())
			},
		},
		{
			name: "engine unchanged",
			err:  engine,
			check: func(t *testing.T, got error) {
				assert.Same(t, engine, got)
			},
		},
		{
			name: "validation unchanged",
			err:  domain.NewValidationError("execution", "cannot be nil"),
			check: func(t *testing.T, got error) {
				assert.True(t, domain.IsValidation(got))
				assert.False(t, domain.IsEngine(got))
			},
		},
		{
			name: "unclassified wrapped with command",
			err:  cause,
			check: func(t *testing.T, got error) {
				var engineErr *domain.EngineError
				require.ErrorAs(t, got, &engineErr)
				assert.Equal(t, "TestCommand", engineErr.Command)
				assert.ErrorIs(t, got, cause)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			h.ic.TrySetFailure(h.ctx, tt.err)

			tt.check(t, h.ic.Rethrow())
		})
	}
}

func TestCorrelationPassThrough(t *testing.T) {
	t.Run("clear without pushes", func(t *testing.T) {
		h := newHarness(t, nil)

		assert.NotPanics(t, h.ic.ClearCorrelation)
		assert.Equal(t, 0, h.mdc.Len())
	})

	t.Run("update restores and clear removes", func(t *testing.T) {
		h := newHarness(t, nil)
		require.True(t, h.ic.Correlation().Push("instanceId", "pi-9"))

		h.mdc.Remove("instanceId")
		h.ic.UpdateCorrelation()

		v, ok := h.mdc.Get("instanceId")
		assert.True(t, ok)
		assert.Equal(t, "pi-9", v)

		h.ic.ClearCorrelation()
		assert.Equal(t, 0, h.mdc.Len())
	})
}

func TestFailureCell(t *testing.T) {
	var cell failureCell

	assert.False(t, cell.IsSet())
	assert.NoError(t, cell.Get())

	first := errors.New("first")
	assert.True(t, cell.Set(first))
	assert.False(t, cell.Set(errors.New("second")))

	assert.True(t, cell.IsSet())
	assert.Equal(t, first, cell.Get())
}
