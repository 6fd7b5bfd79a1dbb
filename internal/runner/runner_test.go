package runner_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/torosent/forkfire/internal/runner"
)

// fakeExecutor simulates invocations without spawning anything. Latency
// and failure are keyed by the command's first token; unknown commands
// succeed instantly.
type fakeExecutor struct {
	calls     int64
	latencies map[string]time.Duration
	failures  map[string]error
	block     bool // wait for ctx cancellation instead of returning
}

func (f *fakeExecutor) Run(ctx context.Context, command string) (runner.Record, error) {
	atomic.AddInt64(&f.calls, 1)
	name := strings.Fields(command)[0]

	if f.block {
		<-ctx.Done()
		return runner.Record{}, ctx.Err()
	}
	if err, ok := f.failures[name]; ok {
		return runner.Record{}, err
	}

	elapsed := time.Microsecond
	if d, ok := f.latencies[name]; ok {
		elapsed = d
	}
	return runner.Record{Success: true, Elapsed: elapsed}, nil
}

func TestRunnerWritesEverySlot(t *testing.T) {
	exec := &fakeExecutor{}
	r, err := runner.New(runner.Options{
		Commands:    []string{"a", "b", "c", "d"},
		Parallelism: 25,
		Executor:    exec,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(result.Records) != 100 {
		t.Fatalf("expected 100 slots, got %d", len(result.Records))
	}
	for i, rec := range result.Records {
		if !rec.Success {
			t.Errorf("slot %d was not written successfully", i)
		}
	}
	if calls := atomic.LoadInt64(&exec.calls); calls != 100 {
		t.Errorf("expected 100 executor calls, got %d", calls)
	}
}

func TestSlotOrderIsCommandsOuterRepetitionsInner(t *testing.T) {
	r, err := runner.New(runner.Options{
		Commands:    []string{"cmd_a", "cmd_b"},
		Parallelism: 3,
		Executor:    &fakeExecutor{},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	plan := r.Plan()
	if len(plan) != 6 {
		t.Fatalf("expected 6 invocations, got %d", len(plan))
	}
	for i, inv := range plan {
		wantCommand := "cmd_a"
		if i >= 3 {
			wantCommand = "cmd_b"
		}
		if inv.Command != wantCommand {
			t.Errorf("invocation %d: command = %q, want %q", i, inv.Command, wantCommand)
		}
		if inv.Slot != i {
			t.Errorf("invocation %d: slot = %d", i, inv.Slot)
		}
		if inv.CommandIdx != i/3 || inv.Repetition != i%3 {
			t.Errorf("invocation %d: idx/rep = %d/%d", i, inv.CommandIdx, inv.Repetition)
		}
	}
}

func TestRecordsLandInOwnedSlots(t *testing.T) {
	exec := &fakeExecutor{latencies: map[string]time.Duration{
		"cmd_a": 10 * time.Millisecond,
		"cmd_b": 20 * time.Millisecond,
	}}
	r, err := runner.New(runner.Options{
		Commands:    []string{"cmd_a", "cmd_b"},
		Parallelism: 3,
		Executor:    exec,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	for i, rec := range result.Records {
		want := 10 * time.Millisecond
		if i >= 3 {
			want = 20 * time.Millisecond
		}
		if rec.Elapsed != want {
			t.Errorf("slot %d: elapsed = %s, want %s", i, rec.Elapsed, want)
		}
	}
}

func TestNewRejectsEmptyCommand(t *testing.T) {
	_, err := runner.New(runner.Options{
		Commands: []string{"echo hi", "   "},
		Executor: &fakeExecutor{},
	})
	if err == nil {
		t.Fatal("expected error for command that tokenizes to nothing")
	}
	if !strings.Contains(err.Error(), "command 2") {
		t.Errorf("error should identify the offending command: %v", err)
	}
}

func TestNewRequiresCommandsAndExecutor(t *testing.T) {
	if _, err := runner.New(runner.Options{Executor: &fakeExecutor{}}); err == nil {
		t.Error("expected error when no commands are given")
	}
	if _, err := runner.New(runner.Options{Commands: []string{"true"}}); err == nil {
		t.Error("expected error when no executor is given")
	}
}

func TestFailureOnlyMarksOwnSlot(t *testing.T) {
	exec := &fakeExecutor{failures: map[string]error{
		"bad": errors.New("cannot run 'bad': not found"),
	}}
	r, err := runner.New(runner.Options{
		Commands:    []string{"good", "bad"},
		Parallelism: 2,
		Executor:    exec,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run must not fail without FailFast: %v", err)
	}
	for i, rec := range result.Records {
		wantSuccess := i < 2
		if rec.Success != wantSuccess {
			t.Errorf("slot %d: success = %v, want %v", i, rec.Success, wantSuccess)
		}
	}
	if got := result.Failed(); got != 2 {
		t.Errorf("Failed() = %d, want 2", got)
	}
}

// routingExecutor picks a delegate by the command's first token.
type routingExecutor struct {
	routes map[string]runner.Executor
}

func (r *routingExecutor) Run(ctx context.Context, command string) (runner.Record, error) {
	name := strings.Fields(command)[0]
	if exec, ok := r.routes[name]; ok {
		return exec.Run(ctx, command)
	}
	return runner.Record{Success: true, Elapsed: time.Microsecond}, nil
}

func TestFailFastReturnsFirstErrorAndCancelsSiblings(t *testing.T) {
	spawnErr := errors.New("cannot run 'bad': not found")
	exec := &routingExecutor{
		routes: map[string]runner.Executor{
			"hang": &fakeExecutor{block: true},
			"bad":  &fakeExecutor{failures: map[string]error{"bad": spawnErr}},
		},
	}

	r, err := runner.New(runner.Options{
		Commands: []string{"hang", "bad"},
		FailFast: true,
		Executor: exec,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	done := make(chan struct{})
	var result runner.Result
	var runErr error
	go func() {
		result, runErr = r.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("fail-fast run did not cancel the hanging sibling")
	}

	if !errors.Is(runErr, spawnErr) {
		t.Fatalf("expected the spawn error, got %v", runErr)
	}
	if result.Records != nil {
		t.Errorf("fail-fast abort must not produce records")
	}
}

func TestTimeoutFailsSlotWithoutAborting(t *testing.T) {
	exec := &fakeExecutor{block: true}
	r, err := runner.New(runner.Options{
		Commands: []string{"hang"},
		Timeout:  20 * time.Millisecond,
		Executor: exec,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("timeout must not abort the run: %v", err)
	}
	if result.Records[0].Success {
		t.Error("timed-out slot must not be successful")
	}
}

// slotRecordingExecutor reports the invocation it sees in its context.
type slotRecordingExecutor struct {
	slots []int64
}

func (s *slotRecordingExecutor) Run(ctx context.Context, command string) (runner.Record, error) {
	inv, ok := runner.InvocationFromContext(ctx)
	if !ok {
		return runner.Record{}, errors.New("context carries no invocation")
	}
	atomic.AddInt64(&s.slots[inv.Slot], 1)
	return runner.Record{Success: true, Elapsed: time.Microsecond}, nil
}

func TestContextCarriesInvocation(t *testing.T) {
	exec := &slotRecordingExecutor{slots: make([]int64, 6)}
	r, err := runner.New(runner.Options{
		Commands:    []string{"a", "b"},
		Parallelism: 3,
		Executor:    exec,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if failed := result.Failed(); failed != 0 {
		t.Fatalf("%d invocations saw no invocation context", failed)
	}
	for slot, seen := range exec.slots {
		if seen != 1 {
			t.Errorf("slot %d dispatched %d times, want once", slot, seen)
		}
	}
}

type pacerFunc func(ctx context.Context) error

func (f pacerFunc) Wait(ctx context.Context) error { return f(ctx) }

func TestPacerGatesEveryLaunch(t *testing.T) {
	var waits int64
	r, err := runner.New(runner.Options{
		Commands:      []string{"a", "b"},
		Parallelism:   5,
		RatePerSecond: 1000,
		Executor:      &fakeExecutor{},
		PacerFactory: func(perSecond int) runner.Pacer {
			if perSecond != 1000 {
				t.Errorf("factory got rate %d, want 1000", perSecond)
			}
			return pacerFunc(func(ctx context.Context) error {
				atomic.AddInt64(&waits, 1)
				return nil
			})
		},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := atomic.LoadInt64(&waits); got != 10 {
		t.Errorf("pacer waits = %d, want 10", got)
	}
}
