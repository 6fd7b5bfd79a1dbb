package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/torosent/forkfire/internal/cmdline"
)

// Invocation is one scheduled command run together with the result slot
// it owns.
type Invocation struct {
	Command    string
	CommandIdx int
	Repetition int
	Slot       int
}

// Result captures a completed run: one record per slot, in plan order,
// plus the wall-clock duration of the whole run.
type Result struct {
	Records  []Record
	Duration time.Duration
}

// Failed counts the slots that did not succeed.
func (r Result) Failed() int {
	failed := 0
	for _, rec := range r.Records {
		if !rec.Success {
			failed++
		}
	}
	return failed
}

// Runner dispatches every invocation of the plan concurrently and joins
// them. There is no cap on simultaneously running children: each
// invocation gets its own goroutine, which blocks on its own child.
type Runner struct {
	opt  Options
	plan []Invocation
}

// New validates the options and expands the invocation plan. Commands
// that tokenize to zero arguments are rejected here, before anything is
// spawned.
func New(opt Options) (*Runner, error) {
	opt.normalize()
	if opt.Executor == nil {
		return nil, errors.New("runner: executor is required")
	}
	if len(opt.Commands) == 0 {
		return nil, errors.New("runner: at least one command is required")
	}
	for i, command := range opt.Commands {
		if len(cmdline.Split(command)) == 0 {
			return nil, fmt.Errorf("runner: command %d is empty", i+1)
		}
	}
	return &Runner{opt: opt, plan: expandPlan(opt.Commands, opt.Parallelism)}, nil
}

// expandPlan lays out the slot space commands-outer, repetitions-inner:
// command i, repetition j owns slot i*parallelism+j.
func expandPlan(commands []string, parallelism int) []Invocation {
	plan := make([]Invocation, 0, len(commands)*parallelism)
	for i, command := range commands {
		for j := 0; j < parallelism; j++ {
			plan = append(plan, Invocation{
				Command:    command,
				CommandIdx: i,
				Repetition: j,
				Slot:       i*parallelism + j,
			})
		}
	}
	return plan
}

// Plan returns a copy of the expanded invocation plan.
func (r *Runner) Plan() []Invocation {
	plan := make([]Invocation, len(r.plan))
	copy(plan, r.plan)
	return plan
}

// invocationKey keys the Invocation attached to each run context.
type invocationKey struct{}

// WithInvocation returns a context carrying inv. Run attaches one to every
// invocation context before calling the Executor, so executors can see
// which slot they are filling.
func WithInvocation(ctx context.Context, inv Invocation) context.Context {
	return context.WithValue(ctx, invocationKey{}, inv)
}

// InvocationFromContext returns the invocation the context was dispatched
// for, if any.
func InvocationFromContext(ctx context.Context) (Invocation, bool) {
	inv, ok := ctx.Value(invocationKey{}).(Invocation)
	return inv, ok
}

// TotalInvocations is len(commands) * parallelism.
func (r *Runner) TotalInvocations() int { return len(r.plan) }

// Run dispatches all invocations, waits for every one of them, and
// returns the filled slots. Each goroutine writes only the slot it owns,
// so the records need no lock; the join barrier orders the reads.
//
// Without FailFast an invocation error only leaves its slot unsuccessful.
// With FailFast the first invocation error cancels the run context
// (killing in-flight children), waits for the remaining goroutines, and
// returns that error with no records.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	start := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pacer := r.opt.PacerFactory(r.opt.RatePerSecond)
	records := make([]Record, len(r.plan))

	var abortOnce sync.Once
	var abortErr error

	var wg sync.WaitGroup
	wg.Add(len(r.plan))
	for _, inv := range r.plan {
		go func(inv Invocation) {
			defer wg.Done()

			if pacer != nil {
				if err := pacer.Wait(ctx); err != nil {
					return
				}
			}

			runCtx := WithInvocation(ctx, inv)
			if r.opt.Timeout > 0 {
				var timeoutCancel context.CancelFunc
				runCtx, timeoutCancel = context.WithTimeout(runCtx, r.opt.Timeout)
				defer timeoutCancel()
			}

			rec, err := r.opt.Executor.Run(runCtx, inv.Command)
			records[inv.Slot] = rec
			if err == nil || !r.opt.FailFast {
				return
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			abortOnce.Do(func() {
				abortErr = err
				cancel()
			})
		}(inv)
	}
	wg.Wait()

	if abortErr != nil {
		return Result{}, abortErr
	}
	return Result{Records: records, Duration: time.Since(start)}, nil
}
