// Package runner is the execution harness at the core of forkfire.
//
// A run expands a command list into a flat slot space (commands outer,
// repetitions inner, total = len(commands) * parallelism) and dispatches
// every invocation at once. Each invocation owns exactly one slot of the
// pre-sized record slice, so no lock guards the records: the join barrier
// at the end of [Runner.Run] is the only synchronization.
//
// # Basic Usage
//
// Create a runner with options and an executor implementation:
//
//	opts := runner.Options{
//		Commands:    []string{"echo a", "echo b"},
//		Parallelism: 3,
//		Executor:    myExecutor,
//	}
//	r, err := runner.New(opts)
//	if err != nil {
//		return err
//	}
//	result, err := r.Run(ctx)
//
// # Executor Interface
//
// The [Executor] interface defines what a runner executes:
//
//	type Executor interface {
//		Run(ctx context.Context, command string) (Record, error)
//	}
//
// An executor returns an error only when the invocation never ran (the
// program could not be spawned); a child that ran and exited non-zero is
// a successful [Record].
//
// # Failure Policy
//
// By default a failed invocation only leaves its slot unsuccessful and
// the run continues. With [Options.FailFast] the first failure cancels
// the run context and [Runner.Run] returns the failure instead of records.
//
// # Launch Pacing
//
// [Options.RatePerSecond] spaces out spawn starts through a [Pacer]
// without capping how many children run simultaneously. The default of 0
// dispatches everything immediately.
//
// # Middleware
//
// [WithFailureLogging] wraps an executor to report invocation errors as
// they happen.
package runner
