// Package proc spawns a single child process from an argument vector and
// times it. It is the only part of forkfire that touches os/exec; the
// harness in internal/runner decides how many of these invocations run at
// once and what happens when one of them cannot be spawned.
package proc

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/torosent/forkfire/internal/cmdline"
)

// ExitStatus classifies spawn-level failures onto the exit statuses used
// when a run aborts. The values follow the usual Unix runner convention:
// the statuses sit above the range ordinary children use so callers can
// tell "the tool failed" from "the command failed".
type ExitStatus int

const (
	// StatusInternal covers failures of the spawning machinery itself:
	// an empty argument vector, or a wait primitive failing.
	StatusInternal ExitStatus = 125
	// StatusNotInvocable means the program exists but could not be
	// executed, for example a file without the execute bit.
	StatusNotInvocable ExitStatus = 126
	// StatusNotFound means the program could not be found on PATH.
	StatusNotFound ExitStatus = 127
)

// ErrEmptyCommand reports a command string that tokenized to zero
// arguments. Callers are expected to reject such commands before
// dispatching; this error is the backstop.
var ErrEmptyCommand = errors.New("empty command")

// SpawnError describes an invocation that never ran to completion: the
// child could not be spawned or could not be awaited. A child that ran
// and exited non-zero is not a SpawnError.
type SpawnError struct {
	Command string
	Status  ExitStatus
	Err     error
}

func (e *SpawnError) Error() string {
	return "cannot run '" + e.Command + "': " + e.Err.Error()
}

func (e *SpawnError) Unwrap() error { return e.Err }

// Result records one completed invocation. Elapsed is wall-clock time
// from just before the spawn to just after the wait, taken from the
// monotonic clock. ExitCode is the child's exit code, or -1 if the child
// was terminated by a signal; neither affects success.
type Result struct {
	Elapsed  time.Duration
	ExitCode int
}

// Runner spawns child processes. Children inherit the configured writers
// for stdout and stderr; stdin is not connected. A Runner is safe for
// concurrent use.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer

	// Environ, when set, supplies extra environment entries appended to
	// the parent environment of every child. Trace context propagation
	// hangs off this hook.
	Environ func(ctx context.Context) []string
}

// NewRunner returns a Runner whose children write to the parent's
// stdout and stderr.
func NewRunner() *Runner {
	return &Runner{Stdout: os.Stdout, Stderr: os.Stderr}
}

// RunCommand tokenizes command and runs the resulting vector. Each call
// tokenizes afresh so invocations never share an argument vector.
func (r *Runner) RunCommand(ctx context.Context, command string) (Result, error) {
	argv := cmdline.Split(command)
	if len(argv) == 0 {
		return Result{}, &SpawnError{Command: command, Status: StatusInternal, Err: ErrEmptyCommand}
	}
	return r.run(ctx, command, argv)
}

// Run executes a pre-tokenized argument vector.
func (r *Runner) Run(ctx context.Context, argv []string) (Result, error) {
	if len(argv) == 0 {
		return Result{}, &SpawnError{Command: "", Status: StatusInternal, Err: ErrEmptyCommand}
	}
	return r.run(ctx, cmdline.Join(argv), argv)
}

func (r *Runner) run(ctx context.Context, label string, argv []string) (Result, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	if r.Environ != nil {
		if extra := r.Environ(ctx); len(extra) > 0 {
			cmd.Env = append(os.Environ(), extra...)
		}
	}

	if err := cmd.Start(); err != nil {
		return Result{}, &SpawnError{Command: label, Status: classifyStart(err), Err: err}
	}

	waitErr := cmd.Wait()
	elapsed := time.Since(start)
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return Result{}, &SpawnError{Command: label, Status: StatusInternal, Err: waitErr}
		}
		if ctx.Err() != nil && exitErr.ExitCode() == -1 {
			// Killed because the run context went away, not on its own.
			return Result{}, ctx.Err()
		}
		// The child ran to completion; its exit code is recorded but does
		// not make the invocation a failure.
		return Result{Elapsed: elapsed, ExitCode: exitErr.ExitCode()}, nil
	}

	return Result{Elapsed: elapsed}, nil
}

// classifyStart maps a spawn failure to its exit status: missing programs
// are distinguished from every other way the exec can fail.
func classifyStart(err error) ExitStatus {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return StatusNotFound
	}
	return StatusNotInvocable
}
