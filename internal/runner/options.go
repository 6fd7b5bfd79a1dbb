package runner

import (
	"context"
	"time"
)

// Executor runs one command invocation to completion.
// Implementations must treat a child that ran and exited (with any code)
// as success and return an error only when the invocation never ran.
type Executor interface {
	Run(ctx context.Context, command string) (Record, error)
}

// Record is the result slot for a single invocation. The zero value means
// "did not succeed", which is also the initial state of every slot.
type Record struct {
	Success  bool
	Elapsed  time.Duration
	ExitCode int
}

// Options configure the Runner.
type Options struct {
	Commands      []string      // command strings, one result-slot group each (required)
	Parallelism   int           // concurrent repetitions per command (defaults to 1)
	RatePerSecond int           // launch pacing in spawns per second (0 means all at once)
	Timeout       time.Duration // per-invocation limit (0 means none)
	FailFast      bool          // abort the whole run on the first invocation error
	Executor      Executor      // invocation executor (required)

	// PacerFactory overrides launch pacer construction in tests.
	PacerFactory func(perSecond int) Pacer
}

func (o *Options) normalize() {
	if o.Parallelism <= 0 {
		o.Parallelism = 1
	}
	if o.RatePerSecond < 0 {
		o.RatePerSecond = 0
	}
	if o.Timeout < 0 {
		o.Timeout = 0
	}
	if o.PacerFactory == nil {
		o.PacerFactory = newPacer
	}
}
