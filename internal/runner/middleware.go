package runner

import "context"

// FailureLogger receives invocations that never ran to completion.
type FailureLogger interface {
	LogFailure(command string, err error)
}

// loggingExecutor wraps an Executor with failure logging.
type loggingExecutor struct {
	inner  Executor
	logger FailureLogger
}

// WithFailureLogging wraps an Executor so every invocation error is
// reported to logger before being returned.
func WithFailureLogging(exec Executor, logger FailureLogger) Executor {
	if logger == nil {
		return exec
	}
	return &loggingExecutor{inner: exec, logger: logger}
}

func (l *loggingExecutor) Run(ctx context.Context, command string) (Record, error) {
	rec, err := l.inner.Run(ctx, command)
	if err != nil {
		l.logger.LogFailure(command, err)
	}
	return rec, err
}
