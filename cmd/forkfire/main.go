package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/torosent/forkfire/internal/config"
	"github.com/torosent/forkfire/internal/dashboard"
	"github.com/torosent/forkfire/internal/history"
	"github.com/torosent/forkfire/internal/metrics"
	"github.com/torosent/forkfire/internal/output"
	"github.com/torosent/forkfire/internal/proc"
	"github.com/torosent/forkfire/internal/runner"
	"github.com/torosent/forkfire/internal/threshold"
	"github.com/torosent/forkfire/internal/tracing"
)

const (
	progressInterval       = time.Second
	tracingShutdownTimeout = 5 * time.Second
)

// procExecutor runs one command per invocation as a child process and
// feeds every outcome to the live collector. It implements runner.Executor.
type procExecutor struct {
	procs     *proc.Runner
	collector *metrics.Collector
	tracer    trace.Tracer
	traced    bool
	runID     string
}

// stderrFailureLogger reports failed invocations without disturbing the
// summary contract on stdout. Spawn failures always print; run failures
// (cancellation, timeout) print only when log-failures is enabled.
type stderrFailureLogger struct {
	mu     sync.Mutex
	out    io.Writer
	logAll bool
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitStatus(err))
	}
}

// exitStatus picks the process exit status for a fatal error. Spawn
// failures carry the classic runner statuses (125 internal failure,
// 126 found but not invocable, 127 not found); everything else exits 1.
func exitStatus(err error) int {
	var spawnErr *proc.SpawnError
	if errors.As(err, &spawnErr) {
		return int(spawnErr.Status)
	}
	return 1
}

func run(args []string) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), tracingShutdownTimeout)
		defer shutdownCancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "[forkfire] tracing shutdown: %v\n", err)
		}
	}()

	runID := history.NewRunID()
	collector := metrics.NewCollector()

	procs := proc.NewRunner()
	if provider.ShouldPropagate() {
		procs.Environ = tracing.Environ
	}

	executor := &procExecutor{
		procs:     procs,
		collector: collector,
		tracer:    provider.Tracer(),
		traced:    cfg.Tracing.Enabled(),
		runID:     runID,
	}
	logger := &stderrFailureLogger{out: os.Stderr, logAll: cfg.LogFailures}

	r, err := runner.New(runner.Options{
		Commands:      cfg.Commands,
		Parallelism:   cfg.Parallelism,
		RatePerSecond: cfg.Rate,
		Timeout:       cfg.Timeout,
		FailFast:      cfg.FailFast,
		Executor:      runner.WithFailureLogging(executor, logger),
	})
	if err != nil {
		return err
	}

	var dash *dashboard.Dashboard
	stopDash := func() {}
	if cfg.Dashboard {
		dash, err = dashboard.New(collector, dashboard.RunConfig{
			Commands:    cfg.Commands,
			Parallelism: cfg.Parallelism,
			Planned:     r.TotalInvocations(),
			Rate:        cfg.Rate,
			Timeout:     cfg.Timeout,
			FailFast:    cfg.FailFast,
			ConfigFile:  cfg.ConfigFile,
		}, cancel)
		if err != nil {
			return err
		}
		dash.Start()
		var once sync.Once
		stopDash = func() { once.Do(dash.Stop) }
		defer stopDash()
	}

	stopProgress := func() {}
	if cfg.Verbose && !cfg.JSONOutput && !cfg.Dashboard {
		progress := output.NewProgressReporter(collector, progressInterval, os.Stdout)
		progress.Start()
		var once sync.Once
		stopProgress = func() {
			once.Do(func() {
				progress.Stop()
				fmt.Fprintln(os.Stdout)
			})
		}
		defer stopProgress()
	}

	// Reset the collector clock right before dispatch so runs-per-second
	// reflects the run itself, not setup time.
	collector.Start()
	result, err := r.Run(ctx)
	stopProgress()
	if err != nil {
		// Fail-fast abort: no summary, the spawn failure decides the
		// exit status.
		stopDash()
		return err
	}

	// The dashboard owns the terminal until it is stopped; stop it before
	// any of the reports print so they land on the normal screen.
	var stats metrics.Stats
	if dash != nil {
		stopDash()
		stats = dash.GetFinalStats()
	} else {
		stats = collector.Stats(result.Duration)
	}
	stats.RunID = runID

	summary := metrics.Summarize(result.Records)

	if cfg.JSONOutput {
		if err := output.PrintJSONReport(os.Stdout, stats); err != nil {
			return err
		}
	} else {
		if cfg.Verbose || cfg.Dashboard {
			output.PrintReport(os.Stdout, stats)
			fmt.Fprintln(os.Stdout)
		}
		output.PrintSummary(os.Stdout, summary)
	}

	if cfg.Export != "" {
		if err := output.WriteFile(cfg.Export, stats); err != nil {
			return err
		}
	}

	if cfg.HistoryFile != "" {
		entry := history.NewEntry(runID, cfg.Commands, cfg.Parallelism, summary)
		previous, err := history.Append(cfg.HistoryFile, entry)
		if err != nil {
			return err
		}
		if !cfg.JSONOutput {
			history.WriteComparison(os.Stdout, entry, previous)
		}
	}

	if len(thresholds) > 0 {
		out := io.Writer(os.Stdout)
		if cfg.JSONOutput {
			out = os.Stderr
		}
		failed := 0
		fmt.Fprintln(out, "\nThresholds:")
		for _, res := range threshold.NewEvaluator(thresholds).Evaluate(stats) {
			fmt.Fprintf(out, "  %s\n", res.Message)
			if !res.Pass {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d thresholds failed", failed, len(thresholds))
		}
	}

	if ctx.Err() != nil {
		return errors.New("run interrupted")
	}
	return nil
}

func (e *procExecutor) Run(ctx context.Context, command string) (runner.Record, error) {
	start := time.Now()

	slot := -1
	if inv, ok := runner.InvocationFromContext(ctx); ok {
		slot = inv.Slot
	}

	var span trace.Span
	if e.traced {
		ctx, span = tracing.StartRunSpan(ctx, e.tracer, command, slot)
	}

	res, err := e.procs.RunCommand(ctx, command)
	if err != nil {
		// The spawn path reports no elapsed time of its own.
		e.collector.RecordRun(time.Since(start), err, &metrics.RunMetadata{Command: command})
		if e.traced {
			tracing.EndSpan(span, err, attribute.String("forkfire.run_id", e.runID))
		}
		return runner.Record{}, err
	}

	e.collector.RecordRun(res.Elapsed, nil, &metrics.RunMetadata{Command: command, ExitCode: res.ExitCode})
	if e.traced {
		tracing.EndSpan(span, nil,
			attribute.Int("forkfire.exit_code", res.ExitCode),
			attribute.String("forkfire.run_id", e.runID),
		)
	}
	return runner.Record{Success: true, Elapsed: res.Elapsed, ExitCode: res.ExitCode}, nil
}

func (l *stderrFailureLogger) LogFailure(command string, err error) {
	if err == nil {
		return
	}
	var spawnErr *proc.SpawnError
	if !errors.As(err, &spawnErr) && !l.logAll {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if spawnErr != nil {
		fmt.Fprintf(l.out, "[forkfire] %v\n", err)
		return
	}
	fmt.Fprintf(l.out, "[forkfire] run failed: %s: %v\n", command, err)
}
