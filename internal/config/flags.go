package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all CLI flags to a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "forkfire [flags] '<command>' ['<command>' ...]",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// --n is the historical spelling of the parallelism flag; fold it into
	// the long name so both forms hit the same flag.
	flags.SetNormalizeFunc(normalizeFlagName)

	// Run shape flags
	flags.IntP("parallelism", "n", 1, "Number of parallel runs of each command")
	flags.IntP("rate", "r", 0, "Launches per second limit (0 means unlimited)")
	flags.Duration("timeout", 0, "Per-run timeout (0 means none)")
	flags.Bool("fail-fast", false, "Abort the whole run when a command cannot be spawned")

	// Output flags
	flags.BoolP("verbose", "v", false, "Print the full report instead of the three-line summary")
	flags.Bool("json-output", false, "Emit JSON formatted output")
	flags.Bool("dashboard", false, "Show live terminal dashboard with metrics")
	flags.Bool("log-failures", false, "Log each failed run to stderr")
	flags.String("export", "", "Write the full report to the given .json or .yaml file")
	flags.String("history-file", "", "Append the run to a history file and report the delta against the previous run")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Threshold flags
	flags.StringSlice("threshold", nil, "Performance thresholds (repeatable, e.g., 'run_duration:p95 < 500')")

	// Tracing flags
	flags.Bool("trace", false, "Export an OpenTelemetry span per run")
	flags.String("trace-endpoint", "", "OTLP collector endpoint")
	flags.String("trace-protocol", "grpc", "OTLP transport: 'grpc' or 'http'")
	flags.Bool("trace-insecure", false, "Skip TLS for the OTLP exporter")
	flags.Float64("trace-sample-rate", 1, "Fraction of runs to sample when tracing (0.0 to 1.0)")
}

func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	if name == "n" {
		name = "parallelism"
	}
	return pflag.NormalizedName(name)
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\n", cmd.UseLine())
	fmt.Fprint(out, "Each positional argument is one command. Commands are split on spaces and\n")
	fmt.Fprint(out, "newlines outside double quotes; a doubled quote inside a quoted argument\n")
	fmt.Fprint(out, "stands for a literal quote character.\n\nFlags:\n")
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("parallelism") {
		val, err := fs.GetInt("parallelism")
		if err != nil {
			return err
		}
		cfg.Parallelism = val
	}
	if fs.Changed("rate") {
		val, err := fs.GetInt("rate")
		if err != nil {
			return err
		}
		cfg.Rate = val
	}
	if fs.Changed("timeout") {
		val, err := fs.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = val
	}
	if fs.Changed("fail-fast") {
		val, err := fs.GetBool("fail-fast")
		if err != nil {
			return err
		}
		cfg.FailFast = val
	}
	if fs.Changed("verbose") {
		val, err := fs.GetBool("verbose")
		if err != nil {
			return err
		}
		cfg.Verbose = val
	}
	if fs.Changed("json-output") {
		val, err := fs.GetBool("json-output")
		if err != nil {
			return err
		}
		cfg.JSONOutput = val
	}
	if fs.Changed("dashboard") {
		val, err := fs.GetBool("dashboard")
		if err != nil {
			return err
		}
		cfg.Dashboard = val
	}
	if fs.Changed("log-failures") {
		val, err := fs.GetBool("log-failures")
		if err != nil {
			return err
		}
		cfg.LogFailures = val
	}
	if fs.Changed("export") {
		val, err := fs.GetString("export")
		if err != nil {
			return err
		}
		cfg.Export = strings.TrimSpace(val)
	}
	if fs.Changed("history-file") {
		val, err := fs.GetString("history-file")
		if err != nil {
			return err
		}
		cfg.HistoryFile = strings.TrimSpace(val)
	}
	if fs.Changed("threshold") {
		val, err := fs.GetStringSlice("threshold")
		if err != nil {
			return err
		}
		cfg.Thresholds = val
	}
	if fs.Changed("trace") {
		val, err := fs.GetBool("trace")
		if err != nil {
			return err
		}
		if val {
			cfg.Tracing.Mode = "otlp"
		} else {
			cfg.Tracing.Mode = "off"
		}
	}
	if fs.Changed("trace-endpoint") {
		val, err := fs.GetString("trace-endpoint")
		if err != nil {
			return err
		}
		cfg.Tracing.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("trace-protocol") {
		val, err := fs.GetString("trace-protocol")
		if err != nil {
			return err
		}
		cfg.Tracing.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("trace-insecure") {
		val, err := fs.GetBool("trace-insecure")
		if err != nil {
			return err
		}
		cfg.Tracing.Insecure = val
	}
	if fs.Changed("trace-sample-rate") {
		val, err := fs.GetFloat64("trace-sample-rate")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRate = val
	}

	return nil
}
