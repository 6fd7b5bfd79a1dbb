package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/torosent/forkfire/internal/cmdline"
	"github.com/torosent/forkfire/internal/threshold"
)

// Config holds the fully resolved settings for one run.
type Config struct {
	Commands    []string      `mapstructure:"commands"`
	Parallelism int           `mapstructure:"parallelism"`
	Rate        int           `mapstructure:"rate"`
	Timeout     time.Duration `mapstructure:"timeout"`
	FailFast    bool          `mapstructure:"fail_fast"`
	Verbose     bool          `mapstructure:"verbose"`
	JSONOutput  bool          `mapstructure:"json_output"`
	Dashboard   bool          `mapstructure:"dashboard"`
	LogFailures bool          `mapstructure:"log_failures"`
	Export      string        `mapstructure:"export"`
	HistoryFile string        `mapstructure:"history_file"`
	Thresholds  []string      `mapstructure:"thresholds"`
	Tracing     TracingConfig `mapstructure:"tracing"`
	ConfigFile  string        `mapstructure:"-"`
}

// TracingConfig controls the OpenTelemetry span exporter.
type TracingConfig struct {
	Mode        string  `mapstructure:"mode"` // "off" (default) or "otlp"
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	Insecure    bool    `mapstructure:"insecure"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Propagate   bool    `mapstructure:"propagate"`
}

// Enabled reports whether spans should be exported.
func (t TracingConfig) Enabled() bool {
	return strings.EqualFold(strings.TrimSpace(t.Mode), "otlp")
}

// ShouldPropagate reports whether trace context should be handed to child
// processes through TRACEPARENT/TRACESTATE environment variables.
func (t TracingConfig) ShouldPropagate() bool {
	return t.Enabled() && t.Propagate
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string
	var warnings []string

	if len(c.Commands) == 0 {
		issues = append(issues, "at least one command is required (use --help for usage information)")
	}
	for idx, command := range c.Commands {
		if len(cmdline.Split(command)) == 0 {
			issues = append(issues, fmt.Sprintf("commands[%d]: no arguments after tokenization", idx))
		}
	}

	// Every repetition forks its own process, so a large parallelism can
	// exhaust pid and fd limits quickly.
	if c.Parallelism > 500 {
		warnings = append(warnings, fmt.Sprintf("WARNING: High parallelism configured (%d). Ensure the system's process limits allow %d concurrent children per command.", c.Parallelism, c.Parallelism))
	}
	if len(warnings) > 0 {
		for _, w := range warnings {
			fmt.Fprintln(os.Stderr, w)
		}
	}

	if c.Parallelism < 1 {
		issues = append(issues, "parallelism must be >= 1")
	}
	if c.Rate < 0 {
		issues = append(issues, "rate must be >= 0")
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if c.Dashboard && c.JSONOutput {
		issues = append(issues, "dashboard and json-output are mutually exclusive")
	}

	if c.Export != "" {
		switch strings.ToLower(filepath.Ext(c.Export)) {
		case ".json", ".yaml", ".yml":
		default:
			issues = append(issues, fmt.Sprintf("export: unsupported file extension %q (use .json, .yaml or .yml)", filepath.Ext(c.Export)))
		}
	}

	if _, err := threshold.ParseMultiple(c.Thresholds); err != nil {
		issues = append(issues, err.Error())
	}

	tracingIssues := validateTracingConfig(c.Tracing)
	if len(tracingIssues) > 0 {
		issues = append(issues, tracingIssues...)
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}

	return nil
}

func validateTracingConfig(tc TracingConfig) []string {
	var issues []string

	switch strings.ToLower(strings.TrimSpace(tc.Mode)) {
	case "", "off", "otlp":
	default:
		issues = append(issues, fmt.Sprintf("tracing: mode must be 'off' or 'otlp', got %q", tc.Mode))
	}
	if !tc.Enabled() {
		return issues
	}

	switch strings.ToLower(strings.TrimSpace(tc.Protocol)) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing: protocol must be 'grpc' or 'http', got %q", tc.Protocol))
	}
	if tc.SampleRate < 0 || tc.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("tracing: sample_rate must be between 0.0 and 1.0, got %g", tc.SampleRate))
	}

	return issues
}
