package config

import (
	"reflect"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestAsString(t *testing.T) {
	tests := []struct {
		input interface{}
		want  string
	}{
		{"hello", "hello"},
		{123, "123"},
		{true, "true"},
		{nil, ""},
		{[]byte("bytes"), "bytes"},
	}

	for _, tt := range tests {
		got, err := asString(tt.input)
		if err != nil {
			t.Errorf("asString(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asString(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestAsInt(t *testing.T) {
	tests := []struct {
		input interface{}
		want  int
	}{
		{123, 123},
		{"456", 456},
		{int64(789), 789},
		{float64(10.0), 10},
		{nil, 0},
	}

	for _, tt := range tests {
		got, err := asInt(tt.input)
		if err != nil {
			t.Errorf("asInt(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asInt(%v) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestAsFloat64(t *testing.T) {
	tests := []struct {
		input interface{}
		want  float64
	}{
		{0.25, 0.25},
		{float32(0.5), 0.5},
		{1, 1},
		{"0.75", 0.75},
		{nil, 0},
	}

	for _, tt := range tests {
		got, err := asFloat64(tt.input)
		if err != nil {
			t.Errorf("asFloat64(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asFloat64(%v) = %g, want %g", tt.input, got, tt.want)
		}
	}
}

func TestAsBool(t *testing.T) {
	tests := []struct {
		input interface{}
		want  bool
	}{
		{true, true},
		{"true", true},
		{"1", true},
		{false, false},
		{"false", false},
		{"0", false},
		{nil, false},
	}

	for _, tt := range tests {
		got, err := asBool(tt.input)
		if err != nil {
			t.Errorf("asBool(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asBool(%v) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestAsDuration(t *testing.T) {
	tests := []struct {
		input interface{}
		want  time.Duration
	}{
		{time.Second, time.Second},
		{"1m", time.Minute},
		{10, 10 * time.Second}, // int treated as seconds
		{nil, 0},
	}

	for _, tt := range tests {
		got, err := asDuration(tt.input)
		if err != nil {
			t.Errorf("asDuration(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asDuration(%v) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestApplyConfigSettings(t *testing.T) {
	cfg := &Config{}
	settings := map[string]interface{}{
		"commands":    []interface{}{"echo a", "echo b"},
		"parallelism": 5,
		"timeout":     "5s",
		"fail_fast":   true,
		"thresholds":  []interface{}{"run_duration:p95 < 500"},
		"tracing": map[string]interface{}{
			"mode":        "otlp",
			"endpoint":    "localhost:4317",
			"sample_rate": 0.25,
		},
	}

	if err := applyConfigSettings(cfg, settings); err != nil {
		t.Fatalf("applyConfigSettings() error = %v", err)
	}

	if !reflect.DeepEqual(cfg.Commands, []string{"echo a", "echo b"}) {
		t.Errorf("Commands = %v, want [echo a, echo b]", cfg.Commands)
	}
	if cfg.Parallelism != 5 {
		t.Errorf("Parallelism = %d, want 5", cfg.Parallelism)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.Timeout)
	}
	if !cfg.FailFast {
		t.Errorf("FailFast = false, want true")
	}
	if !reflect.DeepEqual(cfg.Thresholds, []string{"run_duration:p95 < 500"}) {
		t.Errorf("Thresholds = %v, want the settings list", cfg.Thresholds)
	}
	if cfg.Tracing.Mode != "otlp" {
		t.Errorf("Tracing.Mode = %q, want otlp", cfg.Tracing.Mode)
	}
	if cfg.Tracing.Endpoint != "localhost:4317" {
		t.Errorf("Tracing.Endpoint = %q, want localhost:4317", cfg.Tracing.Endpoint)
	}
	if cfg.Tracing.SampleRate != 0.25 {
		t.Errorf("Tracing.SampleRate = %g, want 0.25", cfg.Tracing.SampleRate)
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := &Config{
		Parallelism: 1,
	}

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	configureFlags(fs)

	// Simulate parsing flags
	args := []string{
		"--parallelism=5",
		"--fail-fast",
		"--export=out.yaml",
		"--trace",
		"--trace-sample-rate=0.5",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if err := applyFlagOverrides(cfg, fs); err != nil {
		t.Fatalf("applyFlagOverrides() error = %v", err)
	}

	if cfg.Parallelism != 5 {
		t.Errorf("Parallelism = %d, want 5", cfg.Parallelism)
	}
	if !cfg.FailFast {
		t.Errorf("FailFast = false, want true")
	}
	if cfg.Export != "out.yaml" {
		t.Errorf("Export = %q, want out.yaml", cfg.Export)
	}
	if cfg.Tracing.Mode != "otlp" {
		t.Errorf("Tracing.Mode = %q, want otlp", cfg.Tracing.Mode)
	}
	if cfg.Tracing.SampleRate != 0.5 {
		t.Errorf("Tracing.SampleRate = %g, want 0.5", cfg.Tracing.SampleRate)
	}
}

func TestFlagNameNormalization(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	configureFlags(fs)

	if err := fs.Parse([]string{"--n=7"}); err != nil {
		t.Fatalf("Parse(--n=7) error = %v", err)
	}

	got, err := fs.GetInt("parallelism")
	if err != nil {
		t.Fatalf("GetInt(parallelism) error = %v", err)
	}
	if got != 7 {
		t.Errorf("parallelism = %d, want 7", got)
	}
	if !fs.Changed("parallelism") {
		t.Errorf("Changed(parallelism) = false, want true after --n")
	}
}

func TestLoader_Load(t *testing.T) {
	loader := NewLoader()
	args := []string{
		"--rate=2",
		"sleep 0.2",
	}

	cfg, err := loader.Load(args)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Rate != 2 {
		t.Errorf("Rate = %d, want 2", cfg.Rate)
	}
	if !reflect.DeepEqual(cfg.Commands, []string{"sleep 0.2"}) {
		t.Errorf("Commands = %v, want [sleep 0.2]", cfg.Commands)
	}
}

func TestParseTracingPreservesDefaults(t *testing.T) {
	base := TracingConfig{Protocol: "grpc", SampleRate: 1, Propagate: true}

	got, err := parseTracing(map[string]interface{}{"endpoint": "otel:4317"}, base)
	if err != nil {
		t.Fatalf("parseTracing() error = %v", err)
	}

	if got.Endpoint != "otel:4317" {
		t.Errorf("Endpoint = %q, want otel:4317", got.Endpoint)
	}
	if got.Protocol != "grpc" {
		t.Errorf("Protocol = %q, want default grpc preserved", got.Protocol)
	}
	if got.SampleRate != 1 {
		t.Errorf("SampleRate = %g, want default 1 preserved", got.SampleRate)
	}
	if !got.Propagate {
		t.Errorf("Propagate = false, want default true preserved")
	}
}
