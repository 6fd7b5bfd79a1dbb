package tracing

import (
	"context"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartRunSpan starts a new span covering one command invocation.
func StartRunSpan(ctx context.Context, tracer trace.Tracer, command string, slot int) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "forkfire.run",
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	span.SetAttributes(
		attribute.String("forkfire.command", command),
		attribute.Int("forkfire.slot", slot),
	)
	return ctx, span
}

// EndSpan finishes a span, recording error status if applicable.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// envCarrier adapts a string map to the OTel TextMapCarrier interface for
// environment-variable style propagation.
type envCarrier map[string]string

func (c envCarrier) Get(key string) string {
	return c[strings.ToLower(key)]
}

func (c envCarrier) Set(key, value string) {
	c[strings.ToLower(key)] = value
}

func (c envCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

// Environ renders the active trace context as TRACEPARENT/TRACESTATE
// environment entries for a child process. Returns nil when the context
// carries no span.
func Environ(ctx context.Context) []string {
	carrier := envCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	if len(carrier) == 0 {
		return nil
	}
	env := make([]string, 0, len(carrier))
	for key, value := range carrier {
		env = append(env, strings.ToUpper(key)+"="+value)
	}
	sort.Strings(env)
	return env
}
