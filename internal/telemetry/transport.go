package telemetry

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/steveyegge/ghtrack/internal/github"
)

const transportScopeName = "github.com/steveyegge/ghtrack/github"

// InstrumentedTransport wraps a github.Transport with OTel tracing and
// metrics. Every request gets a span and is counted in ghtrack.graphql.*
// metrics.
type InstrumentedTransport struct {
	inner  github.Transport
	tracer trace.Tracer
	ops    metric.Int64Counter
	dur    metric.Float64Histogram
	errs   metric.Int64Counter
}

// WrapTransport returns t decorated with OTel instrumentation.
// When telemetry is disabled, t is returned as-is.
func WrapTransport(t github.Transport) github.Transport {
	if !Enabled() {
		return t
	}
	return newInstrumentedTransport(t)
}

func newInstrumentedTransport(t github.Transport) *InstrumentedTransport {
	m := Meter(transportScopeName)
	ops, _ := m.Int64Counter("ghtrack.graphql.operations",
		metric.WithDescription("Total GraphQL operations sent"),
	)
	dur, _ := m.Float64Histogram("ghtrack.graphql.operation.duration",
		metric.WithDescription("GraphQL operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	errs, _ := m.Int64Counter("ghtrack.graphql.errors",
		metric.WithDescription("Total failed GraphQL operations"),
	)
	return &InstrumentedTransport{
		inner:  t,
		tracer: Tracer(transportScopeName),
		ops:    ops,
		dur:    dur,
		errs:   errs,
	}
}

func (t *InstrumentedTransport) Do(ctx context.Context, query string, variables map[string]any, out any) error {
	attrs := []attribute.KeyValue{attribute.String("graphql.operation.name", OperationName(query))}
	ctx, span := t.tracer.Start(ctx, "graphql."+OperationName(query),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	t.ops.Add(ctx, 1, metric.WithAttributes(attrs...))
	start := time.Now()

	err := t.inner.Do(ctx, query, variables, out)

	t.dur.Record(ctx, float64(time.Since(start).Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		t.errs.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	span.End()
	return err
}

// OperationName extracts the operation name of a GraphQL document, e.g.
// "ProjectItemIDs" for "query ProjectItemIDs($login: String!) {...}".
// It returns "anonymous" when there is none.
func OperationName(query string) string {
	for _, kw := range []string{"query ", "mutation "} {
		i := strings.Index(query, kw)
		if i < 0 || (i > 0 && !isSpace(query[i-1])) {
			continue
		}
		rest := strings.TrimLeft(query[i+len(kw):], " \t\n")
		end := strings.IndexAny(rest, "( {\n")
		if end < 0 {
			end = len(rest)
		}
		if name := rest[:end]; name != "" {
			return name
		}
	}
	return "anonymous"
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t'
}
