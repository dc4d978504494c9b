package telemetry

import (
	"context"
	"errors"
	"testing"
)

type stubTransport struct {
	err   error
	calls int
}

func (s *stubTransport) Do(context.Context, string, map[string]any, any) error {
	s.calls++
	return s.err
}

func TestOperationName(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"query ProjectItemIDs($login: String!) { x }", "ProjectItemIDs"},
		{"\nmutation AddSubIssue($issueId: ID!) { x }", "AddSubIssue"},
		{"fragment F on X { a }\n\nquery ProjectItems($ids: [ID!]!) { x }", "ProjectItems"},
		{"query { viewer { login } }", "anonymous"},
		{"{ viewer { login } }", "anonymous"},
	}
	for _, tt := range tests {
		if got := OperationName(tt.query); got != tt.want {
			t.Errorf("OperationName(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}

func TestWrapTransportDisabled(t *testing.T) {
	t.Setenv("GHTRACK_OTEL_ENABLED", "")
	inner := &stubTransport{}
	if got := WrapTransport(inner); got != inner {
		t.Errorf("WrapTransport() = %T, want the inner transport when disabled", got)
	}
}

func TestInstrumentedTransportPassesThrough(t *testing.T) {
	boom := errors.New("boom")
	inner := &stubTransport{err: boom}
	tr := newInstrumentedTransport(inner)

	if err := tr.Do(context.Background(), "query Q { x }", nil, nil); !errors.Is(err, boom) {
		t.Errorf("Do() error = %v, want %v", err, boom)
	}
	inner.err = nil
	if err := tr.Do(context.Background(), "query Q { x }", nil, nil); err != nil {
		t.Errorf("Do() error = %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("inner called %d times, want 2", inner.calls)
	}
}

func TestSettingsFromEnv(t *testing.T) {
	t.Setenv("GHTRACK_OTEL_ENABLED", "true")
	t.Setenv("GHTRACK_OTEL_STDOUT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318")
	t.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "")

	got := SettingsFromEnv()
	want := Settings{Enabled: true, Endpoint: "localhost:4318"}
	if got != want {
		t.Errorf("SettingsFromEnv() = %+v, want %+v", got, want)
	}
}

func TestInitDisabled(t *testing.T) {
	if err := Init(context.Background(), Settings{}, "ghtrack", "test"); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
