package telemetry

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestNewLoggerJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "debug", false, true)

	logger.Info().Str("component", "test").Msg("hello")

	out := buf.String()
	if !strings.Contains(out, `"component":"test"`) || !strings.Contains(out, `"message":"hello"`) {
		t.Errorf("unexpected log output: %s", out)
	}
}

func TestNewLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn", false, true)

	logger.Info().Msg("suppressed")
	if buf.Len() != 0 {
		t.Errorf("info message not suppressed at warn level: %s", buf.String())
	}

	logger.Error().Msg("visible")
	if buf.Len() == 0 {
		t.Error("error message suppressed at warn level")
	}
}

func TestMetricsExposition(t *testing.T) {
	m := NewMetrics("confrel")

	m.DocumentLoaded("yaml")
	m.DocumentLoaded("yaml")
	m.DocumentLoaded("json")
	m.RulesEvaluated(5)
	m.Finding("fail", "error")
	m.RunCompleted("fail", 0.25)
	m.Reload()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		`confrel_documents_loaded_total{format="yaml"} 2`,
		`confrel_documents_loaded_total{format="json"} 1`,
		`confrel_rules_evaluated_total 5`,
		`confrel_findings_total{outcome="fail",severity="error"} 1`,
		`confrel_watch_reloads_total 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestTracerSpans(t *testing.T) {
	var buf bytes.Buffer
	tracer, err := NewTracer("confrel-test", &buf)
	if err != nil {
		t.Fatal(err)
	}

	ctx, run := tracer.StartRun(context.Background(), "run-1")
	_, phase := tracer.StartPhase(ctx, "evaluate")
	phase.End()
	run.End()

	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "check.run") || !strings.Contains(out, "check.evaluate") {
		t.Errorf("exported spans missing expected names:\n%s", out)
	}
}

func TestNoopTracer(t *testing.T) {
	tracer, err := NewTracer("confrel-test", nil)
	if err != nil {
		t.Fatal(err)
	}
	_, span := tracer.StartRun(context.Background(), "run-1")
	span.End()
	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
