package observability

import (
	"testing"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	"go.uber.org/zap/zapcore"
)

func TestShouldSkipUptraceLog(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		msg  string
		args []any
		want bool
	}{
		{name: "health probe", msg: "http request", args: []any{"method", "GET", "path", "/healthz"}, want: true},
		{name: "docs", msg: "http request", args: []any{"path", "/openapi.yaml"}, want: true},
		{name: "match route", msg: "http request", args: []any{"path", "/v1/matches/77"}, want: false},
		{name: "other message", msg: "live channel connected", args: []any{"path", "/healthz"}, want: false},
		{name: "non string path", msg: "http request", args: []any{"path", 42}, want: false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := shouldSkipUptraceLog(tc.msg, tc.args); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestBuildOTelLogAttributes(t *testing.T) {
	t.Parallel()

	attrs := buildOTelLogAttributes([]any{"match_id", "77", "attempt", 2, "latency", 150 * time.Millisecond, "payload"})
	if len(attrs) != 4 {
		t.Fatalf("expected 4 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "match.id" || attrs[0].Value.AsString() != "77" {
		t.Fatalf("unexpected match_id attribute: %v", attrs[0])
	}
	if attrs[1].Key != "attempt" || attrs[1].Value.AsInt64() != 2 {
		t.Fatalf("unexpected attempt attribute: %v", attrs[1])
	}
	if attrs[2].Value.AsString() != "150ms" {
		t.Fatalf("unexpected latency attribute: %v", attrs[2])
	}
	if attrs[3].Key != "payload" || attrs[3].Value.Kind() != otellog.KindEmpty {
		t.Fatalf("unexpected payload attribute: %v", attrs[3])
	}
}

func TestToOTelLogValue_NestedUpdate(t *testing.T) {
	t.Parallel()

	v := toOTelLogValue(map[string]any{
		"statistics": map[string]any{"corners": []int{3, 5}},
		"live":       true,
	}, 0)
	if v.Kind() != otellog.KindMap {
		t.Fatalf("expected map value, got %s", v.Kind())
	}
	items := v.AsMap()
	if len(items) != 2 || items[0].Key != "live" {
		t.Fatalf("expected sorted map items, got %v", items)
	}
	if items[1].Value.Kind() != otellog.KindMap {
		t.Fatalf("expected nested map, got %s", items[1].Value.Kind())
	}
}

func TestAttributeName_AlignsIDsWithSpanAttributes(t *testing.T) {
	t.Parallel()

	cases := map[any]string{
		"match_id":  "match.id",
		"league_id": "league.id",
		"stream_id": "stream.id",
		"block":     "block",
		"  ":        "arg_3",
		42:          "arg_3",
	}
	for raw, want := range cases {
		if got := attributeName(raw, 3); got != want {
			t.Fatalf("attributeName(%v): expected %q, got %q", raw, want, got)
		}
	}
}

func TestToOTelSeverity(t *testing.T) {
	t.Parallel()

	cases := []struct {
		level zapcore.Level
		want  otellog.Severity
	}{
		{zapcore.DebugLevel - 1, otellog.SeverityDebug},
		{zapcore.DebugLevel, otellog.SeverityDebug},
		{zapcore.InfoLevel, otellog.SeverityInfo},
		{zapcore.WarnLevel, otellog.SeverityWarn},
		{zapcore.ErrorLevel, otellog.SeverityError},
		{zapcore.FatalLevel, otellog.SeverityFatal},
	}
	for _, tc := range cases {
		if got := toOTelSeverity(tc.level); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.level, tc.want, got)
		}
	}
}

func TestNewLogRecord(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	record := newLogRecord(now, zapcore.WarnLevel, otellog.SeverityWarn, "secondary fetch failed, using default",
		[]any{"match_id", "77", "block", "stats"})

	if record.Body().AsString() != "secondary fetch failed, using default" || record.SeverityText() != "WARN" {
		t.Fatalf("unexpected record body=%q severity=%q", record.Body().AsString(), record.SeverityText())
	}
	if !record.Timestamp().Equal(now) || record.AttributesLen() != 2 {
		t.Fatalf("unexpected record timestamp=%v attributes=%d", record.Timestamp(), record.AttributesLen())
	}
	keys := make([]string, 0, 2)
	record.WalkAttributes(func(kv otellog.KeyValue) bool {
		keys = append(keys, kv.Key)
		return true
	})
	if keys[0] != "match.id" || keys[1] != "block" {
		t.Fatalf("unexpected attribute keys %v", keys)
	}
}
