package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestNewJSONWriter_WritesFieldsAboveLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONWriter(&buf, LevelInfo).Named("livechannel").With("match_id", "77")

	logger.Debug("hidden")
	logger.Warn("dropped update", "error", errors.New("bad payload"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug entry should be filtered: %s", out)
	}
	for _, want := range []string{`"msg":"dropped update"`, `"match_id":"77"`, `"error":"bad payload"`, `"logger":"livechannel"`, `"level":"WARN"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %s", want, out)
		}
	}
}

func TestSetMirror_ReceivesEnabledEntriesWithContextFields(t *testing.T) {
	type entry struct {
		level Level
		msg   string
		args  []any
	}
	var got []entry
	SetMirror(func(_ context.Context, level Level, msg string, args ...any) {
		got = append(got, entry{level: level, msg: msg, args: args})
	})
	t.Cleanup(func() { SetMirror(nil) })

	var buf bytes.Buffer
	logger := NewJSONWriter(&buf, LevelWarn).With("match_id", "77")
	logger.Info("below level")
	logger.ErrorContext(context.Background(), "stream failed", "attempt", 2)

	if len(got) != 1 {
		t.Fatalf("expected one mirrored entry, got %d", len(got))
	}
	if got[0].level != LevelError || got[0].msg != "stream failed" {
		t.Fatalf("unexpected mirrored entry: %+v", got[0])
	}
	if len(got[0].args) != 4 || got[0].args[0] != "match_id" || got[0].args[2] != "attempt" {
		t.Fatalf("unexpected mirrored args: %v", got[0].args)
	}
}

func TestNilLoggerFallsBackToDefault(t *testing.T) {
	var logger *Logger
	logger.Info("no panic")
	if logger.With("k", "v") == nil {
		t.Fatalf("expected a usable logger")
	}
}
