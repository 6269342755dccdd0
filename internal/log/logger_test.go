package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("ParseLevel accepted an unknown level")
	}
}

func TestJSONLoggerTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Format: "json", Component: ComponentLedger, Output: &buf})

	logger.Info("entry created", FieldEntryID, "e1")
	logger.WithComponent(ComponentAuth).Warn("login failed")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines: %q", len(lines), buf.String())
	}
	var first, second map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("line 1 not JSON: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("line 2 not JSON: %v", err)
	}
	if first[FieldComponent] != ComponentLedger || first[FieldEntryID] != "e1" {
		t.Fatalf("first record = %v", first)
	}
	if second[FieldComponent] != ComponentAuth {
		t.Fatalf("second record component = %v", second[FieldComponent])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Output: &buf})
	logger.Info("hidden")
	logger.Error("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: "json", Output: &buf})

	ctx := NewContext(context.Background(), logger.With(FieldRequestID, "req_1"))
	FromContext(ctx).Info("inside")

	if !strings.Contains(buf.String(), `"request_id":"req_1"`) {
		t.Fatalf("request id not attached: %q", buf.String())
	}
	if FromContext(context.Background()) == nil {
		t.Fatalf("FromContext without logger returned nil")
	}
}

func TestStructuredLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Format: "json", Output: &buf}))
	r := httptest.NewRequest(http.MethodGet, "/api/budget", nil)

	sl.LogHTTPEnd(context.Background(), r, 503, 12, "127.0.0.1")
	sl.LogError(context.Background(), "boom", errors.New("disk"), ComponentStorage, OpCreate, nil)

	out := buf.String()
	if !strings.Contains(out, `"level":"ERROR"`) || !strings.Contains(out, `"status_code":503`) {
		t.Fatalf("unexpected output %q", out)
	}
	if !strings.Contains(out, `"error":"disk"`) || !strings.Contains(out, `"component":"storage"`) {
		t.Fatalf("LogError fields missing: %q", out)
	}
}
