package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestJSONLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Format: "json", Component: ComponentLedger, Output: &buf})

	l.Info("hello", FieldMerchant, "Blue Bottle")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("not json: %q", buf.String())
	}
	if rec[FieldComponent] != ComponentLedger || rec[FieldMerchant] != "Blue Bottle" {
		t.Errorf("record = %v", rec)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelWarn, Output: &buf})
	l.Info("quiet")
	l.Warn("loud")
	if strings.Contains(buf.String(), "quiet") || !strings.Contains(buf.String(), "loud") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestMiddlewareTagsRequestID(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		wantID bool
	}{
		{"with id", "req_abc", true},
		{"without id", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			base := New(Config{Output: &buf, Component: ComponentHTTP})

			var got *Logger
			h := Middleware(base, func(*http.Request) string { return tt.id })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = FromContext(r.Context())
				got.InfoContext(r.Context(), "inside")
			}))
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

			if got == nil || got.Component() != ComponentHTTP {
				t.Fatalf("logger = %+v", got)
			}
			out := buf.String()
			if strings.Contains(out, "request_id=req_abc") != tt.wantID {
				t.Errorf("output = %q", out)
			}
			if !strings.Contains(out, "component=http") {
				t.Errorf("output = %q, want component=http", out)
			}
		})
	}
}

func TestNewContextRoundTrip(t *testing.T) {
	l := New(Config{Component: ComponentWorker, Output: &bytes.Buffer{}})
	if got := FromContext(NewContext(context.Background(), l)); got != l {
		t.Errorf("FromContext() = %p, want %p", got, l)
	}
}

func TestFromContextDefault(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != ComponentApp {
		t.Fatalf("default logger = %+v", l)
	}
}
