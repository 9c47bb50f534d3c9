package logging

import (
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"  ERROR ", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := ParseLevel(tc.in); got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNewReturnsUsableLogger(t *testing.T) {
	logger := New("debug")
	if logger == nil || logger.Logger == nil {
		t.Fatal("expected non-nil logger")
	}
	child := logger.With("provider_id", "abc")
	if child == nil || child.Logger == nil {
		t.Fatal("expected non-nil child logger")
	}
}
