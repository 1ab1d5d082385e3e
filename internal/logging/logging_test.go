package logging

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/seenimoa/tickerlens/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{" warn ", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewWithWriterRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Level: "warn", Console: true}, &buf)

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line written at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn line missing: %q", out)
	}
}

func TestNewWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "tickerlens.log")
	logger := NewWithWriter(config.LoggingConfig{
		Level:      "info",
		File:       true,
		FilePath:   path,
		MaxSizeMB:  1,
		MaxBackups: 1,
		MaxAgeDays: 1,
	}, &bytes.Buffer{})

	symLogger := WithSymbol(logger, "TCS.NS")
	symLogger.Info().Msg("to file")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), `"symbol":"TCS.NS"`) {
		t.Errorf("file content missing symbol field: %s", data)
	}
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	ctx := WithLogger(context.Background(), WithOperation(logger, "analyze"))

	ctxLogger := FromContext(ctx)
	ctxLogger.Info().Msg("x")
	if !strings.Contains(buf.String(), `"operation":"analyze"`) {
		t.Errorf("context logger lost fields: %s", buf.String())
	}

	// Missing logger yields a no-op logger, not a panic.
	nop := FromContext(context.Background())
	nop.Info().Msg("dropped")
}

func TestLogUpstreamCallFailureIsWarn(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.InfoLevel)

	LogUpstreamCall(logger, "gemini-2.5-flash", 2*time.Second, nil)
	if buf.Len() != 0 {
		t.Errorf("successful call should log at debug, got %s", buf.String())
	}

	LogUpstreamCall(logger, "gemini-2.5-flash", 2*time.Second, errors.New("503 overloaded"))
	out := buf.String()
	if !strings.Contains(out, `"level":"warn"`) || !strings.Contains(out, "503 overloaded") {
		t.Errorf("failed call not logged at warn: %s", out)
	}
}

func TestLogRecommendationSingleSymbol(t *testing.T) {
	var buf bytes.Buffer
	LogRecommendation(WithSymbol(zerolog.New(&buf), "TCS.NS"), "SELL", 72, 3512.4)

	out := buf.String()
	if n := strings.Count(out, `"symbol":`); n != 1 {
		t.Errorf("symbol key appears %d times: %s", n, out)
	}
	if !strings.Contains(out, `"recommendation":"SELL"`) {
		t.Errorf("missing recommendation: %s", out)
	}
}
