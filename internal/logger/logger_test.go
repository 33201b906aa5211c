package logger

import (
	"bytes"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNewVerboseWritesDebug(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, true)
	log.Debug("device call", zap.String("type", "Ping"))
	_ = log.Sync()
	if !strings.Contains(buf.String(), "device call") || !strings.Contains(buf.String(), "Ping") {
		t.Fatalf("unexpected log output: %q", buf.String())
	}
}

func TestNewQuietIsNop(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, false)
	log.Info("hidden")
	_ = log.Sync()
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}
