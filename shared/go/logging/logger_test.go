package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestFromContextAddsIDs(t *testing.T) {
	var buf bytes.Buffer
	SetGlobalLogger(New(Config{Level: "debug", Format: "json", Output: &buf}))

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithUserID(ctx, "user-1")

	FromContext(ctx).Info().Msg("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if line["request_id"] != "req-1" || line["user_id"] != "user-1" {
		t.Errorf("expected ids in log line, got %v", line)
	}
	if line["service"] != "vinoclub" {
		t.Errorf("expected service field, got %v", line["service"])
	}
}

func TestNewFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "bogus", Output: &buf})

	logger.Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected debug to be filtered, got %q", buf.String())
	}

	logger.Info().Msg("shown")
	if buf.Len() == 0 {
		t.Error("expected info line to be written")
	}
}
