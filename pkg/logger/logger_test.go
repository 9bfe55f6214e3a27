package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestFieldsAndWith(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, zerolog.InfoLevel).With(String("env", "test"))

	l.Info("run finished",
		Int("entities", 3),
		Duration("took", 1500*time.Millisecond),
		Any("reasons", map[string]int{"missing_timestamp": 1}),
		Error(errors.New("boom")),
	)
	l.Debug("hidden")

	var got map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	want := map[string]interface{}{
		"env":      "test",
		"entities": float64(3),
		"took":     float64(1500),
		"error":    "boom",
		"message":  "run finished",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v, want %v", k, got[k], v)
		}
	}
	if r, _ := got["reasons"].(map[string]interface{}); r["missing_timestamp"] != float64(1) {
		t.Errorf("reasons = %v", got["reasons"])
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New(&Config{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
