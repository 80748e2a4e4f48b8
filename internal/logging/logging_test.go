package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: Warn, Format: Human}, &buf)
	l.Debug("should not appear", nil)
	l.Info("should not appear either", nil)
	l.Warn("visible", nil)
	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Fatalf("debug/info lines leaked through a warn-level logger: %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Fatalf("expected warn line to be written, got %q", out)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: Debug, Format: JSON}, &buf)
	l.Info("hello", map[string]interface{}{"count": 3})
	out := buf.String()
	if !strings.Contains(out, `"message":"hello"`) || !strings.Contains(out, `"count":3`) {
		t.Fatalf("unexpected JSON log line: %q", out)
	}
}

func TestSecurityChannel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: Debug, Format: JSON}, &buf)
	l.Security("path escape", map[string]interface{}{"path": "../etc"})
	if !strings.Contains(buf.String(), `"channel":"security"`) {
		t.Fatalf("expected security channel tag, got %q", buf.String())
	}
}
