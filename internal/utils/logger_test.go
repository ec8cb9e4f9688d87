package utils

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"
)

func TestLogEventNormalizesEmptyRequestID(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	LogEvent("  ", "spawn", "started", "order_id=7")

	line := buf.String()
	if !strings.Contains(line, "request_id=-") {
		t.Fatalf("expected dash request id, got %q", line)
	}
	if !strings.Contains(line, "[SPAWN]") {
		t.Fatalf("expected upper-cased module, got %q", line)
	}
	if !strings.Contains(line, "action=started") {
		t.Fatalf("expected action field, got %q", line)
	}
}
