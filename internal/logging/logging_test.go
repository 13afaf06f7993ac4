package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestLoggerWritesLogfmtFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Debug).With(F("exchange", 3))
	logger.Warn("frame skipped", F("raw", "not json"), Err(errors.New("bad input")))

	line := buf.String()
	for _, want := range []string{"level=warn", `msg="frame skipped"`, "exchange=3", `raw="not json"`, `err="bad input"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, ParseLevel("warning"))
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %q", buf.String())
	}
	if !logger.Enabled(Error) || logger.Enabled(Debug) {
		t.Fatalf("unexpected enabled levels")
	}
}
