//go:build !release

package log

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"
)

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	tests := []struct {
		name     string
		fn       func()
		expected string
	}{
		{name: "Print", fn: func() { Print("capture received") }, expected: "capture received"},
		{name: "Printf", fn: func() { Printf("rendered %dx%d", 192, 192) }, expected: "rendered 192x192"},
		{name: "Println", fn: func() { Println("relay ready") }, expected: "relay ready"},
		{name: "Debug", fn: func() { Debug("stale result dropped") }, expected: "[DEBUG] stale result dropped"},
		{name: "Debugf", fn: func() { Debugf("session %s", "abc") }, expected: "[DEBUG] session abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.fn()
			if !strings.Contains(buf.String(), tt.expected) {
				t.Errorf("Expected log to contain %q, but got %q", tt.expected, buf.String())
			}
		})
	}

	t.Run("CallerIsReported", func(t *testing.T) {
		buf.Reset()
		Printf("where")
		if !strings.Contains(buf.String(), "log_test.go") {
			t.Errorf("Expected caller file in %q", buf.String())
		}
	})
}
