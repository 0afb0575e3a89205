package debug

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEnabled(t *testing.T) {
	tests := []struct {
		name    string
		env     bool
		verbose bool
		want    bool
	}{
		{"env set", true, false, true},
		{"verbose flag", false, true, true},
		{"neither", false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldEnabled, oldVerbose := enabled, verboseMode
			defer func() { enabled, verboseMode = oldEnabled, oldVerbose }()

			enabled = tt.env
			SetVerbose(tt.verbose)

			if got := Enabled(); got != tt.want {
				t.Errorf("Enabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLogf(t *testing.T) {
	tests := []struct {
		name       string
		enabled    bool
		wantOutput string
	}{
		{"outputs when enabled", true, "test message: hello\n"},
		{"no output when disabled", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldEnabled, oldStderr := enabled, stderr
			defer func() { enabled, stderr = oldEnabled, oldStderr }()

			var buf bytes.Buffer
			stderr = &buf
			enabled = tt.enabled

			Logf("test message: %s\n", "hello")

			if got := buf.String(); got != tt.wantOutput {
				t.Errorf("Logf() output = %q, want %q", got, tt.wantOutput)
			}
		})
	}
}

func TestPrintNormalQuiet(t *testing.T) {
	oldStdout, oldQuiet := stdout, quietMode
	defer func() { stdout, quietMode = oldStdout, oldQuiet }()

	var buf bytes.Buffer
	stdout = &buf

	SetQuiet(false)
	PrintNormal("a%d", 1)
	PrintlnNormal("b")
	SetQuiet(true)
	if !IsQuiet() {
		t.Fatal("IsQuiet() = false after SetQuiet(true)")
	}
	PrintNormal("hidden")
	PrintlnNormal("hidden")

	if got := buf.String(); got != "a1b\n" {
		t.Errorf("output = %q, want %q", got, "a1b\n")
	}
}

func TestLogEvent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".rwallet")
	t.Setenv("RW_ACTOR", "tester")

	LogEvent(dir, "deposit", "0xabc", "amount=5")
	LogEvent(dir, "withdraw", "", "amount=2")

	data, err := os.ReadFile(filepath.Join(dir, EventLogName))
	if err != nil {
		t.Fatalf("read events.log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), data)
	}
	fields := strings.Split(lines[0], "|")
	if len(fields) != 5 || fields[1] != "deposit" || fields[2] != "0xabc" || fields[3] != "tester" || fields[4] != "amount=5" {
		t.Errorf("unexpected first entry: %q", lines[0])
	}
	if !strings.Contains(lines[1], "|withdraw|none|") {
		t.Errorf("empty subject not defaulted: %q", lines[1])
	}
}

func TestLogEventEmptyDir(t *testing.T) {
	// Must not panic or create files relative to cwd.
	LogEvent("", "noop", "", "")
}
