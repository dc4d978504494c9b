package debug

import (
	"bytes"
	"log/slog"
	"os"
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
		{"env", true, false, true},
		{"verbose", false, true, true},
		{"disabled", false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldEnabled := enabled
			defer func() { enabled = oldEnabled }()
			defer SetVerbose(false)

			enabled = tt.env
			SetVerbose(tt.verbose)

			if got := Enabled(); got != tt.want {
				t.Errorf("Enabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLevel(t *testing.T) {
	oldEnabled := enabled
	enabled = false
	defer func() { enabled = oldEnabled }()
	defer SetQuiet(false)
	defer SetVerbose(false)

	if got := Level(); got != slog.LevelInfo {
		t.Errorf("Level() = %v, want INFO", got)
	}
	SetQuiet(true)
	if got := Level(); got != slog.LevelWarn {
		t.Errorf("quiet Level() = %v, want WARN", got)
	}
	SetVerbose(true)
	if got := Level(); got != slog.LevelDebug {
		t.Errorf("verbose Level() = %v, want DEBUG", got)
	}
}

func TestLoggerRespectsQuiet(t *testing.T) {
	oldEnabled := enabled
	enabled = false
	defer func() { enabled = oldEnabled }()

	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	SetQuiet(true)
	defer SetQuiet(false)

	Logger().Info("hidden")
	Logger().Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("quiet logger wrote info: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("quiet logger dropped warning: %q", out)
	}
}

func TestPrintNormal(t *testing.T) {
	var buf bytes.Buffer
	SetStdout(&buf)
	defer SetStdout(os.Stdout)
	defer SetQuiet(false)

	PrintNormal("loaded %d\n", 3)
	SetQuiet(true)
	if !IsQuiet() {
		t.Fatal("IsQuiet() = false after SetQuiet(true)")
	}
	PrintNormal("suppressed\n")

	if got := buf.String(); got != "loaded 3\n" {
		t.Errorf("PrintNormal wrote %q", got)
	}
}

func TestLogfUsesOutput(t *testing.T) {
	oldEnabled := enabled
	enabled = false
	defer func() { enabled = oldEnabled }()

	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	defer SetVerbose(false)

	Logf("quiet %s\n", "one")
	SetVerbose(true)
	Logf("loud %s\n", "two")

	if got := buf.String(); got != "loud two\n" {
		t.Errorf("Logf wrote %q", got)
	}
}
