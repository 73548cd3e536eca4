package util

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

// saveLoggerState saves the current logger state for restoration
func saveLoggerState() (io.Writer, logrus.Level, logrus.Formatter) {
	return Logger.Out, Logger.Level, Logger.Formatter
}

// restoreLoggerState restores the logger to its previous state
func restoreLoggerState(out io.Writer, level logrus.Level, formatter logrus.Formatter) {
	Logger.SetOutput(out)
	Logger.SetLevel(level)
	Logger.SetFormatter(formatter)
}

func TestSetJSONFormat(t *testing.T) {
	out, level, formatter := saveLoggerState()
	defer restoreLoggerState(out, level, formatter)

	var buf bytes.Buffer
	Logger.SetOutput(&buf)
	SetJSONFormat()

	WithDevice("core-sw1").Info("test json")

	output := buf.String()
	if len(output) == 0 || output[0] != '{' {
		t.Fatalf("Expected JSON output starting with '{', got: %s", output)
	}
	if !strings.Contains(output, `"device":"core-sw1"`) {
		t.Errorf("Expected device field in JSON output, got: %s", output)
	}
}

func TestWithInterface(t *testing.T) {
	out, level, formatter := saveLoggerState()
	defer restoreLoggerState(out, level, formatter)

	var buf bytes.Buffer
	Logger.SetOutput(&buf)

	WithInterface("core-sw1", "Vlan10").Info("relay removed")

	output := buf.String()
	if !strings.Contains(output, "interface=Vlan10") || !strings.Contains(output, "device=core-sw1") {
		t.Errorf("Expected device and interface fields, got: %s", output)
	}
}

func TestDebugfRespectsLevel(t *testing.T) {
	out, level, formatter := saveLoggerState()
	defer restoreLoggerState(out, level, formatter)

	var buf bytes.Buffer
	Logger.SetOutput(&buf)

	Logger.SetLevel(logrus.InfoLevel)
	Debugf("hidden %d", 1)
	if buf.Len() != 0 {
		t.Errorf("Debugf should be suppressed at info level, got: %s", buf.String())
	}

	Logger.SetLevel(logrus.DebugLevel)
	Debugf("shown %d", 2)
	if !strings.Contains(buf.String(), "shown 2") {
		t.Errorf("Expected debug output, got: %s", buf.String())
	}
}

func TestWarnf(t *testing.T) {
	out, level, formatter := saveLoggerState()
	defer restoreLoggerState(out, level, formatter)

	var buf bytes.Buffer
	Logger.SetOutput(&buf)
	Logger.SetLevel(logrus.WarnLevel)

	Warnf("warn %d", 789)

	if !strings.Contains(buf.String(), "warn 789") {
		t.Errorf("Expected warning, got: %s", buf.String())
	}
}

func TestConfigureCLI(t *testing.T) {
	out, level, formatter := saveLoggerState()
	defer restoreLoggerState(out, level, formatter)

	tests := []struct {
		name    string
		verbose bool
		want    logrus.Level
	}{
		{"quiet", false, logrus.WarnLevel},
		{"verbose", true, logrus.DebugLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ConfigureCLI(tt.verbose, false)
			if Logger.GetLevel() != tt.want {
				t.Errorf("level = %v, want %v", Logger.GetLevel(), tt.want)
			}
		})
	}

	ConfigureCLI(false, true)
	if _, ok := Logger.Formatter.(*logrus.JSONFormatter); !ok {
		t.Errorf("formatter = %T, want JSON", Logger.Formatter)
	}
}
