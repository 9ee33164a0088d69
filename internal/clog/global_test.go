package clog

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGlobalFunctions(t *testing.T) {
	defer Reset()

	var buf bytes.Buffer
	ReplaceGlobal(TestLogger(&buf))

	Debug("debug %s", "msg")
	Info("info %s", "msg")
	Task("t1").Warn("warn %s", "msg")
	Error("error %s", "msg")

	output := buf.String()
	for _, want := range []string{
		"[DEBUG] debug msg",
		"[INFO] info msg",
		"[WARN] task=t1 warn msg",
		"[ERROR] error msg",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q, got: %s", want, output)
		}
	}
}

func TestConfigure(t *testing.T) {
	defer Reset()

	logPath := filepath.Join(t.TempDir(), "warden.log")
	if err := Configure(logPath, LevelDebug, true); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	defer func() { _ = Close() }()

	Debug("configured")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(content), "[DEBUG] configured") {
		t.Errorf("log file = %q, want debug line", content)
	}
}

func TestConfigureEmptyPath(t *testing.T) {
	defer Reset()

	if err := Configure("", LevelInfo, false); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	Info("no file")
}

func TestDiscard(t *testing.T) {
	defer Reset()
	Discard()

	Warn("dropped")
	Error("dropped")
}

func TestWriterTrimsNewline(t *testing.T) {
	defer Reset()

	var buf bytes.Buffer
	ReplaceGlobal(TestLogger(&buf))

	_, err := Writer(LevelInfo).Write([]byte("from writer\n"))
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "[INFO] from writer") {
		t.Errorf("expected writer message, got: %q", output)
	}
	if strings.Count(output, "\n") != 1 {
		t.Errorf("expected a single line, got: %q", output)
	}
}
