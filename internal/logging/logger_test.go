package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func decodeLines(t *testing.T, data []byte) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("line is not JSON: %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestNewLogger(t *testing.T) {
	t.Run("creates debug.log in the directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested")

		logger, err := NewLogger(dir, LevelDebug, DefaultRotationConfig())
		if err != nil {
			t.Fatalf("NewLogger() error = %v", err)
		}
		defer func() { _ = logger.Close() }()

		if _, err := os.Stat(filepath.Join(dir, LogFileName)); err != nil {
			t.Errorf("log file not created: %v", err)
		}
	})

	t.Run("empty dir logs to stderr", func(t *testing.T) {
		logger, err := NewLogger("", LevelInfo, DefaultRotationConfig())
		if err != nil {
			t.Fatalf("NewLogger() error = %v", err)
		}
		if logger.closer != nil {
			t.Error("stderr logger should have nothing to close")
		}
		if err := logger.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
}

func TestLogLevelFiltering(t *testing.T) {
	tests := []struct {
		level string
		want  []string
	}{
		{LevelDebug, []string{"DEBUG", "INFO", "WARN", "ERROR"}},
		{LevelInfo, []string{"INFO", "WARN", "ERROR"}},
		{LevelWarn, []string{"WARN", "ERROR"}},
		{LevelError, []string{"ERROR"}},
		{"bogus", []string{"INFO", "WARN", "ERROR"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLoggerWithWriter(&buf, tt.level)

			logger.Debug("d")
			logger.Info("i")
			logger.Warn("w")
			logger.Error("e")

			lines := decodeLines(t, buf.Bytes())
			if len(lines) != len(tt.want) {
				t.Fatalf("got %d lines, want %d", len(lines), len(tt.want))
			}
			for i, want := range tt.want {
				if lines[i]["level"] != want {
					t.Errorf("line %d level = %v, want %s", i, lines[i]["level"], want)
				}
			}
		})
	}
}

func TestContextPropagation(t *testing.T) {
	var buf bytes.Buffer
	root := NewLoggerWithWriter(&buf, LevelDebug)

	child := root.WithSession("s-1").WithAgent("B").WithComponent("conversation")
	child.Info("turn complete", "chars", 12)
	root.Info("plain")

	lines := decodeLines(t, buf.Bytes())
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}

	got := lines[0]
	for key, want := range map[string]any{
		"session_id": "s-1",
		"agent":      "B",
		"component":  "conversation",
		"chars":      float64(12),
		"msg":        "turn complete",
	} {
		if got[key] != want {
			t.Errorf("%s = %v, want %v", key, got[key], want)
		}
	}

	if _, ok := lines[1]["session_id"]; ok {
		t.Error("parent logger should not inherit child attributes")
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, LevelInfo)

	if logger.With() != logger {
		t.Error("With() with no args should return the receiver")
	}

	logger.With("a", 1, 2, "ignored", "dangling").Info("x")

	line := decodeLines(t, buf.Bytes())[0]
	if line["a"] != float64(1) {
		t.Errorf("a = %v, want 1", line["a"])
	}
	if _, ok := line["dangling"]; ok {
		t.Error("unpaired trailing key should be dropped")
	}
}

func TestNopLogger(t *testing.T) {
	logger := NopLogger()
	logger.Error("nothing")
	logger.With("k", "v").WithAgent("A").Info("still nothing")
	if err := logger.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"debug", LevelDebug},
		{" INFO ", LevelInfo},
		{"warning", LevelWarn},
		{"Error", LevelError},
		{"", LevelInfo},
		{"trace", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidLevels(t *testing.T) {
	if got := ValidLevels(); len(got) != 4 || got[0] != LevelDebug || got[3] != LevelError {
		t.Errorf("ValidLevels() = %v", got)
	}
}

func TestClose_SharedWithChildren(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir, LevelInfo, DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	child := logger.WithAgent("A")
	child.Info("before close")

	if err := child.Close(); err != nil {
		t.Fatalf("child.Close() error = %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "before close") {
		t.Error("entry written before Close is missing")
	}
}

func TestConcurrentWrites(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir, LevelInfo, DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			l := logger.With("worker", g)
			for i := 0; i < 50; i++ {
				l.Info("tick", "i", i)
			}
		}(g)
	}
	wg.Wait()
	_ = logger.Close()

	data, _ := os.ReadFile(filepath.Join(dir, LogFileName))
	if n := len(decodeLines(t, data)); n != 400 {
		t.Errorf("got %d lines, want 400", n)
	}
}
