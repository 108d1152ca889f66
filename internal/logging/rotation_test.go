package logging

import (
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestRotatingWriter_WriteAndSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "debug.log")

	rw, err := NewRotatingWriter(path, RotationConfig{MaxSizeMB: 1, MaxBackups: 1})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}
	defer func() { _ = rw.Close() }()

	if _, err := rw.Write([]byte("hello\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if rw.CurrentSize() != 6 {
		t.Errorf("CurrentSize() = %d, want 6", rw.CurrentSize())
	}
	if rw.FilePath() != path {
		t.Errorf("FilePath() = %q, want %q", rw.FilePath(), path)
	}
	if err := rw.Sync(); err != nil {
		t.Errorf("Sync() error = %v", err)
	}
}

func TestRotatingWriter_ResumesExistingSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	if err := os.WriteFile(path, []byte("0123456789"), 0o644); err != nil {
		t.Fatal(err)
	}

	rw, err := NewRotatingWriter(path, DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}
	defer func() { _ = rw.Close() }()

	if rw.CurrentSize() != 10 {
		t.Errorf("CurrentSize() = %d, want 10", rw.CurrentSize())
	}
}

// fill writes enough 1KB lines to rotate a 1MB file n times.
func fill(t *testing.T, rw *RotatingWriter, n int) {
	t.Helper()
	line := []byte(strings.Repeat("x", 1023) + "\n")
	for i := 0; i < n*1024+1; i++ {
		if _, err := rw.Write(line); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
}

func TestRotatingWriter_Rotation(t *testing.T) {
	tests := []struct {
		name        string
		backups     int
		rotations   int
		wantBackups []int
		wantMissing []int
	}{
		{"single rotation", 3, 1, []int{1}, []int{2}},
		{"keeps at most MaxBackups", 2, 4, []int{1, 2}, []int{3}},
		{"no backups", 0, 2, nil, []int{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "debug.log")
			rw, err := NewRotatingWriter(path, RotationConfig{MaxSizeMB: 1, MaxBackups: tt.backups})
			if err != nil {
				t.Fatalf("NewRotatingWriter() error = %v", err)
			}
			defer func() { _ = rw.Close() }()

			fill(t, rw, tt.rotations)

			for _, n := range tt.wantBackups {
				if !exists(rw.backupPath(n)) {
					t.Errorf("backup .%d missing", n)
				}
			}
			for _, n := range tt.wantMissing {
				if exists(rw.backupPath(n)) {
					t.Errorf("backup .%d should not exist", n)
				}
			}
			if rw.CurrentSize() > 1024*1024 {
				t.Errorf("active file size %d exceeds limit", rw.CurrentSize())
			}
		})
	}
}

func TestRotatingWriter_NoRotationWhenDisabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	rw, err := NewRotatingWriter(path, RotationConfig{MaxSizeMB: 0, MaxBackups: 3})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}
	defer func() { _ = rw.Close() }()

	fill(t, rw, 1)
	if exists(rw.backupPath(1)) {
		t.Error("rotation happened with MaxSizeMB = 0")
	}
}

func TestRotatingWriter_Compression(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	rw, err := NewRotatingWriter(path, RotationConfig{MaxSizeMB: 1, MaxBackups: 2, Compress: true})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}
	defer func() { _ = rw.Close() }()

	fill(t, rw, 1)

	gz := rw.backupPath(1) + ".gz"
	deadline := time.Now().Add(5 * time.Second)
	for !exists(gz) || exists(rw.backupPath(1)) {
		if time.Now().After(deadline) {
			t.Fatal("compressed backup did not appear")
		}
		time.Sleep(10 * time.Millisecond)
	}

	f, err := os.Open(gz)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()
	zr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip.NewReader() error = %v", err)
	}
	data, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("reading gzip: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("xxx")) {
		t.Error("compressed backup has unexpected content")
	}
}

func TestRotatingWriter_Concurrency(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	rw, err := NewRotatingWriter(path, RotationConfig{MaxSizeMB: 1, MaxBackups: 5})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}

	var wg sync.WaitGroup
	line := []byte(strings.Repeat("y", 511) + "\n")
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1024; i++ {
				if _, err := rw.Write(line); err != nil {
					t.Errorf("Write() error = %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if err := rw.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if !exists(rw.backupPath(1)) {
		t.Error("expected at least one rotation")
	}
}

func TestRotatingWriter_Close(t *testing.T) {
	rw, err := NewRotatingWriter(filepath.Join(t.TempDir(), "debug.log"), DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}

	if err := rw.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := rw.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}
	if _, err := rw.Write([]byte("late")); err == nil {
		t.Error("Write() after Close should fail")
	}
	if err := rw.Sync(); err != nil {
		t.Errorf("Sync() after Close error = %v, want nil", err)
	}
}

func TestNewLogger_Rotates(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir, LevelInfo, RotationConfig{MaxSizeMB: 1, MaxBackups: 1})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	defer func() { _ = logger.Close() }()

	payload := strings.Repeat("z", 2048)
	for i := 0; i < 1024; i++ {
		logger.Info("bulk", "payload", payload)
	}

	if !exists(filepath.Join(dir, LogFileName+".1")) {
		t.Error("logger output was not rotated")
	}
}

func TestDefaultRotationConfig(t *testing.T) {
	cfg := DefaultRotationConfig()
	if cfg.MaxSizeMB != 10 || cfg.MaxBackups != 3 || cfg.Compress {
		t.Errorf("DefaultRotationConfig() = %+v", cfg)
	}
}
