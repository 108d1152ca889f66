package internal

import (
	"bytes"
	"go/format"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

const modulePath = "github.com/Iron-Ham/duet"

// projectRoot returns the module root whether tests run from internal/ or
// the root itself.
func projectRoot(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	if filepath.Base(wd) == "internal" {
		return filepath.Dir(wd)
	}
	return wd
}

// walkGoFiles calls fn for every .go file under the given dirs, skipping
// hidden and underscore-prefixed directories.
func walkGoFiles(t *testing.T, root string, dirs []string, fn func(path string, content []byte)) {
	t.Helper()
	for _, dir := range dirs {
		err := filepath.WalkDir(filepath.Join(root, dir), func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				name := d.Name()
				if name == "vendor" || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
					return filepath.SkipDir
				}
				return nil
			}
			if !strings.HasSuffix(path, ".go") {
				return nil
			}
			content, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			fn(path, content)
			return nil
		})
		if err != nil {
			t.Fatalf("Failed to walk directory %s: %v", dir, err)
		}
	}
}

// TestGofmtCompliance verifies that all Go source files are gofmt clean.
// If this test fails, run: gofmt -w ./internal/ ./cmd/
func TestGofmtCompliance(t *testing.T) {
	root := projectRoot(t)

	var unformatted []string
	walkGoFiles(t, root, []string{"internal", "cmd"}, func(path string, content []byte) {
		formatted, err := format.Source(content)
		if err != nil {
			return
		}
		if !bytes.Equal(content, formatted) {
			rel, _ := filepath.Rel(root, path)
			unformatted = append(unformatted, rel)
		}
	})

	for _, f := range unformatted {
		t.Errorf("not gofmt clean: %s", f)
	}
	if len(unformatted) > 0 {
		t.Errorf("Run 'gofmt -w ./internal/ ./cmd/' to fix formatting issues.")
	}
}

// TestPackageLayering keeps the conversation core free of presentation
// code: only cmd and tui may import the UI and CLI layers.
func TestPackageLayering(t *testing.T) {
	root := projectRoot(t)

	core := []string{"persona", "transcript", "history", "completion", "speech", "conversation", "event", "logging", "errors", "config", "util"}
	forbidden := []string{modulePath + "/internal/tui", modulePath + "/internal/cmd"}

	for _, pkg := range core {
		walkGoFiles(t, root, []string{filepath.Join("internal", pkg)}, func(path string, content []byte) {
			f, err := parser.ParseFile(token.NewFileSet(), path, content, parser.ImportsOnly)
			if err != nil {
				t.Errorf("failed to parse %s: %v", path, err)
				return
			}
			for _, imp := range f.Imports {
				p, _ := strconv.Unquote(imp.Path.Value)
				for _, bad := range forbidden {
					if p == bad || strings.HasPrefix(p, bad+"/") {
						rel, _ := filepath.Rel(root, path)
						t.Errorf("%s imports %s", rel, p)
					}
				}
			}
		})
	}
}

// TestGolangciLintCompliance runs golangci-lint over the module. It is
// skipped if golangci-lint is not installed.
func TestGolangciLintCompliance(t *testing.T) {
	if _, err := exec.LookPath("golangci-lint"); err != nil {
		t.Skip("golangci-lint not found in PATH, skipping test")
	}
	if testing.Short() {
		t.Skip("skipping lint in short mode")
	}

	cmd := exec.Command("golangci-lint", "run", "--allow-parallel-runners", "./...")
	cmd.Dir = projectRoot(t)
	// A per-test build cache keeps the run writable in sandboxed runners.
	cmd.Env = append(os.Environ(), "GOCACHE="+t.TempDir())
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Errorf("golangci-lint found issues:\n%s", output)
	}
}
