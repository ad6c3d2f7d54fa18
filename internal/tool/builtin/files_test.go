package builtin

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"cora/internal/tool"
)

func newFilesRegistry() *tool.Registry {
	reg := tool.NewRegistry(nil)
	RegisterFiles(reg)
	return reg
}

func mustHandler(t *testing.T, reg *tool.Registry, name string) tool.Handler {
	t.Helper()
	spec, ok := reg.Get(name)
	if !ok {
		t.Fatalf("tool %s not registered", name)
	}
	return spec.Handler
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hello.txt")
	if err := os.WriteFile(path, []byte("hello world"), 0o644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	handler := mustHandler(t, newFilesRegistry(), "read_file")

	value, err := handler(context.Background(), tool.Args{"path": path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != "hello world" {
		t.Errorf("unexpected content: %v", value)
	}
}

func TestReadFile_Missing(t *testing.T) {
	handler := mustHandler(t, newFilesRegistry(), "read_file")

	if _, err := handler(context.Background(), tool.Args{"path": "/nonexistent/file.txt"}); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := handler(context.Background(), tool.Args{}); err == nil {
		t.Error("expected error for missing path argument")
	}
}

func TestWriteFile_CreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "nested", "out.txt")
	handler := mustHandler(t, newFilesRegistry(), "write_file")

	_, err := handler(context.Background(), tool.Args{"path": path, "content": "data"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("file not written: %v", err)
	}
	if string(content) != "data" {
		t.Errorf("unexpected content: %q", content)
	}
}

func TestListFiles_WithPattern(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.go", "b.go", "c.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("setup failed: %v", err)
		}
	}

	handler := mustHandler(t, newFilesRegistry(), "list_files")

	value, err := handler(context.Background(), tool.Args{"path": dir, "pattern": "*.go"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result := value.(map[string]any)
	if result["count"] != 2 {
		t.Errorf("expected 2 matches, got %v", result["count"])
	}
}

func TestSearchFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "log.txt"), []byte("ok\nERROR: broken\nok\n"), 0o644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	handler := mustHandler(t, newFilesRegistry(), "search_files")

	value, err := handler(context.Background(), tool.Args{"pattern": "error", "path": dir, "case_insensitive": true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result := value.(map[string]any)
	if result["count"] != 1 {
		t.Errorf("expected 1 match, got %v", result["count"])
	}

	// No matches is a success with a message, not an error
	value, err = handler(context.Background(), tool.Args{"pattern": "unfindable_token", "path": dir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != "No matches found" {
		t.Errorf("unexpected value: %v", value)
	}
}
