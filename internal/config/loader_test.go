package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindConfigFileInPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fulfild.yaml")
	if err := os.WriteFile(path, []byte("server:\n  log_level: debug\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if got := findConfigFileInPaths([]string{t.TempDir(), dir}); got != path {
		t.Errorf("findConfigFileInPaths = %q, want %q", got, path)
	}
}

func TestFindConfigFileInPathsPrefersYAMLExtension(t *testing.T) {
	dir := t.TempDir()
	// A file named exactly "fulfild" (no extension, like the binary) must
	// not be picked up.
	if err := os.WriteFile(filepath.Join(dir, "fulfild"), []byte{0x7f, 'E', 'L', 'F'}, 0o755); err != nil {
		t.Fatalf("write binary: %v", err)
	}

	if got := findConfigFileInPaths([]string{dir}); got != "" {
		t.Errorf("findConfigFileInPaths = %q, want empty", got)
	}

	ymlPath := filepath.Join(dir, "fulfild.yml")
	if err := os.WriteFile(ymlPath, []byte("dev_mode: true\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if got := findConfigFileInPaths([]string{dir}); got != ymlPath {
		t.Errorf("findConfigFileInPaths = %q, want %q", got, ymlPath)
	}
}

func TestFindConfigFileInPathsNoMatch(t *testing.T) {
	if got := findConfigFileInPaths([]string{t.TempDir()}); got != "" {
		t.Errorf("findConfigFileInPaths = %q, want empty", got)
	}
}
