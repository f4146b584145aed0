package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates path with the given content, making parent directories
// as needed. Tests use it for artifact stand-ins, which only have to exist
// on disk, so content is typically a short marker string.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create parent dirs for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
