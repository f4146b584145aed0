package fileutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFixture(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", path, err)
	}
}

func readBack(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "frame.png")
	dst := filepath.Join(dir, "stylized.png")
	writeFixture(t, src, "pixels")

	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("copy: %v", err)
	}
	if got := readBack(t, dst); got != "pixels" {
		t.Fatalf("content mismatch: got %q", got)
	}
}

func TestCopyFileReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.png")
	dst := filepath.Join(dir, "dst.png")
	writeFixture(t, src, "new")
	writeFixture(t, dst, "previous longer content")

	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("copy: %v", err)
	}
	if got := readBack(t, dst); got != "new" {
		t.Fatalf("expected dst to be replaced, got %q", got)
	}
}

func TestCopyFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := CopyFile(filepath.Join(dir, "nope"), filepath.Join(dir, "dst")); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestCopyFileFailedWriteLeavesNoDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "srcdir")
	if err := os.Mkdir(src, 0o755); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(dir, "dst.png")

	if err := CopyFile(src, dst); err == nil {
		t.Fatal("expected copy from directory to fail")
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Fatalf("failed copy left destination file: %v", err)
	}
	assertNoTempFiles(t, dir)
}

func TestCopyFileFailedWriteKeepsExistingDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "srcdir")
	if err := os.Mkdir(src, 0o755); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(dir, "dst.png")
	writeFixture(t, dst, "settled")

	if err := CopyFile(src, dst); err == nil {
		t.Fatal("expected copy from directory to fail")
	}
	if got := readBack(t, dst); got != "settled" {
		t.Fatalf("failed copy clobbered destination: got %q", got)
	}
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".tmp-") {
			t.Fatalf("stray temp file %s", entry.Name())
		}
	}
}

func TestMoveFileRemovesSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "download.mp4")
	dst := filepath.Join(dir, "shot_01.mp4")
	writeFixture(t, src, "clip")

	if err := MoveFile(src, dst); err != nil {
		t.Fatalf("move: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("source still present after move: %v", err)
	}
	if got := readBack(t, dst); got != "clip" {
		t.Fatalf("content mismatch: got %q", got)
	}
}

func TestMoveFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := MoveFile(filepath.Join(dir, "nope"), filepath.Join(dir, "dst")); err == nil {
		t.Fatal("expected error for missing source")
	}
}
