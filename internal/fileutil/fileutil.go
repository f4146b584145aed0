// Package fileutil holds the file operations the generation pipelines use to
// land assets: copies for frame stand-ins and rename-with-fallback moves for
// downloads whose scratch files may sit on another filesystem. Every write
// lands via temp file and rename, so a failure mid-write never leaves a
// partial file at the destination.
package fileutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CopyFile duplicates src at dst, replacing any existing file. Assets are
// written 0o644 so external tools can read them.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	return writeFrom(dst, in, 0o644)
}

// MoveFile relocates src to dst, trying rename first and falling back to
// copy-and-remove when the paths live on different filesystems. Download
// scratch files often start under the system temp directory, which may be a
// separate mount from the jobs tree.
func MoveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := writeFrom(dst, in, info.Mode().Perm()); err != nil {
		return err
	}
	return os.Remove(src)
}

// writeFrom stages r into a temp file beside dst and renames it into place.
// Generators write straight to canonical artifact paths and reconciliation
// treats presence as completion, so dst must never hold partial content.
func writeFrom(dst string, r io.Reader, mode os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
