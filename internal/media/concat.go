package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Concat losslessly concatenates the input clips, in order, into dst using
// the concat demuxer. All inputs must share codec parameters; recut's shot
// clips do because they come from the same pipeline. A failed run leaves no
// partial output behind.
func (c *Client) Concat(ctx context.Context, inputs []string, dst string) error {
	if len(inputs) == 0 {
		return errors.New("concat: no input clips")
	}
	if dst == "" {
		return errors.New("concat: empty destination path")
	}
	for _, input := range inputs {
		if strings.TrimSpace(input) == "" {
			return errors.New("concat: empty input path")
		}
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("concat: %w", err)
	}

	listPath, err := writeConcatList(filepath.Dir(dst), inputs)
	if err != nil {
		return fmt.Errorf("concat: %w", err)
	}
	defer os.Remove(listPath)

	args := quietArgs(
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		dst,
	)
	if err := c.run(ctx, args, nil); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("concat %d clips: %w", len(inputs), err)
	}
	return nil
}

// writeConcatList materializes the demuxer input list next to the output so
// relative resolution never crosses filesystems.
func writeConcatList(dir string, inputs []string) (string, error) {
	file, err := os.CreateTemp(dir, "concat-*.txt")
	if err != nil {
		return "", fmt.Errorf("create list: %w", err)
	}
	var sb strings.Builder
	for _, input := range inputs {
		abs, err := filepath.Abs(input)
		if err != nil {
			file.Close()
			os.Remove(file.Name())
			return "", fmt.Errorf("resolve %s: %w", input, err)
		}
		fmt.Fprintf(&sb, "file '%s'\n", escapeConcatPath(abs))
	}
	if _, err := file.WriteString(sb.String()); err != nil {
		file.Close()
		os.Remove(file.Name())
		return "", fmt.Errorf("write list: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(file.Name())
		return "", fmt.Errorf("close list: %w", err)
	}
	return file.Name(), nil
}

// escapeConcatPath closes the quote, emits an escaped quote, and reopens, per
// the demuxer's single-quote syntax.
func escapeConcatPath(path string) string {
	return strings.ReplaceAll(path, "'", `'\''`)
}
