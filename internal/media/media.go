package media

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"recut/internal/media/ffprobe"
)

// stderrTailLines bounds how much ffmpeg diagnostics ride along on errors.
const stderrTailLines = 12

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onLine func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps ffmpeg/ffprobe CLI interactions.
type Client struct {
	ffmpeg  string
	ffprobe string
	exec    Executor
}

// New constructs a media client around the configured binaries.
func New(ffmpegBinary, ffprobeBinary string, opts ...Option) (*Client, error) {
	ffmpegBinary = strings.TrimSpace(ffmpegBinary)
	if ffmpegBinary == "" {
		return nil, errors.New("ffmpeg binary required")
	}
	ffprobeBinary = strings.TrimSpace(ffprobeBinary)
	if ffprobeBinary == "" {
		ffprobeBinary = "ffprobe"
	}
	client := &Client{
		ffmpeg:  ffmpegBinary,
		ffprobe: ffprobeBinary,
		exec:    commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Probe inspects the container at path and returns typed ffprobe output.
func (c *Client) Probe(ctx context.Context, path string) (ffprobe.Result, error) {
	return ffprobe.Inspect(ctx, c.ffprobe, path)
}

// run invokes ffmpeg with the provided arguments. ffmpeg writes its
// diagnostics to stderr, so the executor forwards every line and run keeps a
// bounded tail to attach to failures.
func (c *Client) run(ctx context.Context, args []string, onLine func(string)) error {
	var tail []string
	collect := func(line string) {
		tail = append(tail, line)
		if len(tail) > stderrTailLines {
			tail = tail[1:]
		}
		if onLine != nil {
			onLine(line)
		}
	}
	if err := c.exec.Run(ctx, c.ffmpeg, args, collect); err != nil {
		if len(tail) > 0 {
			return fmt.Errorf("%w: %s", err, strings.Join(tail, " | "))
		}
		return err
	}
	return nil
}

// quietArgs prefixes the flags shared by every non-parsing ffmpeg invocation.
func quietArgs(args ...string) []string {
	return append([]string{"-hide_banner", "-loglevel", "error", "-nostats", "-y"}, args...)
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once
	var mu sync.Mutex

	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			if onLine != nil {
				mu.Lock()
				onLine(scanner.Text())
				mu.Unlock()
			}
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("scan output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}
