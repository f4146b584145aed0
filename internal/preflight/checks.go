package preflight

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"recut/internal/config"
	"recut/internal/services/genai"
)

const generationProbeTimeout = 30 * time.Second

// CheckGeneration confirms the generation API accepts the configured key.
// One attempt with a hard cap; the caller decides whether failure blocks
// startup or just colors a status row.
func CheckGeneration(ctx context.Context, cfg *config.Config) Result {
	const name = "Generation API"

	if strings.TrimSpace(cfg.Generation.APIKey) == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	probeCtx, cancel := context.WithTimeout(ctx, generationProbeTimeout)
	defer cancel()

	probe := genai.NewClient(genai.Config{
		APIKey:    cfg.Generation.APIKey,
		BaseURL:   cfg.Generation.BaseURL,
		ChatModel: cfg.Generation.ChatModel,
	}, genai.WithRetryMaxAttempts(1))

	if err := probe.HealthCheck(probeCtx); err != nil {
		return Result{Name: name, Detail: describeProbeFailure(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckDirectoryAccess verifies path exists, is a directory, and grants
// read, write, and search access.
func CheckDirectoryAccess(name, path string) Result {
	fail := func(problem string) Result {
		return Result{Name: name, Detail: fmt.Sprintf("%s (%s)", path, problem)}
	}

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fail("does not exist")
	case err != nil:
		return fail("stat: " + err.Error())
	case !info.IsDir():
		return fail("not a directory")
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return fail("insufficient permissions: " + err.Error())
	}
	return Result{Name: name, Passed: true, Detail: path + " (read/write ok)"}
}

// CheckTools reports availability of the external binaries recut shells out
// to. Tool checks never gate startup; they feed status displays so a missing
// ffmpeg is visible before a stage needs it.
func CheckTools(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		checkBinary("FFmpeg", cfg.FFmpegBinary(), "clip extraction, mock generation, and merging"),
		checkBinary("FFprobe", cfg.FFprobeBinary(), "media inspection"),
	}
}

func checkBinary(name, command, purpose string) Result {
	command = strings.TrimSpace(command)
	if command == "" {
		return Result{Name: name, Detail: "binary not configured; needed for " + purpose}
	}
	resolved, err := exec.LookPath(command)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%q not found; needed for %s", command, purpose)}
	}
	return Result{Name: name, Passed: true, Detail: resolved}
}

func describeProbeFailure(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("generation API did not answer within %s", generationProbeTimeout)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "network timeout reaching generation API"
	}
	return err.Error()
}
