package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"recut/internal/api"
	"recut/internal/config"
	"recut/internal/engine"
	"recut/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, environment, and job status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			status, daemonUp, err := fetchDaemonStatus(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if !daemonUp {
				status, err = localStatus(cmd.Context(), ctx, cfg)
				if err != nil {
					return err
				}
			}
			if jsonOut {
				return writeJSON(cmd, status)
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(stdout, line)
			}
			if daemonUp {
				fmt.Fprintln(stdout, renderStatusLine("State", statusOK, fmt.Sprintf("running (pid %d)", status.PID), colorize))
				fmt.Fprintln(stdout, renderStatusLine("API", statusOK, cfg.Paths.APIBind, colorize))
			} else {
				fmt.Fprintln(stdout, renderStatusLine("State", statusWarn, "not running (start it with `recutd`)", colorize))
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Checks", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, check := range status.Checks {
				kind := statusOK
				if !check.Passed {
					kind = statusError
				}
				fmt.Fprintln(stdout, renderStatusLine(check.Name, kind, check.Detail, colorize))
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Jobs", colorize) {
				fmt.Fprintln(stdout, line)
			}
			if status.JobCount == 0 {
				fmt.Fprintln(stdout, "No jobs yet")
				return nil
			}
			fmt.Fprintln(stdout, renderTable([]string{"State", "Count"}, buildJobStateRows(status.JobStates), 1))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the status as JSON")
	return cmd
}

// fetchDaemonStatus asks the daemon's HTTP API for its status. A connection
// failure means the daemon is down, not an error.
func fetchDaemonStatus(ctx context.Context, cfg *config.Config) (api.DaemonStatus, bool, error) {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return api.DaemonStatus{}, false, nil
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return api.DaemonStatus{}, false, fmt.Errorf("parse api bind %q: %w", cfg.Paths.APIBind, err)
	}

	endpoint := base.ResolveReference(&url.URL{Path: "/api/status"})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return api.DaemonStatus{}, false, err
	}
	req.Header.Set("Accept", "application/json")
	if token := strings.TrimSpace(cfg.Paths.APIToken); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		if isConnectionError(err) {
			return api.DaemonStatus{}, false, nil
		}
		return api.DaemonStatus{}, false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return api.DaemonStatus{}, false, fmt.Errorf("daemon status returned %d", resp.StatusCode)
	}

	var status api.DaemonStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return api.DaemonStatus{}, false, err
	}
	return status, true, nil
}

// localStatus recomputes checks and job counts without the daemon. Unlike
// daemon startup it always reports a generation row, so a mock-only setup
// reads as configured rather than silently omitted.
func localStatus(cmdCtx context.Context, ctx *commandContext, cfg *config.Config) (api.DaemonStatus, error) {
	checks := []preflight.Result{
		preflight.CheckDirectoryAccess("Jobs directory", cfg.Paths.JobsDir),
		preflight.CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		preflight.CheckGenerationFromConfig(cmdCtx, cfg),
	}
	checks = append(checks, preflight.CheckTools(cfg)...)
	status := api.DaemonStatus{
		JobsDir:      cfg.Paths.JobsDir,
		RegistryPath: cfg.RegistryPath(),
		Checks:       api.FromPreflight(checks),
	}
	err := ctx.withEngine(func(eng *engine.Engine) error {
		entries, err := eng.List(cmdCtx)
		if err != nil {
			return err
		}
		status.JobCount = len(entries)
		states := make(map[string]int)
		for _, entry := range entries {
			if entry == nil {
				continue
			}
			states[entry.State()]++
		}
		if len(states) > 0 {
			status.JobStates = states
		}
		return nil
	})
	if err != nil {
		return api.DaemonStatus{}, err
	}
	return status, nil
}

func buildJobStateRows(states map[string]int) [][]string {
	names := make([]string, 0, len(states))
	for name := range states {
		names = append(names, name)
	}
	sort.Strings(names)
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, []string{name, strconv.Itoa(states[name])})
	}
	return rows
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
