package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"recut/internal/api"
	"recut/internal/engine"
	"recut/internal/registry"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List remix jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(func(eng *engine.Engine) error {
				entries, err := eng.List(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, api.JobListResponse{Jobs: api.FromEntries(entries)})
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs yet")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Title", "State", "Shots", "Stylized", "Rendered", "Failed", "Updated"},
					buildJobListRows(entries),
					3, 4, 5, 6,
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the job list as JSON")
	return cmd
}

func buildJobListRows(entries []*registry.Entry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		title := entry.Title
		if title == "" {
			title = filepath.Base(entry.SourceVideo)
		}
		updated := ""
		if !entry.UpdatedAt.IsZero() {
			updated = entry.UpdatedAt.Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{
			entry.JobID,
			truncate(title, 32),
			entry.State(),
			strconv.Itoa(entry.ShotCount),
			fmt.Sprintf("%d/%d", entry.StylizeDone, entry.ShotCount),
			fmt.Sprintf("%d/%d", entry.VideoDone, entry.ShotCount),
			strconv.Itoa(entry.FailedShots),
			updated,
		})
	}
	return rows
}
