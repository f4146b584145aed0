package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"recut/internal/api"
	"recut/internal/engine"
	"recut/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var shotID string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "run <job> <stage>",
		Short: "Run a generation stage (stylize or video_generate) and wait for it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(func(eng *engine.Engine) error {
				run, err := eng.BeginStage(cmd.Context(), args[0], args[1], shotID)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if !jsonOut {
					fmt.Fprintf(out, "Running %s for %d shot(s): %s\n",
						run.Stage(), len(run.Shots()), strings.Join(run.Shots(), ", "))
				}

				job, err := run.Execute(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, api.JobResponse{Job: api.FromJob(job)})
				}

				failed := 0
				for _, id := range run.Shots() {
					shot := job.ShotByID(id)
					if shot == nil {
						continue
					}
					status := shot.StageState(run.Stage())
					if status == workflow.StatusFailed {
						failed++
						fmt.Fprintf(out, "  %s: %s (%s)\n", id, status, shot.Errors[run.Stage()])
						continue
					}
					fmt.Fprintf(out, "  %s: %s\n", id, status)
				}
				if failed > 0 {
					fmt.Fprintf(out, "%d shot(s) failed; re-run after fixing, or inspect with `recut show %s`\n", failed, run.JobID())
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&shotID, "shot", "", "Limit the run to one shot")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the finished job as JSON")
	return cmd
}
