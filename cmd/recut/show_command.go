package main

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"recut/internal/api"
	"recut/internal/engine"
	"recut/internal/workflow"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <job>",
		Short: "Display one job's shots and stage states",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(func(eng *engine.Engine) error {
				job, err := eng.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, api.JobResponse{Job: api.FromJob(job)})
				}
				renderJob(cmd.OutOrStdout(), job)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the job document as JSON")
	return cmd
}

func renderJob(out io.Writer, job *workflow.Job) {
	if job == nil {
		return
	}

	fmt.Fprintf(out, "Job %s (%s)\n", job.ID, filepath.Base(job.SourceVideo))
	fmt.Fprintf(out, "  Source: %s\n", job.SourceVideo)
	fmt.Fprintf(out, "  Style:  %s\n", job.Global.StylePrompt)
	if job.Global.VideoModel != "" {
		fmt.Fprintf(out, "  Model:  %s\n", job.Global.VideoModel)
	}
	fmt.Fprintf(out, "  Stages: analyze=%s  extract=%s  merge=%s\n",
		job.StageState(workflow.StageAnalyze),
		job.StageState(workflow.StageExtract),
		job.StageState(workflow.StageMerge))

	if len(job.Entities) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Entities")
		ids := make([]string, 0, len(job.Entities))
		for id := range job.Entities {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Fprintf(out, "  %-12s %s\n", id, job.Entities[id].ReferenceImage)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTable(
		[]string{"Shot", "Span", "Stylize", "Video", "Description"},
		buildShotRows(job),
	))

	printShotErrors(out, job)

	job.RecomputeDerived()
	switch {
	case job.StageState(workflow.StageMerge) == workflow.StatusSuccess:
		fmt.Fprintln(out, "Merge: done")
	case job.Merge.CanMerge:
		fmt.Fprintln(out, "Merge: ready")
	default:
		fmt.Fprintf(out, "Merge: blocked (%d failed, %d pending)\n", job.Merge.FailedShots, job.Merge.PendingShots)
	}
}

func buildShotRows(job *workflow.Job) [][]string {
	rows := make([][]string, 0, len(job.Shots))
	for _, shot := range job.Shots {
		if shot == nil {
			continue
		}
		rows = append(rows, []string{
			shot.ID,
			formatSpan(shot.StartSeconds, shot.EndSeconds),
			string(shot.StageState(workflow.StageStylize)),
			string(shot.StageState(workflow.StageVideoGenerate)),
			truncate(shot.Description, 48),
		})
	}
	return rows
}

func printShotErrors(out io.Writer, job *workflow.Job) {
	printedHeader := false
	for _, shot := range job.Shots {
		if shot == nil || len(shot.Errors) == 0 {
			continue
		}
		stages := make([]string, 0, len(shot.Errors))
		for stage := range shot.Errors {
			stages = append(stages, string(stage))
		}
		sort.Strings(stages)
		for _, stage := range stages {
			if !printedHeader {
				fmt.Fprintln(out, "Errors")
				printedHeader = true
			}
			fmt.Fprintf(out, "  %s %s: %s\n", shot.ID, stage, shot.Errors[workflow.Stage(stage)])
		}
	}
	if printedHeader {
		fmt.Fprintln(out)
	}
}
