package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"recut/internal/api"
	"recut/internal/engine"
	"recut/internal/workflow"
)

var sourceVideoExtensions = map[string]struct{}{
	".mp4":  {},
	".mov":  {},
	".mkv":  {},
	".webm": {},
	".avi":  {},
}

func newCreateCommand(ctx *commandContext) *cobra.Command {
	var stylePrompt string
	var videoModel string
	var entityFlags []string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "create <video>",
		Short: "Create a remix job from a source video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			absPath, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}

			info, err := os.Stat(absPath)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("source video does not exist: %s", absPath)
				}
				return fmt.Errorf("inspect source video: %w", err)
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory", absPath)
			}
			ext := strings.ToLower(filepath.Ext(info.Name()))
			if _, ok := sourceVideoExtensions[ext]; !ok {
				return fmt.Errorf("unsupported video extension %q", ext)
			}

			entities, err := parseEntityFlags(entityFlags)
			if err != nil {
				return err
			}

			return ctx.withEngine(func(eng *engine.Engine) error {
				job, err := eng.Create(cmd.Context(), engine.CreateRequest{
					SourceVideo: absPath,
					StylePrompt: stylePrompt,
					VideoModel:  videoModel,
					Entities:    entities,
				})
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, api.JobResponse{Job: api.FromJob(job)})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Created job %s with %d shots (%s)\n", job.ID, len(job.Shots), filepath.Base(absPath))
				fmt.Fprintf(out, "Run `recut show %s` to inspect them.\n", job.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&stylePrompt, "style", "s", "", "Global style prompt applied to every shot")
	cmd.Flags().StringVarP(&videoModel, "model", "m", "", "Video generation model (defaults to the local mock pipeline)")
	cmd.Flags().StringArrayVarP(&entityFlags, "entity", "e", nil, "Recurring entity as id=reference-image (repeatable)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the created job as JSON")
	_ = cmd.MarkFlagRequired("style")
	return cmd
}

func parseEntityFlags(values []string) (map[string]workflow.Entity, error) {
	if len(values) == 0 {
		return nil, nil
	}
	entities := make(map[string]workflow.Entity, len(values))
	for _, value := range values {
		id, ref, ok := strings.Cut(value, "=")
		id = strings.TrimSpace(id)
		ref = strings.TrimSpace(ref)
		if !ok || id == "" || ref == "" {
			return nil, fmt.Errorf("invalid entity %q (expected id=reference-image)", value)
		}
		refPath, err := filepath.Abs(ref)
		if err != nil {
			return nil, fmt.Errorf("resolve entity reference %q: %w", ref, err)
		}
		entities[id] = workflow.Entity{ReferenceImage: refPath}
	}
	return entities, nil
}
