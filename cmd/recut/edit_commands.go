package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"recut/internal/api"
	"recut/internal/edits"
	"recut/internal/engine"
)

// newEditCommands returns one command per edit operation. Each applies a
// single-op batch; the engine resets and cleans any shot the op touches.
func newEditCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newSetStyleCommand(ctx),
		newSwapSubjectCommand(ctx),
		newEditShotCommand(ctx),
		newEnhanceShotCommand(ctx),
		newReplaceEntityCommand(ctx),
	}
}

func newSetStyleCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "set-style <job> <prompt>",
		Short: "Replace the global style prompt and invalidate every shot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return applyEditOps(cmd, ctx, args[0], jsonOut, edits.SetGlobalStyle{Value: args[1]})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the edit result as JSON")
	return cmd
}

func newSwapSubjectCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "swap-subject <job> <old> <new>",
		Short: "Rewrite a subject across every shot description that mentions it",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return applyEditOps(cmd, ctx, args[0], jsonOut, edits.GlobalSubjectSwap{
				OldSubject: args[1],
				NewSubject: args[2],
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the edit result as JSON")
	return cmd
}

func newEditShotCommand(ctx *commandContext) *cobra.Command {
	var description string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "edit-shot <job> <shot>",
		Short: "Rewrite one shot's description, or force a re-render without one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return applyEditOps(cmd, ctx, args[0], jsonOut, edits.UpdateShotParams{
				ShotID:      args[1],
				Description: description,
			})
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "New shot description (omit to keep the text and just invalidate)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the edit result as JSON")
	return cmd
}

func newEnhanceShotCommand(ctx *commandContext) *cobra.Command {
	var spatialInfo string
	var styleBoost string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "enhance-shot <job> <shot>",
		Short: "Append spatial or style fragments to one shot's description",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return applyEditOps(cmd, ctx, args[0], jsonOut, edits.EnhanceShotDescription{
				ShotID:      args[1],
				SpatialInfo: spatialInfo,
				StyleBoost:  styleBoost,
			})
		},
	}

	cmd.Flags().StringVar(&spatialInfo, "spatial", "", "Camera or framing detail to append")
	cmd.Flags().StringVar(&styleBoost, "style-boost", "", "Style emphasis to append")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the edit result as JSON")
	return cmd
}

func newReplaceEntityCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "replace-entity <job> <entity> <image>",
		Short: "Point an entity at a new reference image and invalidate its shots",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			refPath, err := filepath.Abs(args[2])
			if err != nil {
				return fmt.Errorf("resolve reference image: %w", err)
			}
			return applyEditOps(cmd, ctx, args[0], jsonOut, edits.ReplaceEntityRef{
				EntityID: args[1],
				NewRef:   refPath,
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the edit result as JSON")
	return cmd
}

func applyEditOps(cmd *cobra.Command, ctx *commandContext, jobID string, jsonOut bool, ops ...edits.Op) error {
	return ctx.withEngine(func(eng *engine.Engine) error {
		report, err := eng.ApplyEdits(cmd.Context(), jobID, ops)
		if err != nil {
			return err
		}
		if jsonOut {
			return writeJSON(cmd, api.EditResponse{
				Applied: api.FromEditOutcomes(report.Applied),
				Job:     api.FromJob(report.Job),
			})
		}
		out := cmd.OutOrStdout()
		for _, outcome := range report.Applied {
			fmt.Fprintf(out, "%s: %d shot(s) invalidated\n", outcome.Op, outcome.Affected)
		}
		return nil
	})
}
