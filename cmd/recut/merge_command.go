package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"recut/internal/api"
	"recut/internal/engine"
)

func newMergeCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "merge <job>",
		Short: "Concatenate every rendered clip into the final video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(func(eng *engine.Engine) error {
				output, err := eng.Merge(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, api.MergeResponse{JobID: args[0], Output: output})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Merged output written to %s\n", output)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the merge result as JSON")
	return cmd
}
