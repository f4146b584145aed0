package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"recut/internal/engine"
)

func newRefreshCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Rebuild the job registry from the documents on disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(func(eng *engine.Engine) error {
				count, err := eng.RefreshIndex(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d job(s)\n", count)
				return nil
			})
		},
	}
}
