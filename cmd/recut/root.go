package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := newCommandContext(&configFlag)
	return buildRootCommand(ctx, &configFlag)
}

func buildRootCommand(ctx *commandContext, configFlag *string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "recut",
		Short:         "Recut video remix CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(configFlag, "config", "c", "", "Configuration file path")

	subcommands := []*cobra.Command{
		newCreateCommand(ctx),
		newListCommand(ctx),
		newShowCommand(ctx),
	}
	subcommands = append(subcommands, newEditCommands(ctx)...)
	subcommands = append(subcommands,
		newChatCommand(ctx),
		newRunCommand(ctx),
		newMergeCommand(ctx),
		newRefreshCommand(ctx),
		newStatusCommand(ctx),
		newConfigCommand(ctx),
	)
	rootCmd.AddCommand(subcommands...)

	return rootCmd
}
