package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"recut/internal/config"
	"recut/internal/daemonrun"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		configFlag  string
		logLevel    string
		development bool
	)

	cmd := &cobra.Command{
		Use:           "recutd",
		Short:         "Run the recut daemon: job API plus generation stage execution",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := config.Load(configFlag)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:    logLevel,
				Development: development,
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configFlag, "config", "c", "", "Path to the TOML configuration file")
	flags.StringVar(&logLevel, "log-level", "", "Override the configured log level for this run")
	flags.BoolVar(&development, "dev", false, "Verbose development logging")
	return cmd
}
