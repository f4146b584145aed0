package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"recut/internal/api"
	"recut/internal/engine"
)

func newChatCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "chat <job> <message...>",
		Short: "Describe an edit in plain language and let the director agent apply it",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			director := ctx.chatAgent(cfg, ctx.commandLogger(cfg))
			if director == nil {
				return errors.New("chat needs the generation service: set generation.api_key in the config")
			}
			jobID := args[0]
			message := strings.Join(args[1:], " ")

			return ctx.withEngine(func(eng *engine.Engine) error {
				job, err := eng.Get(cmd.Context(), jobID)
				if err != nil {
					return err
				}
				proposal, err := director.Propose(cmd.Context(), message, job)
				if err != nil {
					return err
				}

				var applied []engine.EditOutcome
				if len(proposal.Ops) > 0 {
					report, err := eng.ApplyEdits(cmd.Context(), jobID, proposal.Ops)
					if err != nil {
						return err
					}
					applied = report.Applied
					job = report.Job
				}

				if jsonOut {
					return writeJSON(cmd, api.ChatResponse{
						Applied: api.FromEditOutcomes(applied),
						Skipped: api.FromSkippedDirectives(proposal.Skipped),
						Job:     api.FromJob(job),
					})
				}

				out := cmd.OutOrStdout()
				if len(applied) == 0 && len(proposal.Skipped) == 0 {
					fmt.Fprintln(out, "No edits proposed")
					return nil
				}
				for _, outcome := range applied {
					fmt.Fprintf(out, "%s: %d shot(s) invalidated\n", outcome.Op, outcome.Affected)
				}
				for _, skipped := range proposal.Skipped {
					fmt.Fprintf(out, "skipped %s: %s\n", skipped.Op, skipped.Reason)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the chat result as JSON")
	return cmd
}
