/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Command issuewise triages GitHub issues with a language model, either
// once from the command line or behind an HTTP API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/chainguard-dev/clog"
	"github.com/darshan8850/IssueWise/config"
	"github.com/spf13/cobra"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cancel()
		os.Exit(1)
	}
}

// app carries state shared by the subcommands once the root command has
// loaded it.
type app struct {
	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "issuewise",
		Short: "Triage GitHub issues with a language model",
		Long: `IssueWise reads a GitHub issue, gathers related code from the repository
and posts a reply, using one of several model providers.

Configuration is read from the environment: APP_ID and APP_PRIVATE_KEY (or
APP_PRIVATE_KEY_FILE) identify the GitHub App, and MISTRAL_API_KEY,
OPENAI_API_KEY, CLAUDE_API_KEY and GEMINI_API_KEY enable providers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return err
			}
			a.cfg = cfg

			lvl, err := cfg.Level()
			if err != nil {
				return err
			}
			logger := clog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: lvl}))
			cmd.SetContext(clog.WithLogger(cmd.Context(), logger))
			return nil
		},
	}

	cmd.AddCommand(
		newRunCmd(a),
		newServeCmd(a),
		newModelsCmd(a),
	)
	return cmd
}
