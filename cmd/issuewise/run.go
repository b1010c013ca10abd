/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/darshan8850/IssueWise/agents/triage"
	"github.com/darshan8850/IssueWise/service"
	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		ref      string
		selector string
		output   string
	)
	cmd := &cobra.Command{
		Use:   "run ISSUE_URL",
		Short: "Triage one issue and post the reply",
		Example: `  issuewise run https://github.com/octo/app/issues/7
  issuewise run https://github.com/octo/app/issues/7 --provider claude --ref develop -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validOutput(output); err != nil {
				return err
			}
			ctx := cmd.Context()

			svc, err := service.New(ctx, a.cfg)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			var notify func(triage.Notification)
			if output == outputText {
				notify = func(n triage.Notification) {
					fmt.Fprintln(w, n.Message)
				}
			}

			out, runErr := svc.Run(ctx, selector, triage.Request{IssueURL: args[0], Ref: ref}, notify)
			if output != outputText {
				if err := writeStructured(w, output, out); err != nil {
					return err
				}
				return runErr
			}
			if err := writeSummary(w, out); err != nil {
				return err
			}
			return runErr
		},
	}
	cmd.Flags().StringVar(&ref, "ref", triage.DefaultRef, "branch to read code context from")
	cmd.Flags().StringVarP(&selector, "provider", "p", "", "model provider (mistral, openai, claude, gemini); defaults to DEFAULT_PROVIDER")
	cmd.Flags().StringVarP(&output, "output", "o", outputText, "output format: text, json or yaml")
	return cmd
}

// writeSummary prints the tool calls of a run as a table followed by its
// final state.
func writeSummary(w io.Writer, out triage.Outcome) error {
	if len(out.Invocations) > 0 {
		fmt.Fprintln(w)
		rows := make([][]string, 0, len(out.Invocations))
		for _, inv := range out.Invocations {
			result := "ok"
			if !inv.Result.OK {
				result = inv.Result.Error
			}
			rows = append(rows, []string{strconv.Itoa(inv.Step), inv.Call.Name, inv.Call.ID, result})
		}
		if err := renderRows(newTable(w, "Step", "Tool", "Call", "Result"), rows); err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "\nRun %s on %s: %s after %d step(s)", out.RunID, out.Issue, out.State, out.Steps)
	if out.CommentID != 0 {
		fmt.Fprintf(w, ", comment %d", out.CommentID)
	}
	fmt.Fprintln(w)
	return nil
}
