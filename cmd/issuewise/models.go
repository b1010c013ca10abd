/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"github.com/darshan8850/IssueWise/agents/metaagent"
	"github.com/spf13/cobra"
)

func newModelsCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the model providers and whether they are configured",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validOutput(output); err != nil {
				return err
			}
			models := metaagent.Available(a.cfg.Providers())
			if output != outputText {
				return writeStructured(cmd.OutOrStdout(), output, map[string]any{
					"default": a.cfg.DefaultProvider,
					"models":  models,
				})
			}

			rows := make([][]string, 0, len(models))
			for _, m := range models {
				selector := m.Selector
				if selector == a.cfg.DefaultProvider {
					selector += " (default)"
				}
				configured := "no"
				if m.Configured {
					configured = "yes"
				}
				rows = append(rows, []string{selector, m.Name, m.Model, configured})
			}
			return renderRows(newTable(cmd.OutOrStdout(), "Provider", "Name", "Model", "Configured"), rows)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputText, "output format: text, json or yaml")
	return cmd
}
