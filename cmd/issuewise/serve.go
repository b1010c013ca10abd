/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"fmt"

	"github.com/darshan8850/IssueWise/server"
	"github.com/darshan8850/IssueWise/service"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the triage HTTP API",
		Long: `Serve the triage HTTP API until interrupted.

Endpoints:
  POST /api/v1/triage   run triage; add ?stream=true for NDJSON progress
  GET  /api/v1/models   list providers
  GET  /healthz         liveness
  GET  /metrics         Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if cmd.Flags().Changed("port") {
				a.cfg.Port = port
			}

			svc, err := service.New(ctx, a.cfg)
			if err != nil {
				return err
			}
			return server.New(ctx, svc).ListenAndServe(ctx, fmt.Sprintf(":%d", a.cfg.Port))
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides PORT)")
	return cmd
}
