/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package service assembles the GitHub, retrieval and model layers into
// triage runs that the CLI and the HTTP server share.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/chainguard-dev/clog"
	"github.com/darshan8850/IssueWise/agents/metaagent"
	"github.com/darshan8850/IssueWise/agents/metrics"
	"github.com/darshan8850/IssueWise/agents/provider"
	"github.com/darshan8850/IssueWise/agents/triage"
	"github.com/darshan8850/IssueWise/config"
	"github.com/darshan8850/IssueWise/github/credentials"
	"github.com/darshan8850/IssueWise/github/issues"
	"github.com/darshan8850/IssueWise/github/ratelimit"
	"github.com/darshan8850/IssueWise/retriever"
)

// ProviderFactory returns the model provider named by selector.
type ProviderFactory func(ctx context.Context, selector string) (provider.Interface, metaagent.Entry, error)

// Service runs triage against GitHub with a per-run choice of provider.
type Service struct {
	issues          triage.IssueService
	retriever       retriever.Retriever
	providers       ProviderFactory
	providerConfig  metaagent.Config
	defaultProvider string
	maxSteps        int
	metrics         *metrics.GenAI
}

// Option configures a Service.
type Option func(*Service) error

// WithProviderFactory replaces the catalog-backed provider construction.
func WithProviderFactory(f ProviderFactory) Option {
	return func(s *Service) error {
		if f == nil {
			return errors.New("provider factory cannot be nil")
		}
		s.providers = f
		return nil
	}
}

// New wires the credential manager, issue gateway and retriever described
// by cfg.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Service, error) {
	signer, err := cfg.Signer()
	if err != nil {
		return nil, fmt.Errorf("configuring GitHub App: %w", err)
	}

	client := ratelimit.NewClient(cfg.RateLimitOptions()...)
	manager, err := credentials.New(signer, client, credentials.NewTokenCache(),
		credentials.WithBaseURL(cfg.GitHubAPIURL))
	if err != nil {
		return nil, fmt.Errorf("creating credential manager: %w", err)
	}
	gateway := issues.New(manager, client.Transport(), issues.WithBaseURL(manager.BaseURL()))

	retr, err := retriever.NewKeyword(gateway,
		retriever.WithTopN(cfg.RetrieverTopN),
		retriever.WithMaxBytes(cfg.RetrieverMaxBytes))
	if err != nil {
		return nil, fmt.Errorf("creating retriever: %w", err)
	}

	m := metrics.NewGenAI(metrics.MeterName)
	m.SetAttributeEnricher(metrics.IssueEnricher)

	s := &Service{
		issues:          gateway,
		retriever:       retr,
		providerConfig:  cfg.Providers(),
		defaultProvider: cfg.DefaultProvider,
		maxSteps:        cfg.MaxSteps,
		metrics:         m,
	}
	s.providers = func(ctx context.Context, selector string) (provider.Interface, metaagent.Entry, error) {
		return metaagent.New(ctx, selector, s.providerConfig)
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	clog.FromContext(ctx).With("app_id", signer.AppID()).
		With("github_api", manager.BaseURL()).
		With("default_provider", s.defaultProvider).
		Info("Triage service ready")
	return s, nil
}

// Models lists the provider catalog with the configured entries marked.
func (s *Service) Models() []metaagent.Availability {
	return metaagent.Available(s.providerConfig)
}

// DefaultProvider returns the selector used when a run names none.
func (s *Service) DefaultProvider() string {
	return s.defaultProvider
}

// Run triages one issue with the provider named by selector, or the default
// provider when selector is empty. Provider configuration errors are
// returned before any GitHub call is made, after a failure notification.
func (s *Service) Run(ctx context.Context, selector string, req triage.Request, notify func(triage.Notification)) (triage.Outcome, error) {
	if selector == "" {
		selector = s.defaultProvider
	}
	p, entry, err := s.providers(ctx, selector)
	if err != nil {
		return triage.FailedOutcome(err, notify), err
	}

	registry, err := triage.NewRegistry(s.issues, s.retriever)
	if err != nil {
		return triage.FailedOutcome(err, notify), err
	}
	orch, err := triage.New(p, registry,
		triage.WithMaxSteps(s.maxSteps),
		triage.WithProviderName(entry.Name),
		triage.WithMetrics(s.metrics))
	if err != nil {
		return triage.FailedOutcome(err, notify), err
	}
	return orch.Run(ctx, req, notify)
}
