/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/darshan8850/IssueWise/github/ratelimit"
	"github.com/google/go-github/v84/github"
	"golang.org/x/oauth2"
)

// DefaultBaseURL is the public GitHub REST endpoint.
const DefaultBaseURL = "https://api.github.com"

// Manager resolves App installations and hands out installation tokens.
type Manager struct {
	signer  *Signer
	client  *ratelimit.Client
	cache   *TokenCache
	baseURL string
	now     func() time.Time

	// apps is authenticated as the App itself, for installation lookups.
	apps *github.Client

	mu            sync.Mutex
	installations map[string]int64
}

// Option configures a Manager.
type Option func(*Manager) error

// WithBaseURL points the manager at a GitHub API other than api.github.com.
func WithBaseURL(base string) Option {
	return func(m *Manager) error {
		if _, err := url.Parse(base); err != nil {
			return fmt.Errorf("parsing base URL %q: %w", base, err)
		}
		m.baseURL = strings.TrimSuffix(base, "/")
		return nil
	}
}

// WithClock overrides the time source used for assertions and cache checks.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) error {
		m.now = now
		return nil
	}
}

// New creates a Manager. The cache is owned by the caller so that it can be
// shared or inspected; every token the manager mints is stored in it.
func New(signer *Signer, client *ratelimit.Client, cache *TokenCache, opts ...Option) (*Manager, error) {
	if signer == nil {
		return nil, errors.New("signer is required")
	}
	if client == nil {
		return nil, errors.New("rate-limited client is required")
	}
	if cache == nil {
		return nil, errors.New("token cache is required")
	}

	m := &Manager{
		signer:        signer,
		client:        client,
		cache:         cache,
		baseURL:       DefaultBaseURL,
		now:           time.Now,
		installations: make(map[string]int64),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	signer.now = m.now

	apps, err := NewGitHubClient(&http.Client{
		Transport: &oauth2.Transport{
			Source: signer.TokenSource(),
			Base:   client.Transport(),
		},
	}, m.baseURL)
	if err != nil {
		return nil, err
	}
	m.apps = apps
	return m, nil
}

// BaseURL returns the GitHub API endpoint the manager talks to.
func (m *Manager) BaseURL() string {
	return m.baseURL
}

// HTTPClient returns the rate-limited client used for GitHub calls.
func (m *Manager) HTTPClient() *ratelimit.Client {
	return m.client
}

// ResolveInstallation returns the id of the App installation covering
// owner/repo. The repository installation is tried first, then the
// installation on the owning organization. Results are memoised.
func (m *Manager) ResolveInstallation(ctx context.Context, owner, repo string) (int64, error) {
	key := owner + "/" + repo

	m.mu.Lock()
	id, ok := m.installations[key]
	m.mu.Unlock()
	if ok {
		return id, nil
	}

	log := clog.FromContext(ctx).With("owner", owner).With("repo", repo)

	inst, resp, err := m.apps.Apps.FindRepositoryInstallation(ctx, owner, repo)
	if err != nil && resp != nil && resp.StatusCode == http.StatusNotFound {
		log.Info("No repository installation, trying organization installation")
		var orgErr error
		inst, _, orgErr = m.apps.Apps.FindOrganizationInstallation(ctx, owner)
		if orgErr != nil {
			err = fmt.Errorf("repository lookup: %w; organization lookup: %w", err, orgErr)
		} else {
			err = nil
		}
	}
	if err != nil {
		return 0, m.configurationError(ctx, owner, repo, err)
	}

	id = inst.GetID()
	log.With("installation_id", id).Info("Resolved GitHub App installation")

	m.mu.Lock()
	m.installations[key] = id
	m.mu.Unlock()
	return id, nil
}

// configurationError builds an AuthConfigurationError listing the
// installations the App does have. A listing failure is recorded alongside
// the original error and never replaces it.
func (m *Manager) configurationError(ctx context.Context, owner, repo string, cause error) error {
	ae := &AuthConfigurationError{Owner: owner, Repo: repo, Err: cause}

	installs, _, err := m.apps.Apps.ListInstallations(ctx, &github.ListOptions{PerPage: 100})
	if err != nil {
		clog.FromContext(ctx).With("error", err).Warn("Failed to list app installations")
		ae.ListErr = err
		return ae
	}
	for _, inst := range installs {
		ae.Known = append(ae.Known, fmt.Sprintf("%s (%d)", inst.GetAccount().GetLogin(), inst.GetID()))
	}
	return ae
}

// Token returns a valid access token for the installation, minting a new
// one when the cached token is missing or about to expire.
func (m *Manager) Token(ctx context.Context, installationID int64) (string, error) {
	tok, err := m.cache.GetOrRefresh(ctx, installationID, m.now, func(ctx context.Context) (InstallationToken, error) {
		return m.exchange(ctx, installationID)
	})
	if err != nil {
		return "", err
	}
	return tok.Token, nil
}

func (m *Manager) exchange(ctx context.Context, installationID int64) (InstallationToken, error) {
	assertion, err := m.signer.Assertion(m.now())
	if err != nil {
		return InstallationToken{}, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+assertion)
	headers.Set("Accept", "application/vnd.github.v3+json")
	headers.Set("X-GitHub-Api-Version", "2022-11-28")

	endpoint := fmt.Sprintf("%s/app/installations/%d/access_tokens", m.baseURL, installationID)
	resp, err := m.client.Request(ctx, http.MethodPost, endpoint, headers, nil)
	if err != nil {
		return InstallationToken{}, fmt.Errorf("exchanging assertion for installation %d: %w", installationID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return InstallationToken{}, fmt.Errorf("reading token response: %w", err)
	}
	if resp.StatusCode != http.StatusCreated {
		return InstallationToken{}, &TokenExchangeError{
			InstallationID: installationID,
			StatusCode:     resp.StatusCode,
			Body:           string(body),
		}
	}

	var tok InstallationToken
	if err := json.Unmarshal(body, &tok); err != nil {
		return InstallationToken{}, fmt.Errorf("parsing token response: %w", err)
	}
	if tok.Token == "" {
		return InstallationToken{}, &TokenExchangeError{
			InstallationID: installationID,
			StatusCode:     resp.StatusCode,
			Body:           "response carried no token",
		}
	}

	clog.FromContext(ctx).With("installation_id", installationID).
		With("expires_at", tok.ExpiresAt).
		Info("Minted installation token")
	return tok, nil
}

// TokenSource adapts Token to oauth2 so that go-github clients can be
// authenticated as the installation.
func (m *Manager) TokenSource(ctx context.Context, installationID int64) oauth2.TokenSource {
	return &installationSource{ctx: ctx, m: m, id: installationID}
}

type installationSource struct {
	ctx context.Context
	m   *Manager
	id  int64
}

func (s *installationSource) Token() (*oauth2.Token, error) {
	tok, err := s.m.Token(s.ctx, s.id)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: tok, TokenType: "Bearer"}, nil
}

// NewGitHubClient returns a go-github client over httpClient rooted at base.
func NewGitHubClient(httpClient *http.Client, base string) (*github.Client, error) {
	u, err := url.Parse(strings.TrimSuffix(base, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parsing GitHub API URL %q: %w", base, err)
	}
	client := github.NewClient(httpClient)
	client.BaseURL = u
	return client, nil
}
