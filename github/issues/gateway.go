/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package issues reads and comments on GitHub issues as an App installation.
package issues

import (
	"context"
	"fmt"
	"net/http"

	"github.com/chainguard-dev/clog"
	"github.com/darshan8850/IssueWise/github/credentials"
	"github.com/google/go-github/v84/github"
	"golang.org/x/oauth2"
)

// Credentials resolves installations and vends their tokens.
type Credentials interface {
	ResolveInstallation(ctx context.Context, owner, repo string) (int64, error)
	TokenSource(ctx context.Context, installationID int64) oauth2.TokenSource
}

// Details is the subset of an issue that triage needs.
type Details struct {
	Title string
	Body  string
}

// Description is the canonical text of the issue: its title and body.
func (d Details) Description() string {
	return d.Title + "\n" + d.Body
}

// Gateway performs authenticated issue and repository reads and comment
// writes.
type Gateway struct {
	creds     Credentials
	transport http.RoundTripper
	baseURL   string
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithBaseURL points the gateway at a GitHub API other than api.github.com.
func WithBaseURL(base string) Option {
	return func(g *Gateway) {
		g.baseURL = base
	}
}

// New creates a Gateway. transport is the rate-limited round tripper that
// carries every call; installation tokens are layered on top of it.
func New(creds Credentials, transport http.RoundTripper, opts ...Option) *Gateway {
	g := &Gateway{
		creds:     creds,
		transport: transport,
		baseURL:   credentials.DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) client(ctx context.Context, owner, repo string) (*github.Client, error) {
	id, err := g.creds.ResolveInstallation(ctx, owner, repo)
	if err != nil {
		return nil, err
	}
	return credentials.NewGitHubClient(&http.Client{
		Transport: &oauth2.Transport{
			Source: g.creds.TokenSource(ctx, id),
			Base:   g.transport,
		},
	}, g.baseURL)
}

// FetchDetails returns the title and body of the referenced issue.
func (g *Gateway) FetchDetails(ctx context.Context, ref Reference) (Details, error) {
	client, err := g.client(ctx, ref.Owner, ref.Repo)
	if err != nil {
		return Details{}, err
	}

	issue, resp, err := client.Issues.Get(ctx, ref.Owner, ref.Repo, ref.Number)
	if err != nil {
		return Details{}, classify("fetching issue", ref.String(), resp, err)
	}

	clog.FromContext(ctx).With("issue", ref.String()).Info("Fetched issue details")
	return Details{Title: issue.GetTitle(), Body: issue.GetBody()}, nil
}

// PostComment adds a comment to the referenced issue and returns its id.
// The call is made exactly once; a failure is returned to the caller rather
// than retried, since a retry after an ambiguous failure may post twice.
func (g *Gateway) PostComment(ctx context.Context, ref Reference, body string) (int64, error) {
	client, err := g.client(ctx, ref.Owner, ref.Repo)
	if err != nil {
		return 0, err
	}

	comment, resp, err := client.Issues.CreateComment(ctx, ref.Owner, ref.Repo, ref.Number, &github.IssueComment{
		Body: github.Ptr(body),
	})
	if err != nil {
		return 0, classify("posting comment", ref.String(), resp, err)
	}
	if resp.StatusCode != http.StatusCreated {
		return 0, &RemoteError{Op: "posting comment", StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	clog.FromContext(ctx).With("issue", ref.String()).
		With("comment_id", comment.GetID()).
		Info("Posted comment")
	return comment.GetID(), nil
}

// ListFiles returns the path of every blob in the tree at ref.
func (g *Gateway) ListFiles(ctx context.Context, owner, repo, ref string) ([]string, error) {
	client, err := g.client(ctx, owner, repo)
	if err != nil {
		return nil, err
	}

	tree, resp, err := client.Git.GetTree(ctx, owner, repo, ref, true)
	if err != nil {
		return nil, classify("listing repository files", fmt.Sprintf("%s/%s@%s", owner, repo, ref), resp, err)
	}
	if tree.GetTruncated() {
		clog.FromContext(ctx).With("owner", owner).With("repo", repo).With("ref", ref).
			Warn("Repository tree was truncated")
	}

	paths := make([]string, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		if e.GetType() == "blob" {
			paths = append(paths, e.GetPath())
		}
	}
	return paths, nil
}

// FileContent returns the decoded contents of path at ref.
func (g *Gateway) FileContent(ctx context.Context, owner, repo, path, ref string) (string, error) {
	client, err := g.client(ctx, owner, repo)
	if err != nil {
		return "", err
	}

	resource := fmt.Sprintf("%s/%s@%s:%s", owner, repo, ref, path)
	file, _, resp, err := client.Repositories.GetContents(ctx, owner, repo, path, &github.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		return "", classify("fetching file content", resource, resp, err)
	}
	if file == nil {
		return "", &RemoteError{Op: "fetching file content", StatusCode: resp.StatusCode, Message: resource + " is a directory"}
	}

	content, err := file.GetContent()
	if err != nil {
		return "", fmt.Errorf("decoding %s: %w", resource, err)
	}
	return content, nil
}
