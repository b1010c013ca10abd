/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package retriever selects repository files relevant to an issue and
// returns their contents as context snippets.
package retriever

import (
	"context"
)

// Snippet is a bounded excerpt of one repository file.
type Snippet struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	// Truncated is set when Content was cut to fit the byte bound.
	Truncated bool `json:"truncated,omitempty"`
}

// Retriever returns the snippets of owner/repo at ref most relevant to
// issueText.
type Retriever interface {
	Retrieve(ctx context.Context, owner, repo, ref, issueText string) ([]Snippet, error)
}

// Source lists and reads repository files.
type Source interface {
	ListFiles(ctx context.Context, owner, repo, ref string) ([]string, error)
	FileContent(ctx context.Context, owner, repo, path, ref string) (string, error)
}
