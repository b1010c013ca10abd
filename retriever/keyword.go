/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package retriever

import (
	"cmp"
	"context"
	"fmt"
	"path"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultTopN is how many scored files are kept besides the README.
	DefaultTopN = 2
	// DefaultMaxBytes bounds the content of each snippet.
	DefaultMaxBytes = 8 * 1024
	// DefaultConcurrency bounds parallel content fetches.
	DefaultConcurrency = 4

	readme = "README.md"
)

// IncludedExtensions are the file types considered for context.
var IncludedExtensions = map[string]bool{
	".py":   true,
	".js":   true,
	".ts":   true,
	".json": true,
	".md":   true,
	".txt":  true,
	".go":   true,
}

// stopwords are dropped from issue text before scoring.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "this": true,
	"that": true, "from": true, "when": true, "not": true, "are": true,
	"was": true, "but": true, "have": true, "has": true, "issue": true,
}

// Keyword ranks files by how many tokens their paths share with the issue
// text.
type Keyword struct {
	source      Source
	topN        int
	maxBytes    int
	concurrency int
}

var _ Retriever = (*Keyword)(nil)

// Option configures a Keyword retriever.
type Option func(*Keyword) error

// WithTopN sets how many scored files are returned besides the README.
func WithTopN(n int) Option {
	return func(k *Keyword) error {
		if n < 0 {
			return fmt.Errorf("top N must be non-negative, got %d", n)
		}
		k.topN = n
		return nil
	}
}

// WithMaxBytes bounds each snippet's content.
func WithMaxBytes(n int) Option {
	return func(k *Keyword) error {
		if n <= 0 {
			return fmt.Errorf("max bytes must be positive, got %d", n)
		}
		k.maxBytes = n
		return nil
	}
}

// WithConcurrency bounds parallel content fetches.
func WithConcurrency(n int) Option {
	return func(k *Keyword) error {
		if n <= 0 {
			return fmt.Errorf("concurrency must be positive, got %d", n)
		}
		k.concurrency = n
		return nil
	}
}

// NewKeyword creates a Keyword retriever reading from source.
func NewKeyword(source Source, opts ...Option) (*Keyword, error) {
	k := &Keyword{
		source:      source,
		topN:        DefaultTopN,
		maxBytes:    DefaultMaxBytes,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		if err := opt(k); err != nil {
			return nil, err
		}
	}
	return k, nil
}

// Retrieve implements Retriever. Files that cannot be read are skipped.
func (k *Keyword) Retrieve(ctx context.Context, owner, repo, ref, issueText string) ([]Snippet, error) {
	log := clog.FromContext(ctx).With("owner", owner).With("repo", repo).With("ref", ref)

	files, err := k.source.ListFiles(ctx, owner, repo, ref)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}

	selected := Select(files, issueText, k.topN)
	log.With("candidates", len(files)).With("selected", selected).Info("Selected context files")

	snippets := make([]*Snippet, len(selected))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(k.concurrency)
	for i, p := range selected {
		eg.Go(func() error {
			content, err := k.source.FileContent(egCtx, owner, repo, p, ref)
			if err != nil {
				if egCtx.Err() != nil {
					return egCtx.Err()
				}
				log.With("path", p).With("error", err).Warn("Skipping file")
				return nil
			}
			s := truncate(p, content, k.maxBytes)
			snippets[i] = &s
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out := make([]Snippet, 0, len(snippets))
	for _, s := range snippets {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out, nil
}

// Select returns the README (when present) followed by up to topN files
// whose paths best match issueText. Only files with an included extension
// and a positive score are chosen.
func Select(files []string, issueText string, topN int) []string {
	terms := Tokenize(issueText)

	type scored struct {
		path  string
		score int
	}
	var candidates []scored
	hasReadme := false
	for _, f := range files {
		if f == readme {
			hasReadme = true
			continue
		}
		if !IncludedExtensions[strings.ToLower(path.Ext(f))] {
			continue
		}
		score := 0
		for tok := range Tokenize(f) {
			if terms[tok] {
				score++
			}
		}
		if score > 0 {
			candidates = append(candidates, scored{path: f, score: score})
		}
	}

	slices.SortStableFunc(candidates, func(a, b scored) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		if c := cmp.Compare(len(a.path), len(b.path)); c != 0 {
			return c
		}
		return strings.Compare(a.path, b.path)
	})

	var out []string
	if hasReadme {
		out = append(out, readme)
	}
	for _, c := range candidates[:min(topN, len(candidates))] {
		out = append(out, c.path)
	}
	return out
}

// Tokenize lower-cases s and splits it into alphanumeric words of at least
// three characters, dropping common stopwords.
func Tokenize(s string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(w) >= 3 && !stopwords[w] {
			out[w] = true
		}
	}
	return out
}

// truncate cuts content to at most maxBytes without splitting a rune.
func truncate(p, content string, maxBytes int) Snippet {
	if len(content) <= maxBytes {
		return Snippet{Path: p, Content: content}
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return Snippet{Path: p, Content: content[:cut], Truncated: true}
}
