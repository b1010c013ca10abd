/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metaagent

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/darshan8850/IssueWise/agents/provider"
	"github.com/darshan8850/IssueWise/agents/provider/claudeprovider"
	"github.com/darshan8850/IssueWise/agents/provider/googleprovider"
	"github.com/darshan8850/IssueWise/agents/provider/openaiprovider"
)

// Availability pairs a catalog entry with whether it can be used.
type Availability struct {
	Entry
	Configured bool `json:"configured"`
}

// Available lists the catalog, marking the entries that have an API key,
// with any model override applied.
func Available(cfg Config) []Availability {
	out := make([]Availability, 0, len(catalog))
	for _, e := range catalog {
		s := cfg[e.Selector]
		if s.Model != "" {
			e.Model = s.Model
		}
		out = append(out, Availability{Entry: e, Configured: s.APIKey != ""})
	}
	return out
}

// New returns the provider adapter for selector. An empty selector picks
// DefaultSelector.
func New(ctx context.Context, selector string, cfg Config) (provider.Interface, Entry, error) {
	if selector == "" {
		selector = DefaultSelector
	}
	entry, ok := Lookup(selector)
	if !ok {
		known := make([]string, 0, len(catalog))
		for _, e := range catalog {
			known = append(known, strconv.Quote(e.Selector))
		}
		slices.Sort(known)
		return nil, Entry{}, &ConfigurationError{Selector: selector, Reason: "unknown provider, expected one of " + strings.Join(known, ", ")}
	}

	s := cfg[entry.Selector]
	if s.APIKey == "" {
		return nil, entry, &ConfigurationError{Selector: entry.Selector, Reason: "missing API key"}
	}
	if s.Model != "" {
		entry.Model = s.Model
	}

	var (
		p   provider.Interface
		err error
	)
	switch entry.Selector {
	case Mistral:
		var opts []openaiprovider.Option
		if s.BaseURL != "" {
			opts = append(opts, openaiprovider.WithBaseURL(s.BaseURL))
		}
		p, err = openaiprovider.NewMistral(s.APIKey, entry.Model, opts...)
	case OpenAI:
		var opts []openaiprovider.Option
		if s.BaseURL != "" {
			opts = append(opts, openaiprovider.WithBaseURL(s.BaseURL))
		}
		p, err = openaiprovider.New(s.APIKey, entry.Model, opts...)
	case Claude:
		var opts []claudeprovider.Option
		if s.BaseURL != "" {
			opts = append(opts, claudeprovider.WithBaseURL(s.BaseURL))
		}
		p, err = claudeprovider.New(s.APIKey, entry.Model, opts...)
	case Gemini:
		var opts []googleprovider.Option
		if s.BaseURL != "" {
			opts = append(opts, googleprovider.WithBaseURL(s.BaseURL))
		}
		p, err = googleprovider.New(ctx, s.APIKey, entry.Model, opts...)
	}
	if err != nil {
		return nil, entry, &ConfigurationError{Selector: entry.Selector, Reason: err.Error()}
	}

	clog.FromContext(ctx).With("provider", entry.Name).
		With("model", entry.Model).
		Info("Selected model provider")
	return p, entry, nil
}
