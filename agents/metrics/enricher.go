/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
)

// AttributeEnricher enriches metric attributes with additional context.
// The enricher receives base attributes (model, tool) and returns an enriched set.
type AttributeEnricher func(ctx context.Context, baseAttrs []attribute.KeyValue) []attribute.KeyValue

type issueKey struct{}

// WithIssue records the issue being triaged on the context so that
// IssueEnricher can attach it to measurements.
func WithIssue(ctx context.Context, issue string) context.Context {
	return context.WithValue(ctx, issueKey{}, issue)
}

// IssueEnricher adds the repository of the issue recorded by WithIssue.
// Issue numbers are left off to keep cardinality bounded.
func IssueEnricher(ctx context.Context, baseAttrs []attribute.KeyValue) []attribute.KeyValue {
	issue, ok := ctx.Value(issueKey{}).(string)
	if !ok || issue == "" {
		return baseAttrs
	}
	repo := issue
	for i := len(issue) - 1; i >= 0; i-- {
		if issue[i] == '#' {
			repo = issue[:i]
			break
		}
	}
	return append(baseAttrs, attribute.String("repository", repo))
}
