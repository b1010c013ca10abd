/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.opentelemetry.io/otel/attribute"
)

func TestIssueEnricher(t *testing.T) {
	base := []attribute.KeyValue{attribute.String("model", "m")}

	tests := []struct {
		name string
		ctx  context.Context
		want []string
	}{{
		name: "no issue",
		ctx:  context.Background(),
		want: []string{"model=m"},
	}, {
		name: "issue reference",
		ctx:  WithIssue(context.Background(), "octo/hello#12"),
		want: []string{"model=m", "repository=octo/hello"},
	}, {
		name: "bare repository",
		ctx:  WithIssue(context.Background(), "octo/hello"),
		want: []string{"model=m", "repository=octo/hello"},
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, kv := range IssueEnricher(tt.ctx, append([]attribute.KeyValue(nil), base...)) {
				got = append(got, string(kv.Key)+"="+kv.Value.Emit())
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("IssueEnricher() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGenAIRecordsWithoutProvider(t *testing.T) {
	// The global meter provider is a no-op until one is installed, so every
	// recording call must be safe without any exporter configured.
	m := NewGenAI(MeterName)
	m.SetAttributeEnricher(IssueEnricher)
	ctx := WithIssue(context.Background(), "o/r#1")

	m.RecordTokens(ctx, "model", 10, 20)
	m.RecordToolCall(ctx, "model", "fetch_issue")
	m.RecordToolError(ctx, "model", "fetch_issue")
	m.RecordRun(ctx, "model", "finished")
}
