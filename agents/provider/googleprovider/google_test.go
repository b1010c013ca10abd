/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package googleprovider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/darshan8850/IssueWise/agents/provider"
	"github.com/darshan8850/IssueWise/agents/toolcall"
	"github.com/google/go-cmp/cmp"
	"google.golang.org/genai"
)

type contextArgs struct {
	Owner            string `json:"owner" jsonschema:"required"`
	Repo             string `json:"repo" jsonschema:"required"`
	Ref              string `json:"ref" jsonschema:"required"`
	IssueDescription string `json:"issue_description" jsonschema:"required"`
}

func TestToContentsGroupsFunctionResponses(t *testing.T) {
	msgs := []provider.Message{
		{Role: provider.RoleUser, Content: "triage o/r#1"},
		{Role: provider.RoleAssistant, Content: "Looking.", ToolCalls: []toolcall.ToolCall{
			{ID: "a", Name: "fetch_issue", Args: map[string]any{"issue_url": "u"}},
			{ID: "b", Name: "retrieve_context", Args: map[string]any{"ref": "main"}},
		}},
		{Role: provider.RoleTool, ToolCallID: "a", ToolName: "fetch_issue", Content: `{"ok":true,"result":{"title":"t"}}`},
		{Role: provider.RoleTool, ToolCallID: "b", ToolName: "retrieve_context", Content: "plain text"},
		{Role: provider.RoleUser, Content: "continue"},
	}

	got, err := toContents(msgs)
	if err != nil {
		t.Fatalf("toContents() error = %v", err)
	}

	var roles []string
	for _, c := range got {
		roles = append(roles, fmt.Sprintf("%s:%d", c.Role, len(c.Parts)))
	}
	if diff := cmp.Diff([]string{"user:1", "model:3", "user:2", "user:1"}, roles); diff != "" {
		t.Errorf("contents mismatch (-want +got):\n%s", diff)
	}

	responses := got[2].Parts
	if diff := cmp.Diff(map[string]any{"ok": true, "result": map[string]any{"title": "t"}}, responses[0].FunctionResponse.Response); diff != "" {
		t.Errorf("object response mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"output": "plain text"}, responses[1].FunctionResponse.Response); diff != "" {
		t.Errorf("text response mismatch (-want +got):\n%s", diff)
	}
	if responses[1].FunctionResponse.ID != "b" || responses[1].FunctionResponse.Name != "retrieve_context" {
		t.Errorf("function response = %+v, want id b name retrieve_context", responses[1].FunctionResponse)
	}
}

func TestFromResponse(t *testing.T) {
	result := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role: "model",
				Parts: []*genai.Part{
					{Text: "thinking...", Thought: true},
					{Text: "I will fetch it."},
					{FunctionCall: &genai.FunctionCall{ID: "given", Name: "fetch_issue", Args: map[string]any{"issue_url": "u"}}},
					{FunctionCall: &genai.FunctionCall{Name: "get_issue_details"}},
				},
			},
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{PromptTokenCount: 40, CandidatesTokenCount: 8},
	}

	got, err := fromResponse(result)
	if err != nil {
		t.Fatalf("fromResponse() error = %v", err)
	}
	if got.Content != "I will fetch it." {
		t.Errorf("Content = %q, want %q", got.Content, "I will fetch it.")
	}
	if got.Usage != (provider.Usage{PromptTokens: 40, CompletionTokens: 8}) {
		t.Errorf("Usage = %+v", got.Usage)
	}
	if len(got.ToolCalls) != 2 {
		t.Fatalf("ToolCalls = %d, want 2", len(got.ToolCalls))
	}
	if got.ToolCalls[0].ID != "given" {
		t.Errorf("first call id = %q, want %q", got.ToolCalls[0].ID, "given")
	}
	if !strings.HasPrefix(got.ToolCalls[1].ID, "call_") {
		t.Errorf("synthesised id = %q, want call_ prefix", got.ToolCalls[1].ID)
	}
	if got.ToolCalls[1].Args == nil {
		t.Error("synthesised call has nil args, want empty map")
	}
}

func TestFromResponseEmpty(t *testing.T) {
	for _, r := range []*genai.GenerateContentResponse{nil, {}, {Candidates: []*genai.Candidate{{}}}} {
		if _, err := fromResponse(r); err == nil {
			t.Errorf("fromResponse(%+v) error = nil, want error", r)
		}
	}
}

func TestBuildRequest(t *testing.T) {
	p := &Provider{model: "gemini-2.5-flash"}
	tools := []toolcall.Definition{toolcall.Define[contextArgs]("retrieve_context", "Retrieve code context")}

	tests := []struct {
		name     string
		mode     provider.ToolMode
		wantMode genai.FunctionCallingConfigMode
	}{
		{name: "auto", mode: provider.ToolModeAuto, wantMode: genai.FunctionCallingConfigModeAuto},
		{name: "required", mode: provider.ToolModeRequired, wantMode: genai.FunctionCallingConfigModeAny},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contents, config, err := p.buildRequest(provider.Request{
				System:   "You triage issues.",
				Messages: []provider.Message{{Role: provider.RoleUser, Content: "hi"}},
				Tools:    tools,
				ToolMode: tt.mode,
			})
			if err != nil {
				t.Fatalf("buildRequest() error = %v", err)
			}
			if len(contents) != 1 {
				t.Errorf("contents = %d, want 1", len(contents))
			}
			if got := config.SystemInstruction.Parts[0].Text; got != "You triage issues." {
				t.Errorf("system = %q", got)
			}
			decl := config.Tools[0].FunctionDeclarations[0]
			if decl.Name != "retrieve_context" {
				t.Errorf("declaration name = %q", decl.Name)
			}
			if diff := cmp.Diff([]string{"owner", "repo", "ref", "issue_description"}, decl.Parameters.Required); diff != "" {
				t.Errorf("required mismatch (-want +got):\n%s", diff)
			}
			if got := config.ToolConfig.FunctionCallingConfig.Mode; got != tt.wantMode {
				t.Errorf("mode = %v, want %v", got, tt.wantMode)
			}
		})
	}
}

func TestIsRetryableGeminiError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{err: nil, want: false},
		{err: genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"}, want: true},
		{err: fmt.Errorf("wrapped: %w", genai.APIError{Code: 503}), want: true},
		{err: genai.APIError{Code: 400, Status: "INVALID_ARGUMENT"}, want: false},
		{err: errors.New("rpc error: code = Unavailable desc = UNAVAILABLE"), want: true},
		{err: errors.New("permission denied"), want: false},
	}
	for _, tt := range tests {
		if got := isRetryableGeminiError(tt.err); got != tt.want {
			t.Errorf("isRetryableGeminiError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestNew(t *testing.T) {
	ctx := context.Background()
	if _, err := New(ctx, "", "gemini-2.5-flash"); err == nil {
		t.Error("New() with no key: error = nil, want error")
	}
	if _, err := New(ctx, "k", "gpt-4"); err == nil {
		t.Error("New() with non-Gemini model: error = nil, want error")
	}
	p, err := New(ctx, "k", "gemini-2.5-flash", WithBaseURL("http://127.0.0.1:1"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if p.Model() != "gemini-2.5-flash" {
		t.Errorf("Model() = %q", p.Model())
	}
}
