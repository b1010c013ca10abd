/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package triage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/darshan8850/IssueWise/agents/toolcall"
	"github.com/darshan8850/IssueWise/retriever"
	"github.com/google/go-cmp/cmp"
)

func invoke(t *testing.T, reg *toolcall.Registry, name string, args map[string]any) (any, error) {
	t.Helper()
	tool, ok := reg.Lookup(name)
	if !ok {
		t.Fatalf("tool %q not registered", name)
	}
	return tool.Handler(context.Background(), toolcall.ToolCall{ID: "t", Name: name, Args: args})
}

func TestToolDefinitions(t *testing.T) {
	reg, err := NewRegistry(&fakeIssues{}, &fakeRetriever{})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	want := map[string][]string{
		ToolFetchIssue:      {"issue_url"},
		ToolGetIssueDetails: {"owner", "repo", "issue_num"},
		ToolRetrieveContext: {"owner", "repo", "ref", "issue_description"},
		ToolPostComment:     {"owner", "repo", "issue_num", "comment_body"},
	}
	for _, def := range reg.Definitions() {
		if def.Description == "" {
			t.Errorf("%s has no description", def.Name)
		}
		if diff := cmp.Diff(want[def.Name], def.Required()); diff != "" {
			t.Errorf("%s required mismatch (-want +got):\n%s", def.Name, diff)
		}
	}
}

func TestFetchIssueTool(t *testing.T) {
	svc := &fakeIssues{details: fakeDetails}
	reg, _ := NewRegistry(svc, &fakeRetriever{})

	got, err := invoke(t, reg, ToolFetchIssue, map[string]any{"issue_url": issueURL})
	if err != nil {
		t.Fatalf("fetch_issue error = %v", err)
	}
	want := IssueResult{Owner: "octo", Repo: "app", IssueNum: 7, Title: fakeDetails.Title, Body: fakeDetails.Body}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("fetch_issue mismatch (-want +got):\n%s", diff)
	}

	_, err = invoke(t, reg, ToolFetchIssue, map[string]any{"issue_url": "not a url"})
	if err == nil || !strings.HasPrefix(err.Error(), "invalid issue_url") {
		t.Errorf("fetch_issue(bad url) error = %v", err)
	}
	if isFatal(err) {
		t.Error("a bad issue_url from the model must not be fatal")
	}
}

func TestGetIssueDetailsTool(t *testing.T) {
	reg, _ := NewRegistry(&fakeIssues{details: fakeDetails}, &fakeRetriever{})

	tests := []struct {
		name    string
		args    map[string]any
		wantErr string
	}{
		{name: "string number", args: map[string]any{"owner": "o", "repo": "r", "issue_num": "3"}},
		{name: "numeric number", args: map[string]any{"owner": "o", "repo": "r", "issue_num": float64(3)}},
		{name: "bad number", args: map[string]any{"owner": "o", "repo": "r", "issue_num": "three"}, wantErr: "not a decimal"},
		{name: "zero", args: map[string]any{"owner": "o", "repo": "r", "issue_num": "0"}, wantErr: "must be positive"},
		{name: "empty owner", args: map[string]any{"owner": "", "repo": "r", "issue_num": "3"}, wantErr: "must not be empty"},
		{name: "missing repo", args: map[string]any{"owner": "o", "issue_num": "3"}, wantErr: "repo parameter is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := invoke(t, reg, ToolGetIssueDetails, tt.args)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if got.(IssueResult).IssueNum != 3 {
				t.Errorf("IssueNum = %d, want 3", got.(IssueResult).IssueNum)
			}
		})
	}
}

func TestRetrieveContextTool(t *testing.T) {
	retr := &fakeRetriever{}
	reg, _ := NewRegistry(&fakeIssues{}, retr)

	got, err := invoke(t, reg, ToolRetrieveContext, map[string]any{
		"owner": "o", "repo": "r", "ref": "main", "issue_description": "title\nbody",
	})
	if err != nil {
		t.Fatalf("retrieve_context error = %v", err)
	}
	want := ContextResult{Snippets: []retriever.Snippet{{Path: "README.md", Content: "# app"}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("retrieve_context mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"title\nbody"}, retr.descriptions); diff != "" {
		t.Errorf("retriever input mismatch (-want +got):\n%s", diff)
	}
}

type emptyRetriever struct{}

func (emptyRetriever) Retrieve(context.Context, string, string, string, string) ([]retriever.Snippet, error) {
	return nil, nil
}

func TestRetrieveContextNeverNil(t *testing.T) {
	reg, _ := NewRegistry(&fakeIssues{}, emptyRetriever{})
	got, err := invoke(t, reg, ToolRetrieveContext, map[string]any{
		"owner": "o", "repo": "r", "ref": "main", "issue_description": "d",
	})
	if err != nil {
		t.Fatalf("retrieve_context error = %v", err)
	}
	if s := toolcall.Success(got).String(); s != `{"ok":true,"result":{"snippets":[]}}` {
		t.Errorf("result = %s", s)
	}
}

func TestPostCommentTool(t *testing.T) {
	svc := &fakeIssues{}
	reg, _ := NewRegistry(svc, &fakeRetriever{})

	if _, err := invoke(t, reg, ToolPostComment, map[string]any{
		"owner": "o", "repo": "r", "issue_num": "3", "comment_body": "",
	}); err == nil || errors.As(err, new(*PostError)) {
		t.Errorf("empty body error = %v, want a plain argument error", err)
	}

	got, err := invoke(t, reg, ToolPostComment, comment)
	if err != nil {
		t.Fatalf("post_comment error = %v", err)
	}
	if diff := cmp.Diff(CommentResult{CommentID: 4242}, got); diff != "" {
		t.Errorf("post_comment mismatch (-want +got):\n%s", diff)
	}

	boom := errors.New("boom")
	svc.postErr = boom
	_, err = invoke(t, reg, ToolPostComment, comment)
	var pe *PostError
	if !errors.As(err, &pe) || !errors.Is(err, boom) || pe.Ref != issueRef {
		t.Errorf("post failure error = %v, want *PostError wrapping boom", err)
	}
}
