/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package triage

import (
	"context"
	"errors"
	"fmt"

	"github.com/darshan8850/IssueWise/agents/toolcall"
	"github.com/darshan8850/IssueWise/agents/toolcall/params"
	"github.com/darshan8850/IssueWise/github/issues"
	"github.com/darshan8850/IssueWise/retriever"
)

// Tool names. They are part of the wire contract with every provider.
const (
	ToolFetchIssue      = "fetch_issue"
	ToolGetIssueDetails = "get_issue_details"
	ToolRetrieveContext = "retrieve_context"
	ToolPostComment     = "post_comment"
)

// FetchIssueArgs are the parameters of fetch_issue.
type FetchIssueArgs struct {
	IssueURL string `json:"issue_url" jsonschema:"required" jsonschema_description:"The full URL of the GitHub issue."`
}

// IssueDetailsArgs are the parameters of get_issue_details.
type IssueDetailsArgs struct {
	Owner    string `json:"owner" jsonschema:"required" jsonschema_description:"The owner of the repository."`
	Repo     string `json:"repo" jsonschema:"required" jsonschema_description:"The name of the repository."`
	IssueNum string `json:"issue_num" jsonschema:"required" jsonschema_description:"The issue number."`
}

// RetrieveContextArgs are the parameters of retrieve_context.
type RetrieveContextArgs struct {
	Owner            string `json:"owner" jsonschema:"required" jsonschema_description:"The owner of the repository."`
	Repo             string `json:"repo" jsonschema:"required" jsonschema_description:"The name of the repository."`
	Ref              string `json:"ref" jsonschema:"required" jsonschema_description:"The branch to read code from, usually main or master."`
	IssueDescription string `json:"issue_description" jsonschema:"required" jsonschema_description:"The exact issue title and description, joined by a newline. Must be passed without rephrasing."`
}

// PostCommentArgs are the parameters of post_comment.
type PostCommentArgs struct {
	Owner       string `json:"owner" jsonschema:"required" jsonschema_description:"The owner of the repository."`
	Repo        string `json:"repo" jsonschema:"required" jsonschema_description:"The name of the repository."`
	IssueNum    string `json:"issue_num" jsonschema:"required" jsonschema_description:"The issue number."`
	CommentBody string `json:"comment_body" jsonschema:"required" jsonschema_description:"The body of the comment, in Markdown."`
}

// IssueService is the subset of the issue gateway the tools use.
type IssueService interface {
	FetchDetails(ctx context.Context, ref issues.Reference) (issues.Details, error)
	PostComment(ctx context.Context, ref issues.Reference, body string) (int64, error)
}

// IssueResult is returned by fetch_issue and get_issue_details.
type IssueResult struct {
	Owner    string `json:"owner"`
	Repo     string `json:"repo"`
	IssueNum int    `json:"issue_num"`
	Title    string `json:"title"`
	Body     string `json:"body"`
}

// Details returns the title and body.
func (r IssueResult) Details() issues.Details {
	return issues.Details{Title: r.Title, Body: r.Body}
}

// ContextResult is returned by retrieve_context.
type ContextResult struct {
	Snippets []retriever.Snippet `json:"snippets"`
}

// CommentResult is returned by post_comment.
type CommentResult struct {
	CommentID int64 `json:"comment_id"`
}

// PostError reports that the comment could not be posted. Argument errors
// from post_comment are not PostErrors.
type PostError struct {
	Ref issues.Reference
	Err error
}

func (e *PostError) Error() string {
	return fmt.Sprintf("posting comment on %s: %v", e.Ref, e.Err)
}

func (e *PostError) Unwrap() error { return e.Err }

// NewRegistry declares the four triage tools over the given collaborators.
func NewRegistry(svc IssueService, retr retriever.Retriever) (*toolcall.Registry, error) {
	if svc == nil {
		return nil, errors.New("issue service is required")
	}
	if retr == nil {
		return nil, errors.New("retriever is required")
	}

	return toolcall.NewRegistry(
		toolcall.Tool{
			Def:     toolcall.Define[FetchIssueArgs](ToolFetchIssue, "Fetch a GitHub issue's title and description from its URL."),
			Handler: fetchIssue(svc),
		},
		toolcall.Tool{
			Def:     toolcall.Define[IssueDetailsArgs](ToolGetIssueDetails, "Get the title and description of a GitHub issue."),
			Handler: getIssueDetails(svc),
		},
		toolcall.Tool{
			Def:     toolcall.Define[RetrieveContextArgs](ToolRetrieveContext, "Fetch relevant context from the codebase for a GitHub issue."),
			Handler: retrieveContext(retr),
		},
		toolcall.Tool{
			Def:     toolcall.Define[PostCommentArgs](ToolPostComment, "Post a comment on a GitHub issue."),
			Handler: postComment(svc),
		},
	)
}

// referenceArgs builds a Reference from owner, repo and issue_num arguments.
// A bad issue number is reported to the model rather than aborting the run.
func referenceArgs(args map[string]any) (issues.Reference, error) {
	owner, err := params.Extract[string](args, "owner")
	if err != nil {
		return issues.Reference{}, err
	}
	repo, err := params.Extract[string](args, "repo")
	if err != nil {
		return issues.Reference{}, err
	}
	raw, err := params.Extract[string](args, "issue_num")
	if err != nil {
		return issues.Reference{}, err
	}
	n, err := issues.ParseNumber(raw)
	if err != nil {
		return issues.Reference{}, err
	}
	if owner == "" || repo == "" {
		return issues.Reference{}, errors.New("owner and repo must not be empty")
	}
	return issues.Reference{Owner: owner, Repo: repo, Number: n}, nil
}

func fetchDetails(ctx context.Context, svc IssueService, ref issues.Reference) (IssueResult, error) {
	d, err := svc.FetchDetails(ctx, ref)
	if err != nil {
		return IssueResult{}, err
	}
	return IssueResult{
		Owner:    ref.Owner,
		Repo:     ref.Repo,
		IssueNum: ref.Number,
		Title:    d.Title,
		Body:     d.Body,
	}, nil
}

func fetchIssue(svc IssueService) toolcall.Handler {
	return func(ctx context.Context, call toolcall.ToolCall) (any, error) {
		raw, err := params.Extract[string](call.Args, "issue_url")
		if err != nil {
			return nil, err
		}
		ref, err := issues.ParseReference(raw)
		if err != nil {
			// A bad URL from the model is recoverable; only the run's own
			// URL is validated fatally.
			return nil, fmt.Errorf("invalid issue_url: %s", err.Error())
		}
		return fetchDetails(ctx, svc, ref)
	}
}

func getIssueDetails(svc IssueService) toolcall.Handler {
	return func(ctx context.Context, call toolcall.ToolCall) (any, error) {
		ref, err := referenceArgs(call.Args)
		if err != nil {
			return nil, err
		}
		return fetchDetails(ctx, svc, ref)
	}
}

func retrieveContext(retr retriever.Retriever) toolcall.Handler {
	return func(ctx context.Context, call toolcall.ToolCall) (any, error) {
		var args RetrieveContextArgs
		var err error
		if args.Owner, err = params.Extract[string](call.Args, "owner"); err != nil {
			return nil, err
		}
		if args.Repo, err = params.Extract[string](call.Args, "repo"); err != nil {
			return nil, err
		}
		if args.Ref, err = params.Extract[string](call.Args, "ref"); err != nil {
			return nil, err
		}
		if args.IssueDescription, err = params.Extract[string](call.Args, "issue_description"); err != nil {
			return nil, err
		}

		snippets, err := retr.Retrieve(ctx, args.Owner, args.Repo, args.Ref, args.IssueDescription)
		if err != nil {
			return nil, err
		}
		if snippets == nil {
			snippets = []retriever.Snippet{}
		}
		return ContextResult{Snippets: snippets}, nil
	}
}

func postComment(svc IssueService) toolcall.Handler {
	return func(ctx context.Context, call toolcall.ToolCall) (any, error) {
		ref, err := referenceArgs(call.Args)
		if err != nil {
			return nil, err
		}
		body, err := params.Extract[string](call.Args, "comment_body")
		if err != nil {
			return nil, err
		}
		if body == "" {
			return nil, errors.New("comment_body must not be empty")
		}
		id, err := svc.PostComment(ctx, ref, body)
		if err != nil {
			return nil, &PostError{Ref: ref, Err: err}
		}
		return CommentResult{CommentID: id}, nil
	}
}
