/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package triage

import (
	"errors"
	"fmt"

	"github.com/darshan8850/IssueWise/agents/promptbuilder"
	"github.com/darshan8850/IssueWise/agents/toolcall"
	"github.com/darshan8850/IssueWise/github/issues"
)

// State is the position of a run in its lifecycle.
type State int

const (
	Started State = iota
	AwaitingModelResponse
	DispatchingTools
	Finished
	Aborted
	Failed
)

func (s State) String() string {
	switch s {
	case Started:
		return "started"
	case AwaitingModelResponse:
		return "awaiting_model_response"
	case DispatchingTools:
		return "dispatching_tools"
	case Finished:
		return "finished"
	case Aborted:
		return "aborted"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	for c := Started; c <= Failed; c++ {
		if c.String() == string(text) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown run state %q", text)
}

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == Finished || s == Aborted || s == Failed
}

// ErrStepCeiling is the Cause of a run aborted for using too many steps.
var ErrStepCeiling = errors.New("step ceiling reached")

// DefaultRef is the branch used when a Request names none.
const DefaultRef = "main"

// Request starts a run.
type Request struct {
	IssueURL string `json:"issue_url"`
	Ref      string `json:"ref,omitempty"`
}

var _ promptbuilder.Bindable = Request{}

// Bind fills the user prompt's issue_url and ref placeholders.
func (r Request) Bind(p *promptbuilder.Prompt) (*promptbuilder.Prompt, error) {
	p, err := p.BindText("issue_url", r.IssueURL)
	if err != nil {
		return nil, err
	}
	ref := r.Ref
	if ref == "" {
		ref = DefaultRef
	}
	return p.BindText("ref", ref)
}

// Invocation records one dispatched tool call with the arguments it was
// actually executed with.
type Invocation struct {
	Step   int               `json:"step"`
	Call   toolcall.ToolCall `json:"call"`
	Result toolcall.Result   `json:"result"`
}

// Outcome summarises a finished run.
type Outcome struct {
	RunID string           `json:"run_id"`
	Issue issues.Reference `json:"issue"`
	Model string           `json:"model"`
	State State            `json:"state"`
	// Answer is the model's final text when it finished without posting.
	Answer string `json:"answer,omitempty"`
	// CommentID is set once the comment has been posted.
	CommentID     int64          `json:"comment_id,omitempty"`
	Steps         int            `json:"steps"`
	Invocations   []Invocation   `json:"invocations"`
	Notifications []Notification `json:"notifications"`
	// Cause explains an Aborted or Failed run.
	Cause error `json:"-"`
}
