/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package provider defines the canonical conversation shape shared by every
// language-model backend, and the interface each backend adapter implements.
//
// Adapters live in subpackages (claudeprovider, openaiprovider,
// googleprovider). Each converts a Request into its SDK's wire format and
// normalizes the reply into a Response carrying optional text content and
// zero or more tool calls.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/darshan8850/IssueWise/agents/toolcall"
)

// Role tags the author of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role
	Content string
	// ToolCalls is set on assistant messages that requested tools.
	ToolCalls []toolcall.ToolCall
	// ToolCallID and ToolName are set on tool messages and name the call
	// being answered.
	ToolCallID string
	ToolName   string
}

// Conversation is an append-only sequence of messages.
type Conversation struct {
	messages []Message
}

// Append extends the conversation.
func (c *Conversation) Append(msgs ...Message) {
	c.messages = append(c.messages, msgs...)
}

// Messages returns a copy of the conversation so far.
func (c *Conversation) Messages() []Message {
	return slices.Clone(c.messages)
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	return len(c.messages)
}

// ToolMode controls whether the model may answer without calling a tool.
type ToolMode int

const (
	// ToolModeAuto lets the model choose between text and tool calls.
	ToolModeAuto ToolMode = iota
	// ToolModeRequired forces the model to call at least one tool.
	ToolModeRequired
)

func (m ToolMode) String() string {
	if m == ToolModeRequired {
		return "required"
	}
	return "auto"
}

// Request is everything an adapter needs for one completion.
type Request struct {
	System   string
	Messages []Message
	Tools    []toolcall.Definition
	ToolMode ToolMode
}

// Usage reports token consumption for one completion.
type Usage struct {
	PromptTokens     int64
	CompletionTokens int64
}

// Response is the canonical shape of a model reply.
type Response struct {
	Content   string
	ToolCalls []toolcall.ToolCall
	Usage     Usage
}

// Interface is implemented by every provider adapter.
type Interface interface {
	// Model names the model the adapter calls.
	Model() string
	// Complete sends the conversation and returns the model's reply.
	Complete(ctx context.Context, req Request) (Response, error)
}

// EncodeArgs renders tool arguments as the JSON object text providers echo
// back in assistant turns.
func EncodeArgs(args map[string]any) (string, error) {
	if args == nil {
		return "{}", nil
	}
	b, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("encoding tool arguments: %w", err)
	}
	return string(b), nil
}

// DecodeArgs parses the JSON object text a provider returned as tool
// arguments. Empty input yields an empty map.
func DecodeArgs(raw []byte) (map[string]any, error) {
	args := map[string]any{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return args, nil
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("decoding tool arguments %q: %w", raw, err)
	}
	return args, nil
}
