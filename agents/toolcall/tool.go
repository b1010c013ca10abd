/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package toolcall

import (
	"context"
	"maps"

	"github.com/darshan8850/IssueWise/agents/schema"
	"github.com/invopop/jsonschema"
)

// ToolCall is a provider-independent representation of a tool call.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// Clone returns a copy of c whose Args may be modified independently.
func (c ToolCall) Clone() ToolCall {
	c.Args = maps.Clone(c.Args)
	return c
}

// Definition describes a tool's name, purpose and parameters.
type Definition struct {
	Name        string
	Description string
	Schema      *jsonschema.Schema
}

// Required returns the names of the parameters the model must supply.
func (d Definition) Required() []string {
	if d.Schema == nil {
		return nil
	}
	return d.Schema.Required
}

// Define builds a Definition whose parameter schema is reflected from Args.
// Fields tagged `jsonschema:"required"` become required parameters.
func Define[Args any](name, description string) Definition {
	return Definition{
		Name:        name,
		Description: description,
		Schema:      schema.ReflectType[Args](),
	}
}

// Handler executes a tool call. A returned error is reported back to the
// model as a failed Result unless the caller decides otherwise.
type Handler func(ctx context.Context, call ToolCall) (any, error)

// Tool defines a tool once with a single handler that works with any provider.
type Tool struct {
	Def     Definition
	Handler Handler
}
