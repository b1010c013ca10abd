/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package toolcall

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownTool is returned when a call names a tool that is not registered.
var ErrUnknownTool = errors.New("unknown tool")

// Registry is a fixed, ordered set of tools.
type Registry struct {
	tools []Tool
	index map[string]int
}

// NewRegistry builds a Registry from tools, preserving their order.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{
		tools: make([]Tool, 0, len(tools)),
		index: make(map[string]int, len(tools)),
	}
	for _, t := range tools {
		if t.Def.Name == "" {
			return nil, errors.New("tool name cannot be empty")
		}
		if t.Handler == nil {
			return nil, fmt.Errorf("tool %q has no handler", t.Def.Name)
		}
		if _, dup := r.index[t.Def.Name]; dup {
			return nil, fmt.Errorf("tool %q registered twice", t.Def.Name)
		}
		r.index[t.Def.Name] = len(r.tools)
		r.tools = append(r.tools, t)
	}
	return r, nil
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	i, ok := r.index[name]
	if !ok {
		return Tool{}, false
	}
	return r.tools[i], true
}

// Names returns the registered tool names in declaration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.tools))
	for i, t := range r.tools {
		out[i] = t.Def.Name
	}
	return out
}

// Definitions returns every tool definition in declaration order.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, len(r.tools))
	for i, t := range r.tools {
		out[i] = t.Def
	}
	return out
}

// Validate checks that call names a registered tool and carries every
// required parameter. Unknown tools produce an error wrapping ErrUnknownTool
// that lists the legal names.
func (r *Registry) Validate(call ToolCall) error {
	t, ok := r.Lookup(call.Name)
	if !ok {
		return fmt.Errorf("%w %q: available tools are %s", ErrUnknownTool, call.Name, strings.Join(r.Names(), ", "))
	}
	var missing []string
	for _, name := range t.Def.Required() {
		if _, ok := call.Args[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("tool %q is missing required parameters: %s", call.Name, strings.Join(missing, ", "))
	}
	return nil
}
