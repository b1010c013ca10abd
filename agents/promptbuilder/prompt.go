/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

import (
	"fmt"
	"maps"
	"slices"
)

// stringLiteral only accepts untyped string constants from callers outside
// this package, which keeps templates under the developer's control.
type stringLiteral string

// Prompt is a template with bindable placeholders.
type Prompt struct {
	template string
	bindings map[string]binding
}

// NewPrompt parses template and records its placeholders as unbound.
func NewPrompt(template stringLiteral) (*Prompt, error) {
	bindings := make(map[string]binding)
	tmpl, err := walkTemplate(string(template), func(name string) (string, error) {
		if _, exists := bindings[name]; !exists {
			bindings[name] = &unboundBinding{name: name}
		}
		return "{{" + name + "}}", nil
	})
	if err != nil {
		return nil, err
	}
	return &Prompt{template: tmpl, bindings: bindings}, nil
}

// Placeholders returns the sorted names of every placeholder in the template.
func (p *Prompt) Placeholders() []string {
	return slices.Sorted(maps.Keys(p.bindings))
}

func (p *Prompt) bind(name string, b binding) (*Prompt, error) {
	if err := existsAndUnbound(p.bindings, name); err != nil {
		return nil, err
	}
	next := &Prompt{
		template: p.template,
		bindings: maps.Clone(p.bindings),
	}
	next.bindings[name] = b
	return next, nil
}

// BindStringLiteral binds developer-controlled text to a placeholder.
func (p *Prompt) BindStringLiteral(name string, value stringLiteral) (*Prompt, error) {
	return p.bind(name, &literalBinding{val: string(value)})
}

// BindText binds user-supplied text to a placeholder. Line breaks are
// replaced by spaces so that the value stays on the line the template put it.
func (p *Prompt) BindText(name, value string) (*Prompt, error) {
	return p.bind(name, &textBinding{val: value})
}

// BindJSON binds data, rendered as indented JSON, to a placeholder.
func (p *Prompt) BindJSON(name string, data any) (*Prompt, error) {
	return p.bind(name, &jsonBinding{data: data})
}

// Build renders the prompt, failing if any placeholder is unbound.
func (p *Prompt) Build() (string, error) {
	values := make(map[string]string, len(p.bindings))
	for name, b := range p.bindings {
		val, err := b.value()
		if err != nil {
			return "", err
		}
		values[name] = val
	}

	return walkTemplate(p.template, func(name string) (string, error) {
		val, exists := values[name]
		if !exists {
			return "", fmt.Errorf("internal error: binding %q not found in values map", name)
		}
		return val, nil
	})
}
