/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

import (
	"encoding/json"
	"fmt"
	"strings"
)

// binding is a value that will be substituted into the template.
type binding interface {
	value() (string, error)
}

type unboundBinding struct {
	name string
}

func (u *unboundBinding) value() (string, error) {
	return "", fmt.Errorf("unbound placeholder: %s", u.name)
}

type literalBinding struct {
	val string
}

func (l *literalBinding) value() (string, error) {
	return l.val, nil
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

type textBinding struct {
	val string
}

func (t *textBinding) value() (string, error) {
	return strings.TrimSpace(lineBreaks.Replace(t.val)), nil
}

type jsonBinding struct {
	data any
}

func (j *jsonBinding) value() (string, error) {
	b, err := json.MarshalIndent(j.data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(b), nil
}

// existsAndUnbound checks that name is a placeholder that has not been bound.
func existsAndUnbound(bindings map[string]binding, name string) error {
	b, exists := bindings[name]
	if !exists {
		return fmt.Errorf("binding %q not found in template", name)
	}
	if _, isUnbound := b.(*unboundBinding); !isUnbound {
		return fmt.Errorf("binding %q already bound", name)
	}
	return nil
}
