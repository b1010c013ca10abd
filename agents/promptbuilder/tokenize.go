/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// resolveFunc provides the replacement text for a placeholder name.
type resolveFunc func(name string) (string, error)

// walkTemplate copies template, replacing every {{name}} with resolve(name).
// Replacement text is never rescanned.
func walkTemplate(template string, resolve resolveFunc) (string, error) {
	var out strings.Builder
	rest := template
	for {
		before, after, found := strings.Cut(rest, "{{")
		out.WriteString(before)
		if !found {
			return out.String(), nil
		}

		inner, remainder, closed := strings.Cut(after, "}}")
		if !closed {
			return "", errors.New("unclosed binding: missing '}}'")
		}
		name := strings.TrimSpace(inner)
		if !isValidIdentifier(name) {
			return "", fmt.Errorf("invalid binding identifier %q", name)
		}
		replacement, err := resolve(name)
		if err != nil {
			return "", err
		}
		out.WriteString(replacement)
		rest = remainder
	}
}

// isValidIdentifier reports whether s starts with a letter and continues
// with letters, digits and underscores.
func isValidIdentifier(s string) bool {
	for i, r := range s {
		switch {
		case unicode.IsLetter(r):
		case i > 0 && (unicode.IsDigit(r) || r == '_'):
		default:
			return false
		}
	}
	return s != ""
}
