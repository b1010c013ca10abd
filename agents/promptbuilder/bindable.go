/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

// Bindable is implemented by request types that know how to fill in the
// placeholders of a prompt with their own data.
type Bindable interface {
	// Bind returns a new prompt with the receiver's values bound.
	Bind(prompt *Prompt) (*Prompt, error)
}

// Noop is a Bindable that leaves the prompt unchanged.
type Noop struct{}

// Bind implements Bindable.
func (Noop) Bind(prompt *Prompt) (*Prompt, error) {
	return prompt, nil
}
