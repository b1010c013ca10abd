/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package promptbuilder builds model prompts from developer-authored templates.

Templates contain {{name}} placeholders and must be string literals, so that
instructions always come from the program. Values are substituted in a single
pass, so a bound value that itself contains {{other}} is never expanded.
Prompts are immutable: every Bind method returns a new Prompt.

	p := promptbuilder.MustNewPrompt(`Triage {{issue_url}} on {{ref}}.`)
	p, err := p.BindText("issue_url", url)
	...
	text, err := p.Build()

Binding methods:

	BindStringLiteral  developer-controlled text, inserted verbatim
	BindText           user-supplied single-line text such as URLs and refs
	BindJSON           structured data, indented JSON

Build fails while any placeholder is unbound.
*/
package promptbuilder
