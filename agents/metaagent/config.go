/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metaagent

import (
	"fmt"
	"strings"
)

// Provider selectors.
const (
	Mistral = "mistral"
	OpenAI  = "openai"
	Claude  = "claude"
	Gemini  = "gemini"
)

// DefaultSelector is used when a run does not name a provider.
const DefaultSelector = Mistral

// Entry describes one selectable provider.
type Entry struct {
	Selector string `json:"selector"`
	Name     string `json:"name"`
	Model    string `json:"model"`
}

var catalog = []Entry{
	{Selector: Mistral, Name: "Mistral AI", Model: "mistral-small-latest"},
	{Selector: OpenAI, Name: "OpenAI", Model: "gpt-4-turbo-preview"},
	{Selector: Claude, Name: "Claude", Model: "claude-3-opus-20240229"},
	{Selector: Gemini, Name: "Gemini", Model: "gemini-2.5-flash"},
}

// Catalog returns every known provider with its default model.
func Catalog() []Entry {
	return append([]Entry(nil), catalog...)
}

// Lookup returns the catalog entry for selector.
func Lookup(selector string) (Entry, bool) {
	for _, e := range catalog {
		if e.Selector == strings.ToLower(selector) {
			return e, true
		}
	}
	return Entry{}, false
}

// Settings configures one provider.
type Settings struct {
	APIKey string
	// Model overrides the catalog default when set.
	Model string
	// BaseURL overrides the provider endpoint when set.
	BaseURL string
}

// Config holds Settings per selector.
type Config map[string]Settings

// ConfigurationError reports an unknown selector or a provider without an
// API key.
type ConfigurationError struct {
	Selector string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("provider %q: %s", e.Selector, e.Reason)
}

// Fatal reports that the run cannot proceed.
func (e *ConfigurationError) Fatal() bool { return true }
