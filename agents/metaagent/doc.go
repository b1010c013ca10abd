/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package metaagent maps provider selectors to configured model adapters.
//
// Each selector ("mistral", "openai", "claude", "gemini") names a catalog
// entry with a display name and a default model. New builds the matching
// provider.Interface from the caller's Settings; selecting a provider that
// has no API key is a configuration error.
package metaagent
