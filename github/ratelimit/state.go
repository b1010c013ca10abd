/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// HeaderRemaining carries the number of requests left in the window.
	HeaderRemaining = "X-RateLimit-Remaining"
	// HeaderReset carries the epoch second at which the window resets.
	HeaderReset = "X-RateLimit-Reset"

	// DefaultLowWaterMark is the remaining quota at or below which callers wait.
	DefaultLowWaterMark = 2
	// ResetSlack is added to the published reset time before replaying.
	ResetSlack = 5 * time.Second
)

// State is the rate-limit window reported by a single response.
// It is never cached across requests.
type State struct {
	Remaining int
	ResetAt   time.Time
}

// ParseState reads the rate-limit headers from h.
// It reports false when either header is missing or is not an integer.
func ParseState(h http.Header) (State, bool) {
	rawRemaining := h.Get(HeaderRemaining)
	rawReset := h.Get(HeaderReset)
	if rawRemaining == "" || rawReset == "" {
		return State{}, false
	}

	remaining, err := strconv.Atoi(strings.TrimSpace(rawRemaining))
	if err != nil {
		return State{}, false
	}
	reset, err := strconv.ParseInt(strings.TrimSpace(rawReset), 10, 64)
	if err != nil {
		return State{}, false
	}

	return State{
		Remaining: remaining,
		ResetAt:   time.Unix(reset, 0),
	}, true
}

// Wait returns how long to suspend before the window is usable again:
// max(resetAt - now + ResetSlack, 0).
func (s State) Wait(now time.Time) time.Duration {
	return max(s.ResetAt.Sub(now)+ResetSlack, 0)
}
