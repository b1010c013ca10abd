/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package issues

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Reference identifies a single issue.
type Reference struct {
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Number int    `json:"number"`
}

func (r Reference) String() string {
	return fmt.Sprintf("%s/%s#%d", r.Owner, r.Repo, r.Number)
}

// Same reports whether r and other name the same issue. GitHub owner and
// repository names are case-insensitive.
func (r Reference) Same(other Reference) bool {
	return r.Number == other.Number &&
		strings.EqualFold(r.Owner, other.Owner) &&
		strings.EqualFold(r.Repo, other.Repo)
}

// MalformedReferenceError is returned when a URL does not name an issue.
type MalformedReferenceError struct {
	URL    string
	Reason string
}

func (e *MalformedReferenceError) Error() string {
	return fmt.Sprintf("invalid GitHub issue URL %q: %s", e.URL, e.Reason)
}

// Fatal reports that the run cannot continue.
func (e *MalformedReferenceError) Fatal() bool { return true }

// ParseReference extracts the issue named by raw, which must have the path
// /{owner}/{repo}/issues/{number}. A trailing slash, query and fragment are
// ignored. The number must be a positive decimal.
func ParseReference(raw string) (Reference, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Reference{}, &MalformedReferenceError{URL: raw, Reason: err.Error()}
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 4 || parts[2] != "issues" {
		return Reference{}, &MalformedReferenceError{URL: raw, Reason: "path must be /{owner}/{repo}/issues/{number}"}
	}
	owner, repo, num := parts[0], parts[1], parts[3]
	if owner == "" || repo == "" {
		return Reference{}, &MalformedReferenceError{URL: raw, Reason: "owner and repository must be non-empty"}
	}

	n, err := ParseNumber(num)
	if err != nil {
		return Reference{}, &MalformedReferenceError{URL: raw, Reason: err.Error()}
	}
	return Reference{Owner: owner, Repo: repo, Number: n}, nil
}

// ParseNumber parses a positive decimal issue number.
func ParseNumber(s string) (int, error) {
	if s == "" || strings.TrimLeft(s, "0123456789") != "" {
		return 0, fmt.Errorf("issue number %q is not a decimal", s)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("issue number %q: %w", s, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("issue number %q must be positive", s)
	}
	return n, nil
}
