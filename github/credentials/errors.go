/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package credentials

import (
	"fmt"
	"strings"
)

// SigningError is returned when the App private key cannot produce assertions.
type SigningError struct {
	Err error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("signing app assertion: %v", e.Err)
}

func (e *SigningError) Unwrap() error { return e.Err }

// Fatal reports that the run cannot continue.
func (e *SigningError) Fatal() bool { return true }

// TokenExchangeError is returned when GitHub refuses to mint an installation
// token.
type TokenExchangeError struct {
	InstallationID int64
	StatusCode     int
	Body           string
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("failed to fetch installation token for %d: %d %s", e.InstallationID, e.StatusCode, e.Body)
}

// Fatal reports that the run cannot continue.
func (e *TokenExchangeError) Fatal() bool { return true }

// AuthConfigurationError is returned when no installation of the App covers
// the requested repository.
type AuthConfigurationError struct {
	Owner string
	Repo  string
	// Known lists the installations the App does have, as "account (id)".
	Known []string
	// ListErr records why Known could not be populated, if it could not.
	ListErr error
	Err     error
}

func (e *AuthConfigurationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "no GitHub App installation found for %s/%s: %v", e.Owner, e.Repo, e.Err)
	switch {
	case e.ListErr != nil:
		fmt.Fprintf(&b, " (listing installations also failed: %v)", e.ListErr)
	case len(e.Known) == 0:
		b.WriteString(" (the app has no installations)")
	default:
		fmt.Fprintf(&b, " (installed on: %s)", strings.Join(e.Known, ", "))
	}
	return b.String()
}

func (e *AuthConfigurationError) Unwrap() error { return e.Err }

// Fatal reports that the run cannot continue.
func (e *AuthConfigurationError) Fatal() bool { return true }
