/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package credentials

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// AssertionLifetime is how long a signed App assertion stays valid.
// GitHub rejects assertions that live longer than ten minutes.
const AssertionLifetime = 10 * time.Minute

// Signer produces RS256 assertions that authenticate as the GitHub App.
type Signer struct {
	appID string
	key   *rsa.PrivateKey
	now   func() time.Time
}

// NewSigner parses pemKey and returns a Signer for appID. A malformed key
// is reported here, before any assertion is requested.
func NewSigner(appID string, pemKey []byte) (*Signer, error) {
	if appID == "" {
		return nil, &SigningError{Err: errors.New("app ID cannot be empty")}
	}
	if len(pemKey) == 0 {
		return nil, &SigningError{Err: errors.New("private key cannot be empty")}
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemKey)
	if err != nil {
		return nil, &SigningError{Err: fmt.Errorf("parsing private key: %w", err)}
	}
	return &Signer{appID: appID, key: key, now: time.Now}, nil
}

// AppID returns the issuer placed in every assertion.
func (s *Signer) AppID() string {
	return s.appID
}

// Assertion returns a signed assertion issued at now.
func (s *Signer) Assertion(now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    s.appID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(AssertionLifetime)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.key)
	if err != nil {
		return "", &SigningError{Err: err}
	}
	return signed, nil
}

// TokenSource returns an oauth2.TokenSource that yields App assertions,
// reusing each one until a minute before it expires.
func (s *Signer) TokenSource() oauth2.TokenSource {
	return oauth2.ReuseTokenSourceWithExpiry(nil, assertionSource{s}, time.Minute)
}

type assertionSource struct {
	s *Signer
}

func (a assertionSource) Token() (*oauth2.Token, error) {
	now := a.s.now()
	signed, err := a.s.Assertion(now)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: signed,
		TokenType:   "Bearer",
		Expiry:      now.Add(AssertionLifetime),
	}, nil
}
