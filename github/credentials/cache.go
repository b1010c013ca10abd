/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package credentials

import (
	"context"
	"sync"
	"time"
)

// RefreshMargin is how close to expiry a cached token may get before it is
// replaced.
const RefreshMargin = 30 * time.Second

// InstallationToken is an access token scoped to one App installation.
type InstallationToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Valid reports whether the token may still be handed out at now.
func (t InstallationToken) Valid(now time.Time) bool {
	return t.Token != "" && t.ExpiresAt.After(now.Add(RefreshMargin))
}

// TokenCache holds installation tokens keyed by installation id.
// A single lock covers both the validity check and the refresh, so
// concurrent callers for the same installation trigger one exchange.
type TokenCache struct {
	mu     sync.Mutex
	tokens map[int64]InstallationToken
}

// NewTokenCache returns an empty cache.
func NewTokenCache() *TokenCache {
	return &TokenCache{tokens: make(map[int64]InstallationToken)}
}

// GetOrRefresh returns the cached token for id when it is valid at now(), and
// otherwise stores and returns the result of refresh. The clock is read
// after the lock is acquired. A failed refresh leaves the cache untouched.
func (c *TokenCache) GetOrRefresh(ctx context.Context, id int64, now func() time.Time, refresh func(context.Context) (InstallationToken, error)) (InstallationToken, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tok, ok := c.tokens[id]; ok && tok.Valid(now()) {
		return tok, nil
	}

	tok, err := refresh(ctx)
	if err != nil {
		return InstallationToken{}, err
	}
	c.tokens[id] = tok
	return tok, nil
}
