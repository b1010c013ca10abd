/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package ratelimit provides an HTTP transport that honours GitHub's
// published rate-limit headers.
//
// Every response is inspected for X-RateLimit-Remaining and X-RateLimit-Reset.
// When the remote rejects a request for exceeding its quota, or when the
// remaining quota drops to the low-water mark, the transport suspends the
// caller until the published reset time (plus a small slack) and replays the
// request. There is no attempt cap: the wait is driven by the remote clock,
// not by a local retry budget.
//
//	client := ratelimit.NewClient()
//	resp, err := client.Request(ctx, http.MethodGet, url, headers, nil)
//
// The same transport is exposed through Client.HTTPClient so that go-github
// and oauth2 clients share the throttling behaviour.
package ratelimit
