/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package ratelimit

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
)

// Sleeper suspends the caller for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Transport is an http.RoundTripper that waits out GitHub rate limits.
type Transport struct {
	base         http.RoundTripper
	now          func() time.Time
	sleep        Sleeper
	lowWaterMark int
}

var _ http.RoundTripper = (*Transport)(nil)

// Option configures a Transport.
type Option func(*Transport)

// WithBase sets the underlying round tripper. Defaults to http.DefaultTransport.
func WithBase(rt http.RoundTripper) Option {
	return func(t *Transport) {
		t.base = rt
	}
}

// WithClock overrides the time source used to compute waits.
func WithClock(now func() time.Time) Option {
	return func(t *Transport) {
		t.now = now
	}
}

// WithSleeper overrides how the transport suspends between attempts.
func WithSleeper(s Sleeper) Option {
	return func(t *Transport) {
		t.sleep = s
	}
}

// WithLowWaterMark sets the remaining quota at or below which callers wait.
func WithLowWaterMark(n int) Option {
	return func(t *Transport) {
		t.lowWaterMark = n
	}
}

// NewTransport returns a rate-limit aware transport.
func NewTransport(opts ...Option) *Transport {
	t := &Transport{
		base:         http.DefaultTransport,
		now:          time.Now,
		sleep:        sleepContext,
		lowWaterMark: DefaultLowWaterMark,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RoundTrip issues req, and replays it for as long as the remote keeps
// reporting an exhausted window. Network errors are returned as-is.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	log := clog.FromContext(ctx)

	getBody, err := replayableBody(req)
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		attemptReq := req.Clone(ctx)
		if attemptReq.Body, err = getBody(); err != nil {
			return nil, fmt.Errorf("rewinding request body: %w", err)
		}

		resp, err := t.base.RoundTrip(attemptReq)
		if err != nil {
			return nil, err
		}

		state, ok := ParseState(resp.Header)
		if !ok {
			return resp, nil
		}
		observe(state)

		log.With("remaining", state.Remaining).
			With("reset", state.ResetAt.Unix()).
			With("method", req.Method).
			With("path", req.URL.Path).
			Info("GitHub rate limit")

		rejected, err := isRejection(resp)
		if err != nil {
			resp.Body.Close()
			return nil, err
		}

		var reason string
		switch {
		case rejected:
			reason = "rejected"
		case state.Remaining <= t.lowWaterMark:
			reason = "low_water"
		default:
			return resp, nil
		}

		wait := state.Wait(t.now())
		recordWait(reason, wait)
		log.With("reason", reason).
			With("remaining", state.Remaining).
			With("wait", wait).
			With("attempt", attempt).
			Warn("Waiting for GitHub rate limit reset")

		if !rejected && !isReplayable(req) {
			// The remote accepted this request; replaying it could duplicate
			// its side effect, so only the wait is honoured.
			if err := t.sleep(ctx, wait); err != nil {
				log.With("error", err).Warn("Rate limit wait interrupted")
			}
			return resp, nil
		}

		drain(resp)
		if err := t.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

// replayableBody returns a function that yields a fresh copy of the request
// body for every attempt.
func replayableBody(req *http.Request) (func() (io.ReadCloser, error), error) {
	if req.Body == nil || req.Body == http.NoBody {
		return func() (io.ReadCloser, error) { return http.NoBody, nil }, nil
	}
	if req.GetBody != nil {
		return req.GetBody, nil
	}

	data, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("buffering request body: %w", err)
	}
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}, nil
}

// isRejection reports whether resp is a rate-limit rejection. The body is
// restored so callers can still read it.
func isRejection(resp *http.Response) (bool, error) {
	if resp.StatusCode != http.StatusForbidden && resp.StatusCode != http.StatusTooManyRequests {
		return false, nil
	}
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return false, fmt.Errorf("reading %d response body: %w", resp.StatusCode, err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(data))
	return strings.Contains(strings.ToLower(string(data)), "rate limit"), nil
}

// isReplayable mirrors net/http: safe and idempotent methods, or requests
// carrying an idempotency key.
func isReplayable(req *http.Request) bool {
	switch req.Method {
	case "", http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace, http.MethodPut, http.MethodDelete:
		return true
	}
	_, hasKey := req.Header["Idempotency-Key"]
	_, hasXKey := req.Header["X-Idempotency-Key"]
	return hasKey || hasXKey
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
