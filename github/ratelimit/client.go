/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package ratelimit

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
)

// TransportError is returned when a request could not be delivered at all.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Client issues HTTP requests through a rate-limit aware Transport.
type Client struct {
	transport *Transport
	http      *http.Client
}

// NewClient creates a Client. Options configure the underlying Transport.
func NewClient(opts ...Option) *Client {
	t := NewTransport(opts...)
	return &Client{
		transport: t,
		http:      &http.Client{Transport: t},
	}
}

// Transport returns the rate-limit aware round tripper, for layering other
// transports (such as oauth2) on top of it.
func (c *Client) Transport() *Transport {
	return c.transport
}

// HTTPClient returns an *http.Client backed by the rate-limit aware transport.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// Request sends a request and returns the first response that is not
// subject to a rate-limit wait. Any status code is returned to the caller;
// only delivery failures produce an error, as a *TransportError.
func (c *Client) Request(ctx context.Context, method, url string, headers http.Header, body []byte) (*http.Response, error) {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	var req *http.Request
	var err error
	if reader != nil {
		req, err = http.NewRequestWithContext(ctx, method, url, reader)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, url, nil)
	}
	if err != nil {
		return nil, &TransportError{Method: method, URL: url, Err: err}
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Method: method, URL: url, Err: err}
	}
	return resp, nil
}
