/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package issues

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v84/github"
)

// NotFoundError is returned when the requested resource does not exist or is
// not visible to the installation.
type NotFoundError struct {
	Op       string
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s not found", e.Op, e.Resource)
}

// RemoteError is returned for any other unsuccessful GitHub response.
type RemoteError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %d %s", e.Op, e.StatusCode, e.Message)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// classify maps a go-github failure onto the gateway's error types. Errors
// that never reached GitHub, including credential failures, are wrapped
// unchanged so their own type survives errors.As.
func classify(op, resource string, resp *github.Response, err error) error {
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return &NotFoundError{Op: op, Resource: resource}
	}
	var ger *github.ErrorResponse
	if errors.As(err, &ger) && ger.Response != nil {
		return &RemoteError{
			Op:         op,
			StatusCode: ger.Response.StatusCode,
			Message:    ger.Message,
			Err:        err,
		}
	}
	if resp != nil && resp.StatusCode >= http.StatusBadRequest {
		return &RemoteError{Op: op, StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode), Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
