/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package toolcall

import (
	"encoding/json"
	"fmt"
)

// Result is the outcome of one tool call as reported to the model.
type Result struct {
	OK    bool
	Value any
	Error string
}

// Success wraps a handler's return value.
func Success(v any) Result {
	return Result{OK: true, Value: v}
}

// Failure wraps a handler's error.
func Failure(err error) Result {
	return Result{Error: err.Error()}
}

// Failuref builds a failed Result from a format string.
func Failuref(format string, args ...any) Result {
	return Result{Error: fmt.Sprintf(format, args...)}
}

type wireResult struct {
	OK     bool   `json:"ok"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// MarshalJSON encodes r as {"ok":true,"result":...} or {"ok":false,"error":"..."}.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.OK {
		return json.Marshal(wireResult{OK: true, Result: r.Value})
	}
	return json.Marshal(wireResult{Error: r.Error})
}

// String renders r as the JSON text placed in a tool message.
func (r Result) String() string {
	data, err := json.Marshal(r)
	if err != nil {
		data, _ = json.Marshal(Failuref("encoding tool result: %v", err))
	}
	return string(data)
}
