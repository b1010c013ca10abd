/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package toolcall_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/darshan8850/IssueWise/agents/toolcall"
	"github.com/google/go-cmp/cmp"
)

type echoArgs struct {
	Text  string `json:"text" jsonschema:"description=Text to echo,required"`
	Times int    `json:"times,omitempty" jsonschema:"description=Repetitions"`
}

type pingArgs struct{}

func noop(context.Context, toolcall.ToolCall) (any, error) { return nil, nil }

func newRegistry(t *testing.T) *toolcall.Registry {
	t.Helper()
	reg, err := toolcall.NewRegistry(
		toolcall.Tool{Def: toolcall.Define[echoArgs]("echo", "Echo text."), Handler: noop},
		toolcall.Tool{Def: toolcall.Define[pingArgs]("ping", "Ping."), Handler: noop},
	)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return reg
}

func TestNewRegistryRejectsBadTools(t *testing.T) {
	tests := []struct {
		name  string
		tools []toolcall.Tool
	}{{
		name:  "empty name",
		tools: []toolcall.Tool{{Handler: noop}},
	}, {
		name:  "missing handler",
		tools: []toolcall.Tool{{Def: toolcall.Definition{Name: "x"}}},
	}, {
		name: "duplicate",
		tools: []toolcall.Tool{
			{Def: toolcall.Definition{Name: "x"}, Handler: noop},
			{Def: toolcall.Definition{Name: "x"}, Handler: noop},
		},
	}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := toolcall.NewRegistry(tt.tools...); err == nil {
				t.Error("NewRegistry() error = nil, want error")
			}
		})
	}
}

func TestRegistryOrderAndLookup(t *testing.T) {
	reg := newRegistry(t)

	if diff := cmp.Diff([]string{"echo", "ping"}, reg.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
	defs := reg.Definitions()
	if len(defs) != 2 || defs[0].Name != "echo" || defs[1].Description != "Ping." {
		t.Errorf("Definitions() = %+v", defs)
	}
	if diff := cmp.Diff([]string{"text"}, defs[0].Required()); diff != "" {
		t.Errorf("Required() mismatch (-want +got):\n%s", diff)
	}
	if _, ok := reg.Lookup("echo"); !ok {
		t.Error("Lookup(echo) = false, want true")
	}
	if _, ok := reg.Lookup("nope"); ok {
		t.Error("Lookup(nope) = true, want false")
	}
}

func TestRegistryValidate(t *testing.T) {
	reg := newRegistry(t)

	tests := []struct {
		name        string
		call        toolcall.ToolCall
		wantErr     string
		wantUnknown bool
	}{{
		name: "valid",
		call: toolcall.ToolCall{Name: "echo", Args: map[string]any{"text": "hi"}},
	}, {
		name: "optional omitted",
		call: toolcall.ToolCall{Name: "ping"},
	}, {
		name:    "missing required",
		call:    toolcall.ToolCall{Name: "echo", Args: map[string]any{"times": 2.0}},
		wantErr: "missing required parameters: text",
	}, {
		name:        "unknown tool lists legal tools",
		call:        toolcall.ToolCall{Name: "delete_repo"},
		wantErr:     "available tools are echo, ping",
		wantUnknown: true,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reg.Validate(tt.call)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
			if got := errors.Is(err, toolcall.ErrUnknownTool); got != tt.wantUnknown {
				t.Errorf("errors.Is(ErrUnknownTool) = %v, want %v", got, tt.wantUnknown)
			}
		})
	}
}

func TestToolCallClone(t *testing.T) {
	orig := toolcall.ToolCall{ID: "1", Name: "echo", Args: map[string]any{"text": "a"}}
	c := orig.Clone()
	c.Args["text"] = "b"
	if orig.Args["text"] != "a" {
		t.Errorf("original args modified: %v", orig.Args)
	}
}

func TestResultEncoding(t *testing.T) {
	tests := []struct {
		name   string
		result toolcall.Result
		want   string
	}{{
		name:   "success",
		result: toolcall.Success(map[string]any{"id": 5}),
		want:   `{"ok":true,"result":{"id":5}}`,
	}, {
		name:   "success without value",
		result: toolcall.Success(nil),
		want:   `{"ok":true}`,
	}, {
		name:   "failure",
		result: toolcall.Failure(errors.New("issue not found")),
		want:   `{"ok":false,"error":"issue not found"}`,
	}, {
		name:   "formatted failure",
		result: toolcall.Failuref("bad %s", "input"),
		want:   `{"ok":false,"error":"bad input"}`,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.String(); got != tt.want {
				t.Errorf("String() = %s, want %s", got, tt.want)
			}
			data, err := json.Marshal(tt.result)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("Marshal() = %s, want %s", data, tt.want)
			}
		})
	}
}
