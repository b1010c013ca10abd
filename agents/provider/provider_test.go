/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package provider

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestConversationAppendOnly(t *testing.T) {
	var c Conversation
	c.Append(Message{Role: RoleUser, Content: "one"})
	snapshot := c.Messages()
	snapshot[0].Content = "mutated"
	c.Append(Message{Role: RoleAssistant, Content: "two"})

	want := []Message{{Role: RoleUser, Content: "one"}, {Role: RoleAssistant, Content: "two"}}
	if diff := cmp.Diff(want, c.Messages()); diff != "" {
		t.Errorf("Messages() mismatch (-want +got):\n%s", diff)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestDecodeArgs(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    map[string]any
		wantErr bool
	}{
		{name: "object", raw: `{"owner":"o","issue_num":3}`, want: map[string]any{"owner": "o", "issue_num": float64(3)}},
		{name: "empty", raw: "", want: map[string]any{}},
		{name: "whitespace", raw: "  ", want: map[string]any{}},
		{name: "not an object", raw: `["a"]`, wantErr: true},
		{name: "malformed", raw: `{"owner":`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeArgs([]byte(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeArgs() error = %v, wantErr %v", err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("DecodeArgs() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncodeArgs(t *testing.T) {
	got, err := EncodeArgs(nil)
	if err != nil || got != "{}" {
		t.Errorf("EncodeArgs(nil) = %q, %v; want {}", got, err)
	}
	got, err = EncodeArgs(map[string]any{"ref": "main"})
	if err != nil || got != `{"ref":"main"}` {
		t.Errorf("EncodeArgs() = %q, %v", got, err)
	}
}

func TestToolModeString(t *testing.T) {
	if ToolModeAuto.String() != "auto" || ToolModeRequired.String() != "required" {
		t.Errorf("ToolMode strings = %q, %q", ToolModeAuto, ToolModeRequired)
	}
}
