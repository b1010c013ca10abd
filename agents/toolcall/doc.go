/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package toolcall defines provider-independent tools and the registry that
// validates and dispatches model tool calls.
//
// A Tool pairs a Definition (name, description and a JSON schema reflected
// from a typed argument struct) with a Handler. Tools are collected into a
// Registry at construction time; the registry is immutable afterwards.
//
//	reg, err := toolcall.NewRegistry(
//		toolcall.Tool{
//			Def: toolcall.Define[lookupArgs]("lookup", "Look up a record."),
//			Handler: func(ctx context.Context, call toolcall.ToolCall) (any, error) {
//				id, err := params.Extract[string](call.Args, "id")
//				if err != nil {
//					return nil, err
//				}
//				return store.Get(ctx, id)
//			},
//		},
//	)
//
// Handler results are wrapped in a Result, which encodes as
// {"ok":true,"result":...} or {"ok":false,"error":"..."} so that the model
// can always tell success from failure.
package toolcall
