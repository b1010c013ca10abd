/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package triage drives a bounded tool-calling conversation that reads a
// GitHub issue, gathers code context, and posts a reply.
//
// A run moves through Started, AwaitingModelResponse and DispatchingTools,
// looping until the model answers without tools (Finished), a comment is
// posted (Finished), the step ceiling is reached (Aborted), a fatal
// credential or configuration error occurs (Aborted), or the run fails
// (Failed). Progress is reported through ordered Notifications.
//
// Once a run has fetched its issue, the issue title and body joined by a
// newline become the run's canonical description. A retrieve_context call
// whose issue_description disagrees is corrected before it is dispatched.
package triage
