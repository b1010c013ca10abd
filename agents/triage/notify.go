/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package triage

import (
	"fmt"
	"time"
)

// NotificationKind classifies a progress notification.
type NotificationKind string

const (
	NotifyStarted       NotificationKind = "started"
	NotifyToolCall      NotificationKind = "tool_call"
	NotifyCached        NotificationKind = "description_cached"
	NotifyOverride      NotificationKind = "description_override"
	NotifyUnknownTool   NotificationKind = "unknown_tool"
	NotifyToolError     NotificationKind = "tool_error"
	NotifyAnswer        NotificationKind = "answer"
	NotifyCommentPosted NotificationKind = "comment_posted"
	NotifyStepCeiling   NotificationKind = "step_ceiling"
	NotifyFailed        NotificationKind = "failed"
	NotifyCompleted     NotificationKind = "completed"
)

// Notification is one line of human-readable run progress.
type Notification struct {
	Seq     int              `json:"seq"`
	Time    time.Time        `json:"time"`
	Kind    NotificationKind `json:"kind"`
	Message string           `json:"message"`
}

func (n Notification) String() string {
	return fmt.Sprintf("%s [%d] %s", n.Time.Format(time.RFC3339), n.Seq, n.Message)
}

// notifier stamps and sequences notifications for one run.
type notifier struct {
	now  func() time.Time
	sink func(Notification)
	seq  int
	log  []Notification
}

func (n *notifier) emit(kind NotificationKind, format string, args ...any) {
	n.seq++
	note := Notification{
		Seq:     n.seq,
		Time:    n.now(),
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
	n.log = append(n.log, note)
	if n.sink != nil {
		n.sink(note)
	}
}

// FailedOutcome reports a run that failed before the orchestrator started.
// notify, when set, receives the terminal failure notification.
func FailedOutcome(err error, notify func(Notification)) Outcome {
	n := &notifier{now: time.Now, sink: notify}
	n.emit(NotifyFailed, "Run failed: %v", err)
	return Outcome{State: Failed, Cause: err, Notifications: n.log}
}
