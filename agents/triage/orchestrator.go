/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package triage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/darshan8850/IssueWise/agents/metrics"
	"github.com/darshan8850/IssueWise/agents/provider"
	"github.com/darshan8850/IssueWise/agents/toolcall"
	"github.com/darshan8850/IssueWise/github/issues"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMaxSteps bounds the number of tool-call batches per run.
const DefaultMaxSteps = 5

const tracerName = "github.com/darshan8850/IssueWise/agents/triage"

// Orchestrator runs triage conversations against one provider.
type Orchestrator struct {
	provider     provider.Interface
	providerName string
	registry     *toolcall.Registry
	maxSteps     int
	now          func() time.Time
	metrics      *metrics.GenAI
	tracer       trace.Tracer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithMaxSteps sets the tool-call batch ceiling.
func WithMaxSteps(n int) Option {
	return func(o *Orchestrator) error {
		if n <= 0 {
			return fmt.Errorf("max steps must be positive, got %d", n)
		}
		o.maxSteps = n
		return nil
	}
}

// WithProviderName sets the display name used in the start notification.
func WithProviderName(name string) Option {
	return func(o *Orchestrator) error {
		o.providerName = name
		return nil
	}
}

// WithClock overrides the time source used to stamp notifications.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) error {
		o.now = now
		return nil
	}
}

// WithMetrics overrides the metrics sink.
func WithMetrics(m *metrics.GenAI) Option {
	return func(o *Orchestrator) error {
		o.metrics = m
		return nil
	}
}

// New creates an Orchestrator.
func New(p provider.Interface, registry *toolcall.Registry, opts ...Option) (*Orchestrator, error) {
	if p == nil {
		return nil, errors.New("provider is required")
	}
	if registry == nil {
		return nil, errors.New("tool registry is required")
	}

	o := &Orchestrator{
		provider:     p,
		providerName: p.Model(),
		registry:     registry,
		maxSteps:     DefaultMaxSteps,
		now:          time.Now,
		tracer:       otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.metrics == nil {
		o.metrics = metrics.NewGenAI(metrics.MeterName)
		o.metrics.SetAttributeEnricher(metrics.IssueEnricher)
	}
	return o, nil
}

// run is the mutable state of one conversation.
type run struct {
	ref         issues.Reference
	conv        provider.Conversation
	description string
	outcome     Outcome
	notes       *notifier
}

// fatal is implemented by errors that make further tool execution unsafe.
type fatal interface {
	Fatal() bool
}

func isFatal(err error) bool {
	var f fatal
	return errors.As(err, &f) && f.Fatal()
}

// Run triages the issue named by req. notify, if non-nil, receives every
// progress notification in order as it happens.
//
// The returned error is non-nil when the run is Failed, or Aborted by a
// fatal error. A run stopped by the step ceiling is Aborted with a nil
// error and an Outcome.Cause of ErrStepCeiling.
func (o *Orchestrator) Run(ctx context.Context, req Request, notify func(Notification)) (Outcome, error) {
	r := &run{
		notes: &notifier{now: o.now, sink: notify},
	}
	r.outcome = Outcome{
		RunID: uuid.NewString(),
		Model: o.provider.Model(),
		State: Started,
	}

	log := clog.FromContext(ctx).With("run_id", r.outcome.RunID).With("model", r.outcome.Model)
	ctx = clog.WithLogger(ctx, log)

	ctx, span := o.tracer.Start(ctx, "triage.run", trace.WithAttributes(
		attribute.String("run_id", r.outcome.RunID),
		attribute.String("model", r.outcome.Model),
		attribute.String("issue_url", req.IssueURL),
	))
	defer span.End()

	err := o.run(ctx, r, req)

	r.outcome.Notifications = r.notes.log
	r.outcome.Cause = err
	switch {
	case errors.Is(err, ErrStepCeiling):
		err = nil
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(
		attribute.String("state", r.outcome.State.String()),
		attribute.Int("steps", r.outcome.Steps),
	)
	o.metrics.RecordRun(ctx, r.outcome.Model, r.outcome.State.String())
	log.With("state", r.outcome.State.String()).
		With("steps", r.outcome.Steps).
		Info("Triage run ended")
	return r.outcome, err
}

func (o *Orchestrator) run(ctx context.Context, r *run, req Request) error {
	ref, err := issues.ParseReference(req.IssueURL)
	if err != nil {
		return o.fail(r, Failed, err)
	}
	r.ref = ref
	r.outcome.Issue = ref
	ctx = metrics.WithIssue(ctx, ref.String())

	userPrompt, err := req.Bind(UserPrompt)
	if err != nil {
		return o.fail(r, Failed, fmt.Errorf("binding user prompt: %w", err))
	}
	user, err := userPrompt.Build()
	if err != nil {
		return o.fail(r, Failed, fmt.Errorf("building user prompt: %w", err))
	}
	system, err := SystemInstructions.Build()
	if err != nil {
		return o.fail(r, Failed, fmt.Errorf("building system prompt: %w", err))
	}
	r.conv.Append(provider.Message{Role: provider.RoleUser, Content: user})

	r.notes.emit(NotifyStarted, "IssueWise agent started using %s...", o.providerName)
	log := clog.FromContext(ctx).With("issue", ref.String())

	for {
		r.outcome.State = AwaitingModelResponse
		resp, err := o.provider.Complete(ctx, provider.Request{
			System:   system,
			Messages: r.conv.Messages(),
			Tools:    o.registry.Definitions(),
			ToolMode: provider.ToolModeAuto,
		})
		if err != nil {
			if isFatal(err) {
				return o.fail(r, Aborted, err)
			}
			return o.fail(r, Failed, fmt.Errorf("model request: %w", err))
		}

		if len(resp.ToolCalls) == 0 {
			r.outcome.State = Finished
			r.outcome.Answer = resp.Content
			r.notes.emit(NotifyAnswer, "IssueWise (final): %s", resp.Content)
			r.notes.emit(NotifyCompleted, "Task Completed")
			return nil
		}

		r.conv.Append(provider.Message{
			Role:      provider.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		r.outcome.State = DispatchingTools
		step := r.outcome.Steps + 1
		log.With("step", step).With("tool_calls", len(resp.ToolCalls)).Info("Dispatching tool calls")

		for _, call := range resp.ToolCalls {
			result, posted, err := o.dispatch(ctx, r, step, call)
			if err != nil {
				return err
			}
			r.conv.Append(provider.Message{
				Role:       provider.RoleTool,
				Content:    result.String(),
				ToolCallID: call.ID,
				ToolName:   call.Name,
			})
			if posted {
				r.outcome.Steps = step
				r.outcome.State = Finished
				r.notes.emit(NotifyCommentPosted, "Comment posted. Task complete.")
				r.notes.emit(NotifyCompleted, "Task Completed")
				return nil
			}
		}

		r.outcome.Steps = step
		if step >= o.maxSteps {
			r.outcome.State = Aborted
			r.notes.emit(NotifyStepCeiling, "Agent stopped after %d tool-call batches to avoid excess tool usage.", o.maxSteps)
			r.notes.emit(NotifyCompleted, "Task Completed")
			return ErrStepCeiling
		}
	}
}

// fail moves the run to a terminal error state and emits the terminal
// notification.
func (o *Orchestrator) fail(r *run, state State, err error) error {
	r.outcome.State = state
	if state == Aborted {
		r.notes.emit(NotifyFailed, "Run aborted: %v", err)
	} else {
		r.notes.emit(NotifyFailed, "Run failed: %v", err)
	}
	return err
}

// dispatch executes one tool call. It returns the result to record, whether
// the call posted the comment, and an error when the run must stop.
func (o *Orchestrator) dispatch(ctx context.Context, r *run, step int, call toolcall.ToolCall) (toolcall.Result, bool, error) {
	call = call.Clone()
	if call.Args == nil {
		call.Args = map[string]any{}
	}
	log := clog.FromContext(ctx).With("tool", call.Name).With("call_id", call.ID)

	record := func(res toolcall.Result) {
		r.outcome.Invocations = append(r.outcome.Invocations, Invocation{Step: step, Call: call, Result: res})
	}

	if err := o.registry.Validate(call); err != nil {
		res := toolcall.Failure(err)
		if errors.Is(err, toolcall.ErrUnknownTool) {
			log.Warn("Model requested an unknown tool")
			r.notes.emit(NotifyUnknownTool, "Agent tried to call unknown tool: %s", call.Name)
		} else {
			log.With("error", err).Warn("Tool call failed validation")
			r.notes.emit(NotifyToolError, "Tool `%s` rejected: %v", call.Name, err)
		}
		o.metrics.RecordToolError(ctx, o.provider.Model(), call.Name)
		record(res)
		return res, false, nil
	}

	r.notes.emit(NotifyToolCall, "Agent is calling tool: `%s`", call.Name)

	if call.Name == ToolRetrieveContext && r.description != "" {
		if got, ok := call.Args["issue_description"]; ok && got != r.description {
			log.Info("Correcting issue_description to the canonical description")
			r.notes.emit(NotifyOverride, "Overriding incorrect issue_description with correct one from cache.")
			call.Args["issue_description"] = r.description
		}
	}

	if call.Name == ToolPostComment {
		if target, err := referenceArgs(call.Args); err == nil && !target.Same(r.ref) {
			res := toolcall.Failuref("post_comment may only comment on %s, not %s", r.ref, target)
			r.notes.emit(NotifyToolError, "Tool `%s` rejected: comments are limited to %s", call.Name, r.ref)
			o.metrics.RecordToolError(ctx, o.provider.Model(), call.Name)
			record(res)
			return res, false, nil
		}
	}

	tool, _ := o.registry.Lookup(call.Name)
	ctx, span := o.tracer.Start(ctx, "triage.tool", trace.WithAttributes(
		attribute.String("tool", call.Name),
		attribute.String("call_id", call.ID),
		attribute.Int("step", step),
	))
	defer span.End()
	o.metrics.RecordToolCall(ctx, o.provider.Model(), call.Name)

	value, err := tool.Handler(ctx, call)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		res := toolcall.Failure(err)
		record(res)

		var postErr *PostError
		switch {
		case isFatal(err):
			log.With("error", err).Error("Fatal tool error, aborting run")
			return res, false, o.fail(r, Aborted, err)
		case errors.As(err, &postErr):
			log.With("error", err).Error("Posting the comment failed")
			return res, false, o.fail(r, Failed, err)
		}

		log.With("error", err).Warn("Tool call failed")
		r.notes.emit(NotifyToolError, "Tool `%s` failed: %v", call.Name, err)
		o.metrics.RecordToolError(ctx, o.provider.Model(), call.Name)
		return res, false, nil
	}

	res := toolcall.Success(value)
	record(res)

	switch v := value.(type) {
	case IssueResult:
		if r.description == "" && (v.Title != "" || v.Body != "") {
			r.description = v.Details().Description()
			r.notes.emit(NotifyCached, "Issue description cached.")
		}
	case CommentResult:
		r.outcome.CommentID = v.CommentID
		return res, true, nil
	}
	return res, false, nil
}
