/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package openaiprovider adapts OpenAI-compatible Chat Completions APIs to
// provider.Interface. The same adapter serves OpenAI and Mistral.
package openaiprovider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/darshan8850/IssueWise/agents/metrics"
	"github.com/darshan8850/IssueWise/agents/provider"
	"github.com/darshan8850/IssueWise/agents/provider/retry"
	"github.com/darshan8850/IssueWise/agents/schema"
	"github.com/darshan8850/IssueWise/agents/toolcall"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// MistralBaseURL is Mistral's OpenAI-compatible endpoint.
const MistralBaseURL = "https://api.mistral.ai/v1"

// Provider calls a chat-completions model.
type Provider struct {
	client      openai.Client
	model       string
	vendor      string
	forceTools  bool
	retryConfig retry.Config
	metrics     *metrics.GenAI

	clientOpts []option.RequestOption
}

var _ provider.Interface = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider) error

// WithBaseURL points the client at another OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(p *Provider) error {
		p.clientOpts = append(p.clientOpts, option.WithBaseURL(url))
		return nil
	}
}

// WithForcedToolUse makes every completion call at least one tool,
// regardless of the request's ToolMode.
func WithForcedToolUse() Option {
	return func(p *Provider) error {
		p.forceTools = true
		return nil
	}
}

// WithRetryConfig overrides the backoff for transient API errors.
func WithRetryConfig(cfg retry.Config) Option {
	return func(p *Provider) error {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid retry config: %w", err)
		}
		p.retryConfig = cfg
		return nil
	}
}

// WithMetrics overrides the metrics sink.
func WithMetrics(m *metrics.GenAI) Option {
	return func(p *Provider) error {
		p.metrics = m
		return nil
	}
}

// New creates a Provider for an OpenAI model.
func New(apiKey, model string, opts ...Option) (*Provider, error) {
	return newProvider("openai", apiKey, model, opts...)
}

// NewMistral creates a Provider for a Mistral model. Mistral runs are
// forced to call a tool on every turn.
func NewMistral(apiKey, model string, opts ...Option) (*Provider, error) {
	return newProvider("mistral", apiKey, model, append([]Option{WithBaseURL(MistralBaseURL), WithForcedToolUse()}, opts...)...)
}

func newProvider(vendor, apiKey, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s API key is required", vendor)
	}
	if model == "" {
		return nil, fmt.Errorf("%s model is required", vendor)
	}

	p := &Provider{
		model:       model,
		vendor:      vendor,
		retryConfig: retry.DefaultConfig(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	if p.metrics == nil {
		p.metrics = metrics.NewGenAI(metrics.MeterName)
	}

	p.client = openai.NewClient(append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, p.clientOpts...)...)
	return p, nil
}

// Model implements provider.Interface.
func (p *Provider) Model() string {
	return p.model
}

// Complete implements provider.Interface.
func (p *Provider) Complete(ctx context.Context, req provider.Request) (provider.Response, error) {
	params, err := p.buildParams(req)
	if err != nil {
		return provider.Response{}, err
	}

	clog.FromContext(ctx).With("vendor", p.vendor).
		With("model", p.model).
		With("messages", len(params.Messages)).
		Debug("Sending chat completion request")

	completion, err := retry.Do(ctx, p.retryConfig, p.vendor+"_chat_completion", isRetryableError, func() (*openai.ChatCompletion, error) {
		return p.client.Chat.Completions.New(ctx, params)
	})
	if err != nil {
		return provider.Response{}, fmt.Errorf("calling %s model %q: %w", p.vendor, p.model, err)
	}

	resp, err := fromCompletion(completion)
	if err != nil {
		return provider.Response{}, err
	}
	p.metrics.RecordTokens(ctx, p.model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return resp, nil
}

func (p *Provider) buildParams(req provider.Request) (openai.ChatCompletionNewParams, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
	}

	if req.System != "" {
		params.Messages = append(params.Messages, openai.SystemMessage(req.System))
	}
	for _, msg := range req.Messages {
		m, err := toMessage(msg)
		if err != nil {
			return params, err
		}
		params.Messages = append(params.Messages, m)
	}

	for _, def := range req.Tools {
		parameters, err := schema.ToMap(def.Schema)
		if err != nil {
			return params, fmt.Errorf("converting schema for tool %q: %w", def.Name, err)
		}
		params.Tools = append(params.Tools, openai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        def.Name,
				Description: openai.String(def.Description),
				Parameters:  shared.FunctionParameters(parameters),
			},
		})
	}
	if len(params.Tools) > 0 {
		choice := "auto"
		if p.forceTools || req.ToolMode == provider.ToolModeRequired {
			choice = "required"
		}
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String(choice)}
	}
	return params, nil
}

func toMessage(msg provider.Message) (openai.ChatCompletionMessageParamUnion, error) {
	switch msg.Role {
	case provider.RoleSystem:
		return openai.SystemMessage(msg.Content), nil
	case provider.RoleUser:
		return openai.UserMessage(msg.Content), nil
	case provider.RoleTool:
		return openai.ToolMessage(msg.Content, msg.ToolCallID), nil
	case provider.RoleAssistant:
		assistant := openai.ChatCompletionAssistantMessageParam{}
		if msg.Content != "" {
			assistant.Content.OfString = openai.String(msg.Content)
		}
		for _, call := range msg.ToolCalls {
			args, err := provider.EncodeArgs(call.Args)
			if err != nil {
				return openai.ChatCompletionMessageParamUnion{}, fmt.Errorf("tool call %q: %w", call.Name, err)
			}
			assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
				ID: call.ID,
				Function: openai.ChatCompletionMessageToolCallFunctionParam{
					Name:      call.Name,
					Arguments: args,
				},
			})
		}
		return openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant}, nil
	default:
		return openai.ChatCompletionMessageParamUnion{}, fmt.Errorf("unsupported message role %q", msg.Role)
	}
}

// fromCompletion normalizes the first choice of a completion.
func fromCompletion(completion *openai.ChatCompletion) (provider.Response, error) {
	if completion == nil || len(completion.Choices) == 0 {
		return provider.Response{}, errors.New("completion has no choices")
	}

	msg := completion.Choices[0].Message
	resp := provider.Response{
		Content: strings.TrimSpace(msg.Content),
		Usage: provider.Usage{
			PromptTokens:     completion.Usage.PromptTokens,
			CompletionTokens: completion.Usage.CompletionTokens,
		},
	}
	for _, tc := range msg.ToolCalls {
		args, err := provider.DecodeArgs([]byte(tc.Function.Arguments))
		if err != nil {
			return provider.Response{}, fmt.Errorf("tool call %q: %w", tc.Function.Name, err)
		}
		resp.ToolCalls = append(resp.ToolCalls, toolcall.ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: args,
		})
	}
	return resp, nil
}

func isRetryableError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return retry.TransientStatus(apiErr.StatusCode)
	}
	return false
}
