/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package claudeprovider adapts the Anthropic Messages API to provider.Interface.
package claudeprovider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/chainguard-dev/clog"
	"github.com/darshan8850/IssueWise/agents/metrics"
	"github.com/darshan8850/IssueWise/agents/provider"
	"github.com/darshan8850/IssueWise/agents/provider/retry"
	"github.com/darshan8850/IssueWise/agents/schema"
	"github.com/darshan8850/IssueWise/agents/toolcall"
)

// DefaultMaxTokens bounds each completion.
const DefaultMaxTokens = 4096

// Provider calls a Claude model.
type Provider struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	retryConfig retry.Config
	metrics     *metrics.GenAI

	clientOpts []option.RequestOption
}

var _ provider.Interface = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider) error

// WithMaxTokens sets the maximum tokens for each completion.
func WithMaxTokens(tokens int64) Option {
	return func(p *Provider) error {
		if tokens <= 0 {
			return fmt.Errorf("max tokens must be positive, got %d", tokens)
		}
		p.maxTokens = tokens
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

// WithBaseURL points the client at an API endpoint other than Anthropic's.
func WithBaseURL(url string) Option {
	return func(p *Provider) error {
		p.clientOpts = append(p.clientOpts, option.WithBaseURL(url))
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

// New creates a Provider for model, authenticated with apiKey.
func New(apiKey, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("claude API key is required")
	}
	if !strings.HasPrefix(model, "claude-") {
		return nil, fmt.Errorf("model %q does not appear to be a Claude model (expected claude-* format)", model)
	}

	p := &Provider{
		model:       model,
		maxTokens:   DefaultMaxTokens,
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

	// Transient failures are retried by retry.Do with our own backoff.
	p.client = anthropic.NewClient(append([]option.RequestOption{
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

	clog.FromContext(ctx).With("model", p.model).
		With("messages", len(params.Messages)).
		Debug("Sending Claude request")

	message, err := retry.Do(ctx, p.retryConfig, "claude_message", isRetryableClaudeError, func() (*anthropic.Message, error) {
		return p.client.Messages.New(ctx, params)
	})
	if err != nil {
		return provider.Response{}, fmt.Errorf("calling Claude model %q: %w", p.model, err)
	}

	resp, err := fromMessage(message)
	if err != nil {
		return provider.Response{}, err
	}
	p.metrics.RecordTokens(ctx, p.model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return resp, nil
}

func (p *Provider) buildParams(req provider.Request) (anthropic.MessageNewParams, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: p.maxTokens,
	}

	system := req.System
	for _, msg := range req.Messages {
		if msg.Role == provider.RoleSystem {
			system = strings.TrimSpace(system + "\n" + msg.Content)
		}
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	messages, err := toMessages(req.Messages)
	if err != nil {
		return params, err
	}
	params.Messages = messages

	for _, def := range req.Tools {
		props, err := schema.Properties(def.Schema)
		if err != nil {
			return params, fmt.Errorf("converting schema for tool %q: %w", def.Name, err)
		}
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        def.Name,
				Description: anthropic.String(def.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Type:       "object",
					Properties: props,
					Required:   def.Required(),
				},
			},
		})
	}
	if len(params.Tools) > 0 && req.ToolMode == provider.ToolModeRequired {
		params.ToolChoice = anthropic.ToolChoiceUnionParam{OfAny: &anthropic.ToolChoiceAnyParam{}}
	}
	return params, nil
}

// toMessages converts the conversation into Messages API turns. Claude
// expects all results for one assistant turn in a single user message, so
// consecutive tool messages are merged.
func toMessages(msgs []provider.Message) ([]anthropic.MessageParam, error) {
	var out []anthropic.MessageParam
	for _, msg := range msgs {
		switch msg.Role {
		case provider.RoleSystem:
			continue

		case provider.RoleUser:
			out = append(out, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleUser,
				Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(msg.Content)},
			})

		case provider.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				input := call.Args
				if input == nil {
					input = map[string]any{}
				}
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    call.ID,
						Name:  call.Name,
						Input: input,
					},
				})
			}
			if len(blocks) == 0 {
				continue
			}
			out = append(out, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleAssistant,
				Content: blocks,
			})

		case provider.RoleTool:
			block := anthropic.ContentBlockParamUnion{
				OfToolResult: &anthropic.ToolResultBlockParam{
					ToolUseID: msg.ToolCallID,
					Content: []anthropic.ToolResultBlockParamContentUnion{{
						OfText: &anthropic.TextBlockParam{Text: msg.Content},
					}},
				},
			}
			if n := len(out); n > 0 && out[n-1].Role == anthropic.MessageParamRoleUser && isToolResults(out[n-1]) {
				out[n-1].Content = append(out[n-1].Content, block)
				continue
			}
			out = append(out, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleUser,
				Content: []anthropic.ContentBlockParamUnion{block},
			})

		default:
			return nil, fmt.Errorf("unsupported message role %q", msg.Role)
		}
	}
	return out, nil
}

func isToolResults(m anthropic.MessageParam) bool {
	for _, b := range m.Content {
		if b.OfToolResult == nil {
			return false
		}
	}
	return len(m.Content) > 0
}

// fromMessage normalizes a Claude reply.
func fromMessage(message *anthropic.Message) (provider.Response, error) {
	if message == nil {
		return provider.Response{}, errors.New("empty Claude response")
	}

	resp := provider.Response{
		Usage: provider.Usage{
			PromptTokens:     message.Usage.InputTokens,
			CompletionTokens: message.Usage.OutputTokens,
		},
	}
	var text []string
	for _, block := range message.Content {
		switch block.Type {
		case "text":
			text = append(text, block.Text)
		case "tool_use":
			args, err := provider.DecodeArgs(block.Input)
			if err != nil {
				return provider.Response{}, fmt.Errorf("tool call %q: %w", block.Name, err)
			}
			resp.ToolCalls = append(resp.ToolCalls, toolcall.ToolCall{
				ID:   block.ID,
				Name: block.Name,
				Args: args,
			})
		}
	}
	resp.Content = strings.Join(text, "\n")
	return resp, nil
}

// isRetryableClaudeError checks if an error is a retryable Claude API error.
// Returns true for rate limit, overloaded, and transient server errors.
func isRetryableClaudeError(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429, 503, 504, 529:
			return true
		}
	}
	return false
}
