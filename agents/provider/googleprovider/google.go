/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package googleprovider adapts the Gemini API to provider.Interface.
package googleprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/darshan8850/IssueWise/agents/metrics"
	"github.com/darshan8850/IssueWise/agents/provider"
	"github.com/darshan8850/IssueWise/agents/provider/retry"
	"github.com/darshan8850/IssueWise/agents/schema"
	"github.com/darshan8850/IssueWise/agents/toolcall"
	"github.com/google/uuid"
	"google.golang.org/genai"
)

// Provider calls a Gemini model through stateless GenerateContent calls.
type Provider struct {
	client          *genai.Client
	model           string
	maxOutputTokens int32
	retryConfig     retry.Config
	metrics         *metrics.GenAI

	baseURL string
}

var _ provider.Interface = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider) error

// WithBaseURL points the client at an API endpoint other than Google's.
func WithBaseURL(url string) Option {
	return func(p *Provider) error {
		p.baseURL = url
		return nil
	}
}

// WithMaxOutputTokens bounds each completion.
func WithMaxOutputTokens(tokens int32) Option {
	return func(p *Provider) error {
		if tokens <= 0 {
			return fmt.Errorf("max output tokens must be positive, got %d", tokens)
		}
		p.maxOutputTokens = tokens
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

// New creates a Provider for a Gemini model.
func New(ctx context.Context, apiKey, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	if !strings.HasPrefix(model, "gemini-") {
		return nil, fmt.Errorf("model %q does not appear to be a Gemini model (expected gemini-* format)", model)
	}

	p := &Provider{
		model:       model,
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

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if p.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: p.baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}
	p.client = client
	return p, nil
}

// Model implements provider.Interface.
func (p *Provider) Model() string {
	return p.model
}

// Complete implements provider.Interface.
func (p *Provider) Complete(ctx context.Context, req provider.Request) (provider.Response, error) {
	contents, config, err := p.buildRequest(req)
	if err != nil {
		return provider.Response{}, err
	}

	clog.FromContext(ctx).With("model", p.model).
		With("contents", len(contents)).
		Debug("Sending Gemini request")

	result, err := retry.Do(ctx, p.retryConfig, "gemini_generate_content", isRetryableGeminiError, func() (*genai.GenerateContentResponse, error) {
		return p.client.Models.GenerateContent(ctx, p.model, contents, config)
	})
	if err != nil {
		return provider.Response{}, fmt.Errorf("calling Gemini model %q: %w", p.model, err)
	}

	resp, err := fromResponse(result)
	if err != nil {
		return provider.Response{}, err
	}
	p.metrics.RecordTokens(ctx, p.model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return resp, nil
}

func (p *Provider) buildRequest(req provider.Request) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	config := &genai.GenerateContentConfig{}
	if p.maxOutputTokens > 0 {
		config.MaxOutputTokens = p.maxOutputTokens
	}

	system := req.System
	for _, msg := range req.Messages {
		if msg.Role == provider.RoleSystem {
			system = strings.TrimSpace(system + "\n" + msg.Content)
		}
	}
	if system != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}

	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, def := range req.Tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  schema.ToGenai(def.Schema),
			})
		}
		config.Tools = []*genai.Tool{{FunctionDeclarations: decls}}

		mode := genai.FunctionCallingConfigModeAuto
		if req.ToolMode == provider.ToolModeRequired {
			mode = genai.FunctionCallingConfigModeAny
		}
		config.ToolConfig = &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: mode},
		}
	}

	contents, err := toContents(req.Messages)
	if err != nil {
		return nil, nil, err
	}
	return contents, config, nil
}

// toContents converts the conversation into Gemini contents. Function
// responses answering one model turn are sent together in a single user
// content.
func toContents(msgs []provider.Message) ([]*genai.Content, error) {
	var out []*genai.Content
	var pendingResponses *genai.Content

	flush := func() {
		if pendingResponses != nil {
			out = append(out, pendingResponses)
			pendingResponses = nil
		}
	}

	for _, msg := range msgs {
		switch msg.Role {
		case provider.RoleSystem:
			continue

		case provider.RoleUser:
			flush()
			out = append(out, &genai.Content{
				Role:  "user",
				Parts: []*genai.Part{{Text: msg.Content}},
			})

		case provider.RoleAssistant:
			flush()
			content := &genai.Content{Role: "model"}
			if msg.Content != "" {
				content.Parts = append(content.Parts, &genai.Part{Text: msg.Content})
			}
			for _, call := range msg.ToolCalls {
				content.Parts = append(content.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{
						ID:   call.ID,
						Name: call.Name,
						Args: call.Args,
					},
				})
			}
			if len(content.Parts) > 0 {
				out = append(out, content)
			}

		case provider.RoleTool:
			if pendingResponses == nil {
				pendingResponses = &genai.Content{Role: "user"}
			}
			pendingResponses.Parts = append(pendingResponses.Parts, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					ID:       msg.ToolCallID,
					Name:     msg.ToolName,
					Response: responseObject(msg.Content),
				},
			})

		default:
			return nil, fmt.Errorf("unsupported message role %q", msg.Role)
		}
	}
	flush()
	return out, nil
}

// responseObject returns content as a JSON object, wrapping it under
// "output" when it is not one already.
func responseObject(content string) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(content), &obj); err == nil && obj != nil {
		return obj
	}
	return map[string]any{"output": content}
}

// fromResponse normalizes the first candidate of a reply. Gemini may omit
// function call ids, so missing ones are synthesised to keep results
// correlatable.
func fromResponse(result *genai.GenerateContentResponse) (provider.Response, error) {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return provider.Response{}, errors.New("gemini response has no candidates")
	}

	var resp provider.Response
	if u := result.UsageMetadata; u != nil {
		resp.Usage = provider.Usage{
			PromptTokens:     int64(u.PromptTokenCount),
			CompletionTokens: int64(u.CandidatesTokenCount),
		}
	}

	var text []string
	for _, part := range result.Candidates[0].Content.Parts {
		switch {
		case part.FunctionCall != nil:
			id := part.FunctionCall.ID
			if id == "" {
				id = "call_" + uuid.NewString()
			}
			args := part.FunctionCall.Args
			if args == nil {
				args = map[string]any{}
			}
			resp.ToolCalls = append(resp.ToolCalls, toolcall.ToolCall{
				ID:   id,
				Name: part.FunctionCall.Name,
				Args: args,
			})
		case part.Text != "" && !part.Thought:
			text = append(text, part.Text)
		}
	}
	resp.Content = strings.TrimSpace(strings.Join(text, ""))
	return resp, nil
}

// isRetryableGeminiError checks if an error is a retryable Gemini API error.
// Returns true for rate limit, quota exhaustion, and transient server errors.
func isRetryableGeminiError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return retry.TransientStatus(apiErr.Code)
	}
	errStr := err.Error()
	return strings.Contains(errStr, "RESOURCE_EXHAUSTED") ||
		strings.Contains(errStr, "UNAVAILABLE") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "503")
}
