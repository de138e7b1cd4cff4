//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package openai provides a chat completion Model backed by the OpenAI API
// (and OpenAI-compatible endpoints via WithBaseURL).
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"

	"github.com/researchagent/backend/log"
	agentmodel "github.com/researchagent/backend/model"
)

// Verify that Model implements the agentmodel.Model interface.
var _ agentmodel.Model = (*Model)(nil)

const (
	// DefaultMaxRetries is the default maximum number of retries.
	DefaultMaxRetries = 2
)

// defaultRetryBackoff mirrors the embedder's backoff schedule.
var defaultRetryBackoff = []time.Duration{
	100 * time.Millisecond,
	200 * time.Millisecond,
	400 * time.Millisecond,
	800 * time.Millisecond,
}

// Model implements agentmodel.Model for the OpenAI chat completions API.
type Model struct {
	client       openai.Client
	name         string
	apiKey       string
	organization string
	baseURL      string

	maxRetries   int
	retryBackoff []time.Duration
}

// Option configures a Model.
type Option func(*Model)

// WithAPIKey sets the OpenAI API key. Falls back to OPENAI_API_KEY if empty.
func WithAPIKey(apiKey string) Option {
	return func(m *Model) { m.apiKey = apiKey }
}

// WithOrganization sets the OpenAI organization ID.
func WithOrganization(organization string) Option {
	return func(m *Model) { m.organization = organization }
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(baseURL string) Option {
	return func(m *Model) { m.baseURL = baseURL }
}

// WithMaxRetries sets the maximum number of request retries. Negative
// values are treated as 0.
func WithMaxRetries(maxRetries int) Option {
	return func(m *Model) {
		if maxRetries < 0 {
			maxRetries = 0
		}
		m.maxRetries = maxRetries
	}
}

// WithRetryBackoff overrides the default per-attempt backoff schedule.
func WithRetryBackoff(backoff []time.Duration) Option {
	return func(m *Model) { m.retryBackoff = backoff }
}

// New creates a chat completion Model for the given model name.
func New(name string, opts ...Option) *Model {
	m := &Model{
		name:         name,
		maxRetries:   DefaultMaxRetries,
		retryBackoff: defaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(m)
	}

	var clientOpts []option.RequestOption
	if m.apiKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(m.apiKey))
	}
	if m.organization != "" {
		clientOpts = append(clientOpts, option.WithOrganization(m.organization))
	}
	if m.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(m.baseURL))
	}
	clientOpts = append(clientOpts, option.WithMaxRetries(0))

	m.client = openai.NewClient(clientOpts...)
	return m
}

// Info implements agentmodel.Model.
func (m *Model) Info() agentmodel.Info {
	return agentmodel.Info{Name: m.name}
}

// GenerateContent implements agentmodel.Model. The returned channel always
// carries at least one chunk and is closed once the stream is exhausted,
// ctx is cancelled, or every retry attempt has failed.
func (m *Model) GenerateContent(ctx context.Context, req *agentmodel.Request) (<-chan *agentmodel.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("openai: request must not be nil")
	}

	params, err := m.buildParams(req)
	if err != nil {
		return nil, fmt.Errorf("openai: build request: %w", err)
	}

	out := make(chan *agentmodel.Response, 16)
	if !req.Stream {
		go m.runNonStreaming(ctx, params, out)
		return out, nil
	}
	go m.runStreaming(ctx, params, out)
	return out, nil
}

func (m *Model) runNonStreaming(ctx context.Context, params openai.ChatCompletionNewParams, out chan<- *agentmodel.Response) {
	defer close(out)

	var rsp *openai.ChatCompletion
	var err error
	for attempt := 0; attempt <= m.maxRetries; attempt++ {
		rsp, err = m.client.Chat.Completions.New(ctx, params)
		if err == nil {
			break
		}
		if attempt >= m.maxRetries || !m.wait(ctx, attempt) {
			break
		}
	}
	if err != nil {
		out <- errorResponse(err)
		return
	}
	out <- convertCompletion(rsp)
}

func (m *Model) runStreaming(ctx context.Context, params openai.ChatCompletionNewParams, out chan<- *agentmodel.Response) {
	defer close(out)

	var stream *ssestream.Stream[openai.ChatCompletionChunk]
	var err error
	for attempt := 0; attempt <= m.maxRetries; attempt++ {
		stream = m.client.Chat.Completions.NewStreaming(ctx, params)
		err = stream.Err()
		if err == nil {
			break
		}
		if attempt >= m.maxRetries || !m.wait(ctx, attempt) {
			break
		}
	}
	if err != nil {
		out <- errorResponse(err)
		return
	}

	for stream.Next() {
		chunk := stream.Current()
		select {
		case out <- convertChunk(&chunk):
		case <-ctx.Done():
			return
		}
	}
	if err := stream.Err(); err != nil {
		log.ErrorContext(ctx, fmt.Sprintf("openai: stream error: %v", err))
		out <- errorResponse(err)
		return
	}
	out <- &agentmodel.Response{Done: true, Timestamp: time.Now()}
}

// wait sleeps the backoff for attempt, returning false if ctx is cancelled first.
func (m *Model) wait(ctx context.Context, attempt int) bool {
	backoff := defaultRetryBackoff[0]
	if len(m.retryBackoff) > 0 {
		if attempt < len(m.retryBackoff) {
			backoff = m.retryBackoff[attempt]
		} else {
			backoff = m.retryBackoff[len(m.retryBackoff)-1]
		}
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(backoff):
		return true
	}
}

func (m *Model) buildParams(req *agentmodel.Request) (openai.ChatCompletionNewParams, error) {
	name := req.Model
	if name == "" {
		name = m.name
	}
	params := openai.ChatCompletionNewParams{
		Model:    name,
		Messages: convertMessages(req.Messages),
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.MaxTokens != nil {
		params.MaxTokens = openai.Int(int64(*req.MaxTokens))
	}
	if req.JSONMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		}
	}
	if tools, err := convertTools(req.Tools); err != nil {
		return params, err
	} else if len(tools) > 0 {
		params.Tools = tools
	}
	return params, nil
}

func convertMessages(msgs []agentmodel.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case agentmodel.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case agentmodel.RoleUser:
			out = append(out, openai.UserMessage(msg.Content))
		case agentmodel.RoleTool:
			out = append(out, openai.ToolMessage(msg.Content, msg.ToolID))
		case agentmodel.RoleAssistant:
			out = append(out, convertAssistantMessage(msg))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}

func convertAssistantMessage(msg agentmodel.Message) openai.ChatCompletionMessageParamUnion {
	assistant := openai.ChatCompletionAssistantMessageParam{
		Content: openai.ChatCompletionAssistantMessageParamContentUnion{
			OfString: openai.String(msg.Content),
		},
	}
	for _, tc := range msg.ToolCalls {
		assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
				ID: tc.ID,
				Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      tc.Func.Name,
					Arguments: tc.Func.Arguments,
				},
			},
		})
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant}
}

func convertTools(defs []agentmodel.ToolDefinition) ([]openai.ChatCompletionToolUnionParam, error) {
	if len(defs) == 0 {
		return nil, nil
	}
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(defs))
	for _, d := range defs {
		params := d.Parameters
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal tool parameters for %q: %w", d.Name, err)
		}
		var schema map[string]any
		if err := json.Unmarshal(raw, &schema); err != nil {
			return nil, fmt.Errorf("decode tool parameters for %q: %w", d.Name, err)
		}
		out = append(out, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        d.Name,
			Description: openai.String(d.Description),
			Parameters:  schema,
		}))
	}
	return out, nil
}

func convertCompletion(rsp *openai.ChatCompletion) *agentmodel.Response {
	out := &agentmodel.Response{
		ID:        rsp.ID,
		Object:    agentmodel.ObjectTypeChatCompletion,
		Created:   rsp.Created,
		Model:     rsp.Model,
		Timestamp: time.Now(),
		Done:      true,
		Usage: &agentmodel.Usage{
			PromptTokens:     int(rsp.Usage.PromptTokens),
			CompletionTokens: int(rsp.Usage.CompletionTokens),
			TotalTokens:      int(rsp.Usage.TotalTokens),
		},
	}
	for _, c := range rsp.Choices {
		finish := string(c.FinishReason)
		choice := agentmodel.Choice{
			Index: int(c.Index),
			Message: agentmodel.Message{
				Role:    agentmodel.RoleAssistant,
				Content: c.Message.Content,
			},
			FinishReason: &finish,
		}
		for _, tc := range c.Message.ToolCalls {
			choice.Message.ToolCalls = append(choice.Message.ToolCalls, agentmodel.ToolCall{
				ID:   tc.ID,
				Type: "function",
				Func: agentmodel.ToolCallFunction{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		out.Choices = append(out.Choices, choice)
	}
	return out
}

func convertChunk(chunk *openai.ChatCompletionChunk) *agentmodel.Response {
	out := &agentmodel.Response{
		ID:        chunk.ID,
		Object:    agentmodel.ObjectTypeChatCompletionChunk,
		Created:   chunk.Created,
		Model:     chunk.Model,
		Timestamp: time.Now(),
	}
	for _, c := range chunk.Choices {
		choice := agentmodel.Choice{
			Index: int(c.Index),
			Delta: agentmodel.Message{
				Role:    agentmodel.RoleAssistant,
				Content: c.Delta.Content,
			},
		}
		if c.FinishReason != "" {
			finish := c.FinishReason
			choice.FinishReason = &finish
		}
		for _, tc := range c.Delta.ToolCalls {
			choice.Delta.ToolCalls = append(choice.Delta.ToolCalls, agentmodel.ToolCall{
				ID:   tc.ID,
				Type: "function",
				Func: agentmodel.ToolCallFunction{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		out.Choices = append(out.Choices, choice)
	}
	return out
}

func errorResponse(err error) *agentmodel.Response {
	return &agentmodel.Response{
		Object:    agentmodel.ObjectTypeError,
		Timestamp: time.Now(),
		Done:      true,
		Error: &agentmodel.ResponseError{
			Message: err.Error(),
			Type:    agentmodel.ErrorTypeAPIError,
		},
	}
}
