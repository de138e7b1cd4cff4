//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package model

// ToolDefinition describes a callable tool in the shape a chat completion
// provider expects it (JSON-schema parameters, keyed by tool name).
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request is a provider-agnostic chat completion request.
type Request struct {
	Model       string           `json:"model"`
	Messages    []Message        `json:"messages"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
	Temperature *float64         `json:"temperature,omitempty"`
	MaxTokens   *int             `json:"max_tokens,omitempty"`
	Stream      bool             `json:"stream"`

	// JSONMode forces the provider to return a syntactically valid JSON
	// object as the message content, used by the structural parser.
	JSONMode bool `json:"json_mode,omitempty"`
}

// Clone returns a deep copy of req.
func (req *Request) Clone() *Request {
	if req == nil {
		return nil
	}
	clone := *req
	if req.Messages != nil {
		clone.Messages = make([]Message, len(req.Messages))
		for i, m := range req.Messages {
			clone.Messages[i] = m.Clone()
		}
	}
	if req.Tools != nil {
		clone.Tools = make([]ToolDefinition, len(req.Tools))
		copy(clone.Tools, req.Tools)
	}
	return &clone
}
