//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorTypeConstants(t *testing.T) {
	assert.Equal(t, "stream_error", ErrorTypeStreamError)
	assert.Equal(t, "api_error", ErrorTypeAPIError)
}

func TestObjectTypeConstants(t *testing.T) {
	assert.Equal(t, "chat.completion", ObjectTypeChatCompletion)
	assert.Equal(t, "chat.completion.chunk", ObjectTypeChatCompletionChunk)
	assert.Equal(t, "error", ObjectTypeError)
}

func TestResponse_IsValidContent(t *testing.T) {
	assert.False(t, (&Response{}).IsValidContent())
	assert.False(t, (*Response)(nil).IsValidContent())

	assert.True(t, (&Response{Choices: []Choice{{Message: NewAssistantMessage("hi")}}}).IsValidContent())
	assert.True(t, (&Response{Choices: []Choice{{Delta: Message{Content: "partial"}}}}).IsValidContent())
	assert.True(t, (&Response{Choices: []Choice{{Message: Message{ReasoningContent: "thinking"}}}}).IsValidContent())
	assert.True(t, (&Response{Choices: []Choice{{
		Message: Message{ToolCalls: []ToolCall{{ID: "1"}}},
	}}}).IsValidContent())

	empty := &Response{Choices: []Choice{{}}}
	assert.False(t, empty.IsValidContent())
}

func TestResponse_IsToolResultResponse(t *testing.T) {
	assert.False(t, (*Response)(nil).IsToolResultResponse())
	assert.False(t, (&Response{Choices: []Choice{{Message: NewAssistantMessage("hi")}}}).IsToolResultResponse())

	toolResult := &Response{Choices: []Choice{{Message: NewToolMessage("call-1", "search", "result")}}}
	assert.True(t, toolResult.IsToolResultResponse())
}

func TestResponse_GetToolCallIDs(t *testing.T) {
	assert.Nil(t, (*Response)(nil).GetToolCallIDs())

	rsp := &Response{Choices: []Choice{
		{Message: Message{ToolCalls: []ToolCall{{ID: "call-1"}, {ID: "call-2"}}}},
		{Delta: Message{ToolCalls: []ToolCall{{ID: "call-3"}}}},
	}}
	assert.Equal(t, []string{"call-1", "call-2", "call-3"}, rsp.GetToolCallIDs())
}

func TestResponse_Clone(t *testing.T) {
	assert.Nil(t, (*Response)(nil).Clone())

	orig := &Response{
		ID:     "rsp-1",
		Object: ObjectTypeChatCompletion,
		Choices: []Choice{{
			Message: Message{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "call-1"}}},
		}},
		Usage: &Usage{PromptTokens: 10, TotalTokens: 15},
		Error: &ResponseError{Message: "boom"},
	}

	clone := orig.Clone()
	assert.Equal(t, orig.ID, clone.ID)
	assert.Equal(t, orig.Usage.TotalTokens, clone.Usage.TotalTokens)
	assert.Equal(t, orig.Error.Message, clone.Error.Message)

	clone.Choices[0].Message.ToolCalls[0].ID = "mutated"
	clone.Usage.TotalTokens = 999
	clone.Error.Message = "mutated"
	assert.Equal(t, "call-1", orig.Choices[0].Message.ToolCalls[0].ID)
	assert.Equal(t, 15, orig.Usage.TotalTokens)
	assert.Equal(t, "boom", orig.Error.Message)
}

func TestChoice_Structure(t *testing.T) {
	reason := "stop"
	c := Choice{Index: 0, Message: NewAssistantMessage("answer"), FinishReason: &reason}
	assert.Equal(t, "answer", c.Message.Content)
	assert.Equal(t, "stop", *c.FinishReason)
}

func TestUsage_Structure(t *testing.T) {
	u := Usage{PromptTokens: 5, CompletionTokens: 7, TotalTokens: 12}
	assert.Equal(t, 12, u.PromptTokens+u.CompletionTokens)
}

func TestResponseError_Structure(t *testing.T) {
	param := "temperature"
	code := "invalid_value"
	e := ResponseError{Message: "bad request", Type: ErrorTypeAPIError, Param: &param, Code: &code}
	assert.Equal(t, "temperature", *e.Param)
	assert.Equal(t, "invalid_value", *e.Code)
}
