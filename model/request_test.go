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

func TestRole_String(t *testing.T) {
	assert.Equal(t, "system", RoleSystem.String())
	assert.Equal(t, "user", RoleUser.String())
	assert.Equal(t, "assistant", RoleAssistant.String())
	assert.Equal(t, "tool", RoleTool.String())
	assert.Equal(t, "custom", Role("custom").String())
}

func TestRole_IsValid(t *testing.T) {
	assert.True(t, RoleSystem.IsValid())
	assert.True(t, RoleUser.IsValid())
	assert.True(t, RoleAssistant.IsValid())
	assert.True(t, RoleTool.IsValid())
	assert.False(t, Role("").IsValid())
	assert.False(t, Role("custom").IsValid())
}

func TestNewSystemMessage(t *testing.T) {
	msg := NewSystemMessage("You are a helpful assistant.")
	assert.Equal(t, RoleSystem, msg.Role)
	assert.Equal(t, "You are a helpful assistant.", msg.Content)
}

func TestNewUserMessage(t *testing.T) {
	msg := NewUserMessage("Hello, how are you?")
	assert.Equal(t, RoleUser, msg.Role)
	assert.Equal(t, "Hello, how are you?", msg.Content)
}

func TestNewAssistantMessage(t *testing.T) {
	msg := NewAssistantMessage("I'm doing well, thank you!")
	assert.Equal(t, RoleAssistant, msg.Role)
	assert.Equal(t, "I'm doing well, thank you!", msg.Content)
}

func TestNewToolMessage(t *testing.T) {
	msg := NewToolMessage("call-1", "search", "result text")
	assert.Equal(t, RoleTool, msg.Role)
	assert.Equal(t, "call-1", msg.ToolID)
	assert.Equal(t, "search", msg.ToolName)
	assert.Equal(t, "result text", msg.Content)
}

func TestMessage_Clone(t *testing.T) {
	orig := Message{
		Role:      RoleAssistant,
		Content:   "hi",
		ToolCalls: []ToolCall{{ID: "call-1", Func: ToolCallFunction{Name: "search"}}},
	}
	clone := orig.Clone()
	clone.ToolCalls[0].ID = "mutated"
	assert.Equal(t, "call-1", orig.ToolCalls[0].ID)
}

func TestRequest_Clone(t *testing.T) {
	assert.Nil(t, (*Request).Clone(nil))

	temp := 0.7
	orig := &Request{
		Model:       "gpt-4o-mini",
		Messages:    []Message{NewUserMessage("hi")},
		Tools:       []ToolDefinition{{Name: "search"}},
		Temperature: &temp,
	}
	clone := orig.Clone()
	clone.Messages[0].Content = "mutated"
	clone.Tools[0].Name = "mutated"
	assert.Equal(t, "hi", orig.Messages[0].Content)
	assert.Equal(t, "search", orig.Tools[0].Name)
	assert.Equal(t, 0.7, *clone.Temperature)
}

func TestToolDefinition_CarriesJSONSchema(t *testing.T) {
	def := ToolDefinition{
		Name:        "literature_search",
		Description: "search indexed papers",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{"query": map[string]any{"type": "string"}},
		},
	}
	assert.Equal(t, "literature_search", def.Name)
	assert.NotNil(t, def.Parameters["properties"])
}
