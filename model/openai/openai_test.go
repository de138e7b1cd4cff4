//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package openai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agentmodel "github.com/researchagent/backend/model"
)

func TestNew_AppliesOptions(t *testing.T) {
	m := New("gpt-4o-mini",
		WithAPIKey("test-key"),
		WithBaseURL("https://api.custom.com"),
		WithOrganization("org-1"),
		WithMaxRetries(5))

	assert.Equal(t, "gpt-4o-mini", m.name)
	assert.Equal(t, "test-key", m.apiKey)
	assert.Equal(t, "https://api.custom.com", m.baseURL)
	assert.Equal(t, "org-1", m.organization)
	assert.Equal(t, 5, m.maxRetries)
}

func TestNew_NegativeMaxRetriesClampsToZero(t *testing.T) {
	m := New("gpt-4o-mini", WithMaxRetries(-3))
	assert.Equal(t, 0, m.maxRetries)
}

func TestModel_Info(t *testing.T) {
	m := New("gpt-4o-mini")
	assert.Equal(t, agentmodel.Info{Name: "gpt-4o-mini"}, m.Info())
}

func TestModel_GenerateContent_RejectsNilRequest(t *testing.T) {
	m := New("gpt-4o-mini", WithAPIKey("test-key"))
	_, err := m.GenerateContent(context.Background(), nil)
	assert.Error(t, err)
}

func TestConvertMessages_RoundTripsAllRoles(t *testing.T) {
	msgs := []agentmodel.Message{
		agentmodel.NewSystemMessage("system content"),
		agentmodel.NewUserMessage("user content"),
		{
			Role:    agentmodel.RoleAssistant,
			Content: "assistant content",
			ToolCalls: []agentmodel.ToolCall{{
				ID:   "call-1",
				Type: "function",
				Func: agentmodel.ToolCallFunction{Name: "hello", Arguments: `{"a":1}`},
			}},
		},
		agentmodel.NewToolMessage("call-1", "hello", "tool response"),
	}

	converted := convertMessages(msgs)
	require.Len(t, converted, len(msgs))

	assert.NotNil(t, converted[0].OfSystem)
	assert.NotNil(t, converted[1].OfUser)
	require.NotNil(t, converted[2].OfAssistant)
	require.Len(t, converted[2].OfAssistant.ToolCalls, 1)
	assert.Equal(t, "hello", converted[2].OfAssistant.ToolCalls[0].OfFunction.Function.Name)
	assert.NotNil(t, converted[3].OfTool)
}

func TestConvertMessages_UnknownRoleFallsBackToUser(t *testing.T) {
	converted := convertMessages([]agentmodel.Message{{Role: "unknown", Content: "fallback content"}})
	require.Len(t, converted, 1)
	assert.NotNil(t, converted[0].OfUser)
}

func TestConvertTools_BuildsFunctionDefinitions(t *testing.T) {
	defs := []agentmodel.ToolDefinition{{
		Name:        "search",
		Description: "search papers",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{"query": map[string]any{"type": "string"}},
		},
	}}

	out, err := convertTools(defs)
	require.NoError(t, err)
	require.Len(t, out, 1)
}

func TestConvertTools_EmptyReturnsNil(t *testing.T) {
	out, err := convertTools(nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestErrorResponse_CarriesMessage(t *testing.T) {
	rsp := errorResponse(assertError{"boom"})
	require.NotNil(t, rsp.Error)
	assert.Equal(t, "boom", rsp.Error.Message)
	assert.True(t, rsp.Done)
}

type assertError struct{ msg string }

func (e assertError) Error() string { return e.msg }
