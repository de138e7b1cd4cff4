//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package agentloop_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchagent/backend/agentloop"
	"github.com/researchagent/backend/circuitbreaker"
	"github.com/researchagent/backend/model"
	"github.com/researchagent/backend/paper"
	"github.com/researchagent/backend/tools"
)

// scriptedModel returns one fixed response per call, in order; the last
// response repeats once the script is exhausted.
type scriptedModel struct {
	responses []*model.Response
	calls     int
}

func (m *scriptedModel) GenerateContent(ctx context.Context, req *model.Request) (<-chan *model.Response, error) {
	idx := m.calls
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	m.calls++
	ch := make(chan *model.Response, 1)
	ch <- m.responses[idx]
	close(ch)
	return ch, nil
}

func (m *scriptedModel) Info() model.Info { return model.Info{Name: "scripted"} }

// fakeSearchTool returns a fixed set of chunks regardless of arguments.
type fakeSearchTool struct {
	chunks []paper.Chunk
}

func (t fakeSearchTool) Definition() tools.Definition {
	return tools.Definition{Name: "literature_search", Description: "search"}
}

func (t fakeSearchTool) Call(ctx context.Context, args map[string]any) (any, error) {
	return t.chunks, nil
}

func toolCallResponse(toolName, args string) *model.Response {
	return &model.Response{
		Done: true,
		Choices: []model.Choice{{
			Message: model.Message{
				Role: model.RoleAssistant,
				ToolCalls: []model.ToolCall{{
					ID:   "call_1",
					Func: model.ToolCallFunction{Name: toolName, Arguments: args},
				}},
			},
		}},
	}
}

func answerResponse(text string) *model.Response {
	return &model.Response{
		Done:    true,
		Choices: []model.Choice{{Message: model.NewAssistantMessage(text)}},
	}
}

func TestAgent_ReasonsThenCallsToolThenResponds(t *testing.T) {
	chunks := []paper.Chunk{paper.NewChunk("p1", 0, "gradient descent", paper.SectionMethods, "Methods", "Methods", true)}
	argsJSON, _ := json.Marshal(map[string]any{"query": "gradient descent"})

	m := &scriptedModel{responses: []*model.Response{
		toolCallResponse("literature_search", string(argsJSON)),
		answerResponse("gradient descent optimizes parameters"),
	}}
	agent := agentloop.New(m, []tools.Tool{fakeSearchTool{chunks: chunks}}, circuitbreaker.DefaultConfig, nil)

	events, err := agent.Run(context.Background(), &agentloop.Invocation{ID: "inv1", UserMessage: "what is gradient descent?"})
	require.NoError(t, err)

	var seenToolResult, seenCitation, seenCompleted bool
	for ev := range events {
		switch e := ev.(type) {
		case agentloop.ToolCallResult:
			seenToolResult = true
			assert.Equal(t, "literature_search", e.ToolName)
		case agentloop.Citation:
			seenCitation = true
			assert.Equal(t, "p1#0", e.ChunkID)
		case agentloop.RunCompleted:
			seenCompleted = true
			assert.Equal(t, "gradient descent optimizes parameters", e.FinalAnswer)
		case agentloop.RunError:
			t.Fatalf("unexpected run error: %s", e.Message)
		}
	}
	assert.True(t, seenToolResult)
	assert.True(t, seenCitation)
	assert.True(t, seenCompleted)
}

func TestAgent_AnswersDirectlyWithoutToolCalls(t *testing.T) {
	m := &scriptedModel{responses: []*model.Response{answerResponse("hello there")}}
	agent := agentloop.New(m, nil, circuitbreaker.DefaultConfig, nil)

	events, err := agent.Run(context.Background(), &agentloop.Invocation{ID: "inv2", UserMessage: "hi"})
	require.NoError(t, err)

	var final string
	for ev := range events {
		if e, ok := ev.(agentloop.RunCompleted); ok {
			final = e.FinalAnswer
		}
	}
	assert.Equal(t, "hello there", final)
}

func TestAgent_StopsAtMaxIterations(t *testing.T) {
	argsJSON, _ := json.Marshal(map[string]any{"query": "x"})
	m := &scriptedModel{responses: []*model.Response{
		toolCallResponse("literature_search", string(argsJSON)),
	}}
	agent := agentloop.New(m, []tools.Tool{fakeSearchTool{}}, circuitbreaker.DefaultConfig, nil,
		agentloop.WithMaxIterations(2))

	events, err := agent.Run(context.Background(), &agentloop.Invocation{ID: "inv3", UserMessage: "loop forever"})
	require.NoError(t, err)

	var hitBound bool
	for ev := range events {
		if _, ok := ev.(agentloop.MaxIterationsReached); ok {
			hitBound = true
		}
	}
	assert.True(t, hitBound)
}

func TestAgent_RejectsEmptyInvocation(t *testing.T) {
	agent := agentloop.New(&scriptedModel{}, nil, circuitbreaker.DefaultConfig, nil)
	_, err := agent.Run(context.Background(), &agentloop.Invocation{ID: "inv4"})
	assert.Error(t, err)
}

// streamingModel emits one chunk per deltas entry, each carrying a
// Delta.Content fragment, before a final Done chunk with no content.
type streamingModel struct {
	deltas []string
}

func (m *streamingModel) GenerateContent(ctx context.Context, req *model.Request) (<-chan *model.Response, error) {
	ch := make(chan *model.Response, len(m.deltas)+1)
	for _, d := range m.deltas {
		ch <- &model.Response{Choices: []model.Choice{{Delta: model.Message{Content: d}}}}
	}
	ch <- &model.Response{Done: true}
	close(ch)
	return ch, nil
}

func (m *streamingModel) Info() model.Info { return model.Info{Name: "streaming"} }

func TestAgent_StreamsEachDeltaBeforeRunCompleted(t *testing.T) {
	m := &streamingModel{deltas: []string{"gradient ", "descent ", "optimizes"}}
	agent := agentloop.New(m, nil, circuitbreaker.DefaultConfig, nil)

	events, err := agent.Run(context.Background(), &agentloop.Invocation{ID: "inv6", UserMessage: "what is it?"})
	require.NoError(t, err)

	var tokens []string
	var sawCompletedBeforeLastToken bool
	for ev := range events {
		switch e := ev.(type) {
		case agentloop.ResponseToken:
			tokens = append(tokens, e.Token)
		case agentloop.RunCompleted:
			if len(tokens) < len(m.deltas) {
				sawCompletedBeforeLastToken = true
			}
			assert.Equal(t, "gradient descent optimizes", e.FinalAnswer)
		}
	}
	assert.Equal(t, m.deltas, tokens)
	assert.False(t, sawCompletedBeforeLastToken)
}

func TestAgent_RunCompletesWithinTimeout(t *testing.T) {
	m := &scriptedModel{responses: []*model.Response{answerResponse("ok")}}
	agent := agentloop.New(m, nil, circuitbreaker.DefaultConfig, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	events, err := agent.Run(ctx, &agentloop.Invocation{ID: "inv5", UserMessage: "ping"})
	require.NoError(t, err)
	for range events {
	}
}
