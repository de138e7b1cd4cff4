//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package agentloop

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/researchagent/backend/circuitbreaker"
	"github.com/researchagent/backend/log"
	"github.com/researchagent/backend/memorystack"
	"github.com/researchagent/backend/model"
	"github.com/researchagent/backend/paper"
	"github.com/researchagent/backend/tools"
)

// DefaultMaxIterations bounds how many reason/execute_tools round trips a
// single run may take before it is forced to respond with whatever answer
// it has.
const DefaultMaxIterations = 10

// eventBufferSize is how many events Run buffers before the consumer must
// drain; generous enough that a reasoning step's tool-call fan-out never
// blocks on a slow consumer mid-iteration.
const eventBufferSize = 64

// defaultSystemPrompt is extended once per run, before the first reasoning
// call, with any currently-open breaker notices and the rolling summary. The
// tool catalog is not written into the prompt text; it is sent as tool
// schemas with every reasoning call.
const defaultSystemPrompt = "You are a research assistant answering questions " +
	"over a library of indexed papers. Use the available tools to search for " +
	"and read relevant passages before answering. Cite sources by chunk_id " +
	"when you rely on retrieved passages."

// registeredTool pairs a callable tool with its own circuit breaker.
type registeredTool struct {
	tool    tools.Tool
	breaker *circuitbreaker.Tool
}

// Invocation is one user turn to run through the agent loop.
type Invocation struct {
	ID          string
	UserID      string
	ThreadID    string
	UserMessage string

	// Memory, if set, is used for this invocation instead of the Agent's own
	// memory (if any). A multi-tenant server keeps one Stack per thread and
	// passes it per invocation rather than building one Agent per thread.
	Memory *memorystack.Stack
}

// Agent runs the reason/execute_tools/respond state machine described by
// Run, streaming progress as a sequence of StreamEvent values.
type Agent struct {
	model         model.Model
	registered    map[string]*registeredTool
	memory        *memorystack.Stack
	maxIterations int
	systemPrompt  string
}

// Option configures an Agent.
type Option func(*Agent)

// WithMaxIterations overrides DefaultMaxIterations.
func WithMaxIterations(n int) Option {
	return func(a *Agent) { a.maxIterations = n }
}

// WithMemory attaches a conversation Stack; AddTurn is called with every
// completed turn so the rolling window and summary stay current.
func WithMemory(s *memorystack.Stack) Option {
	return func(a *Agent) { a.memory = s }
}

// WithSystemPrompt overrides defaultSystemPrompt.
func WithSystemPrompt(p string) Option {
	return func(a *Agent) { a.systemPrompt = p }
}

// New builds an Agent over m, registering each tool behind its own breaker.
// alternatives maps a tool name to the fallback hint surfaced in a degraded
// ToolCallDegraded event when that tool's breaker is open (a tool with no
// entry gets the empty string).
func New(m model.Model, toolSet []tools.Tool, breakerCfg circuitbreaker.Config, alternatives map[string]string, opts ...Option) *Agent {
	a := &Agent{
		model:         m,
		registered:    make(map[string]*registeredTool, len(toolSet)),
		maxIterations: DefaultMaxIterations,
		systemPrompt:  defaultSystemPrompt,
	}
	for _, t := range toolSet {
		name := t.Definition().Name
		a.registered[name] = &registeredTool{
			tool:    t,
			breaker: circuitbreaker.New(name, breakerCfg, alternatives[name]),
		}
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run executes inv through the state machine and streams every event to
// the returned channel, which is closed once a terminal event (RunError or
// RunCompleted) has been sent.
func (a *Agent) Run(ctx context.Context, inv *Invocation) (<-chan StreamEvent, error) {
	if inv == nil || strings.TrimSpace(inv.UserMessage) == "" {
		return nil, fmt.Errorf("agentloop: invocation requires a non-empty user message")
	}

	events := make(chan StreamEvent, eventBufferSize)
	go a.run(ctx, inv, events)
	return events, nil
}

func (a *Agent) run(ctx context.Context, inv *Invocation, events chan<- StreamEvent) {
	defer close(events)
	events <- RunStarted{InvocationID: inv.ID}

	memory := a.memory
	if inv.Memory != nil {
		memory = inv.Memory
	}

	messages := a.buildInitialMessages(inv, memory)
	var lastRetrieval []paper.Chunk

	for iteration := 0; ; iteration++ {
		if iteration >= a.maxIterations {
			events <- MaxIterationsReached{Iterations: iteration}
			a.respond(ctx, inv, events, memory, "I was unable to reach a final answer within my " +
				"iteration budget; here is my best partial understanding so far.", lastRetrieval, false)
			return
		}

		rsp, toolCalls, err := a.reason(ctx, messages, events)
		if err != nil {
			events <- RunError{Message: err.Error()}
			return
		}

		if len(toolCalls) == 0 {
			a.respond(ctx, inv, events, memory, rsp, lastRetrieval, true)
			return
		}

		events <- ReasoningStep{Iteration: iteration, Thought: summarizeToolPlan(toolCalls)}
		messages = append(messages, model.Message{Role: model.RoleAssistant, ToolCalls: toolCalls})

		for _, call := range toolCalls {
			resultMsg, chunks := a.executeTool(ctx, call, events)
			messages = append(messages, resultMsg)
			if chunks != nil {
				lastRetrieval = chunks
			}
		}
	}
}

// reason issues one LLM call against the live tool catalog and returns
// either the final answer text (toolCalls empty) or the requested calls. Any
// answer text is forwarded to events as a ResponseToken the moment it is
// read off the model's channel, rather than after the channel closes, so a
// consumer sees each delta as the model produces it.
func (a *Agent) reason(ctx context.Context, messages []model.Message, events chan<- StreamEvent) (string, []model.ToolCall, error) {
	req := &model.Request{
		Messages: messages,
		Tools:    a.toolCatalog(),
	}
	out, err := a.model.GenerateContent(ctx, req)
	if err != nil {
		return "", nil, fmt.Errorf("agentloop: reason: %w", err)
	}

	var content strings.Builder
	var toolCalls []model.ToolCall
	for rsp := range out {
		if rsp.Error != nil {
			return "", nil, fmt.Errorf("agentloop: reason: %s", rsp.Error.Message)
		}
		if len(rsp.Choices) == 0 {
			continue
		}
		choice := rsp.Choices[0]
		var delta string
		if choice.Delta.Content != "" {
			delta = choice.Delta.Content
		} else if choice.Message.Content != "" {
			delta = choice.Message.Content
		}
		if delta != "" {
			content.WriteString(delta)
			events <- ResponseToken{Token: delta}
		}
		if len(choice.Message.ToolCalls) > 0 {
			toolCalls = choice.Message.ToolCalls
		} else if len(choice.Delta.ToolCalls) > 0 {
			toolCalls = append(toolCalls, choice.Delta.ToolCalls...)
		}
	}
	return content.String(), toolCalls, nil
}

// executeTool runs one requested call through its registered breaker,
// emitting the ToolCallStarted/ToolCallResult/ToolCallDegraded events and
// returning the tool-result message to append to the conversation.
func (a *Agent) executeTool(ctx context.Context, call model.ToolCall, events chan<- StreamEvent) (model.Message, []paper.Chunk) {
	var args map[string]any
	if err := json.Unmarshal([]byte(call.Func.Arguments), &args); err != nil {
		args = map[string]any{}
	}
	events <- ToolCallStarted{ToolName: call.Func.Name, Args: args}

	reg, ok := a.registered[call.Func.Name]
	if !ok {
		content := fmt.Sprintf(`{"error":"unknown tool %q"}`, call.Func.Name)
		return model.NewToolMessage(call.ID, call.Func.Name, content), nil
	}

	result, err := reg.breaker.Call(ctx, func(ctx context.Context) (any, error) {
		return reg.tool.Call(ctx, args)
	})
	if err != nil {
		log.ErrorContext(ctx, fmt.Sprintf("agentloop: tool %q failed: %v", call.Func.Name, err))
		content, _ := json.Marshal(map[string]any{"success": false, "error": err.Error()})
		return model.NewToolMessage(call.ID, call.Func.Name, string(content)), nil
	}
	if result.IsDegraded {
		events <- ToolCallDegraded{ToolName: call.Func.Name, Alternative: result.Alternative}
		content, _ := json.Marshal(map[string]any{
			"status":      "degraded",
			"tool":        call.Func.Name,
			"alternatives": []string{result.Alternative},
			"hint":        "this tool's circuit breaker is open",
			"instruction": "try the alternative tools, or answer from your own knowledge; do not tell the user to retry later",
		})
		return model.NewToolMessage(call.ID, call.Func.Name, string(content)), nil
	}

	events <- ToolCallResult{ToolName: call.Func.Name, Result: result.Value, DurationMS: result.DurationMS}

	chunks, _ := result.Value.([]paper.Chunk)
	if chunks != nil {
		events <- RetrievalResult{Chunks: chunks}
	}

	payload, err := json.Marshal(result.Value)
	if err != nil {
		payload = []byte(fmt.Sprintf("%v", result.Value))
	}
	return model.NewToolMessage(call.ID, call.Func.Name, string(payload)), chunks
}

// respond emits the citation and answer events that close out a run, then
// records the turn in memory if one is attached (either the Agent's own, or
// the invocation's, per run's resolution in buildInitialMessages' caller).
// tokensStreamed reports whether answer was already forwarded to events as
// ResponseToken deltas by reason; respond only emits it itself when that
// never happened, such as the max-iterations fallback text.
func (a *Agent) respond(ctx context.Context, inv *Invocation, events chan<- StreamEvent, memory *memorystack.Stack, answer string, retrieved []paper.Chunk, tokensStreamed bool) {
	for _, c := range retrieved {
		events <- Citation{ChunkID: c.ChunkID, PaperID: c.PaperID}
	}
	if answer != "" && !tokensStreamed {
		events <- ResponseToken{Token: answer}
	}
	events <- RunCompleted{InvocationID: inv.ID, FinalAnswer: answer}

	if memory == nil {
		return
	}
	if err := memory.AddTurn(ctx, memorystack.Turn{UserMessage: inv.UserMessage, AssistantMessage: answer}); err != nil {
		log.ErrorContext(ctx, fmt.Sprintf("agentloop: memory.AddTurn: %v", err))
	}
}

// buildInitialMessages renders the system prompt (with any open-breaker
// notices and the rolling summary), the windowed history, and the latest
// user message. The tool catalog is not part of the prompt text.
func (a *Agent) buildInitialMessages(inv *Invocation, memory *memorystack.Stack) []model.Message {
	system := a.systemPrompt
	if notice := a.openBreakerNotice(); notice != "" {
		system += "\n\n" + notice
	}
	if memory != nil && memory.Summary() != "" {
		system += "\n\nConversation summary so far: " + memory.Summary()
	}

	messages := []model.Message{model.NewSystemMessage(system)}
	if memory != nil {
		for _, turn := range memory.Window() {
			messages = append(messages,
				model.NewUserMessage(turn.UserMessage),
				model.NewAssistantMessage(turn.AssistantMessage))
		}
	}
	messages = append(messages, model.NewUserMessage(inv.UserMessage))
	return messages
}

// openBreakerNotice lists tools whose breaker is currently open, so the
// reasoning step can route around them without attempting (and failing)
// the call itself.
func (a *Agent) openBreakerNotice() string {
	var open []string
	for name, reg := range a.registered {
		if reg.breaker.State() == "open" {
			open = append(open, name)
		}
	}
	if len(open) == 0 {
		return ""
	}
	return "Currently unavailable tools (do not call): " + strings.Join(open, ", ")
}

func (a *Agent) toolCatalog() []model.ToolDefinition {
	defs := make([]model.ToolDefinition, 0, len(a.registered))
	for _, reg := range a.registered {
		d := reg.tool.Definition()
		defs = append(defs, model.ToolDefinition{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Parameters,
		})
	}
	return defs
}

// Tools returns the catalog of every registered tool's definition, for
// enumeration endpoints.
func (a *Agent) Tools() []tools.Definition {
	defs := make([]tools.Definition, 0, len(a.registered))
	for _, reg := range a.registered {
		defs = append(defs, reg.tool.Definition())
	}
	return defs
}

// CallTool invokes a single registered tool directly (through its breaker),
// bypassing the reason/execute_tools loop entirely, for direct-invocation
// endpoints that don't need an LLM turn.
func (a *Agent) CallTool(ctx context.Context, name string, args map[string]any) (circuitbreaker.Result, error) {
	reg, ok := a.registered[name]
	if !ok {
		return circuitbreaker.Result{}, fmt.Errorf("agentloop: unknown tool %q", name)
	}
	return reg.breaker.Call(ctx, func(ctx context.Context) (any, error) {
		return reg.tool.Call(ctx, args)
	})
}

// BreakerState reports one tool's breaker state and counters.
type BreakerState struct {
	ToolName string
	State    string
	Counts   gobreaker.Counts
}

// Breakers reports every registered tool's current breaker state.
func (a *Agent) Breakers() []BreakerState {
	states := make([]BreakerState, 0, len(a.registered))
	for name, reg := range a.registered {
		states = append(states, BreakerState{ToolName: name, State: reg.breaker.State(), Counts: reg.breaker.Counts()})
	}
	return states
}

// ResetBreaker forces the named tool's breaker back to closed. Reports false
// if no tool is registered under that name.
func (a *Agent) ResetBreaker(name string) bool {
	reg, ok := a.registered[name]
	if !ok {
		return false
	}
	reg.breaker.Reset()
	return true
}

func summarizeToolPlan(calls []model.ToolCall) string {
	names := make([]string, len(calls))
	for i, c := range calls {
		names[i] = c.Func.Name
	}
	return "calling: " + strings.Join(names, ", ")
}
