//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package agentloop runs the reason/execute-tools/respond state machine
// that answers a user's question over the indexed papers, streaming
// progress as a typed union of events rather than a generic envelope.
package agentloop

import "github.com/researchagent/backend/paper"

// StreamEvent is the sealed union of everything Run can emit. Each variant
// is its own named type so a consumer switches on Go's type system instead
// of a string discriminant.
type StreamEvent interface {
	isStreamEvent()
}

// RunStarted opens a run.
type RunStarted struct {
	InvocationID string
}

// ReasoningStep carries one iteration's plan before any tool runs.
type ReasoningStep struct {
	Iteration int
	Thought   string
}

// ToolCallStarted announces a tool is about to run.
type ToolCallStarted struct {
	ToolName string
	Args     map[string]any
}

// ToolCallResult carries a completed tool's output.
type ToolCallResult struct {
	ToolName   string
	Result     any
	DurationMS int64
}

// ToolCallDegraded reports a tool call short-circuited by an open circuit
// breaker, with the alternative the caller suggested instead.
type ToolCallDegraded struct {
	ToolName    string
	Alternative string
}

// RetrievalResult carries the chunks a search step surfaced.
type RetrievalResult struct {
	Query  string
	Chunks []paper.Chunk
}

// ResponseToken is one streamed token of the final answer.
type ResponseToken struct {
	Token string
}

// Citation attributes part of the answer to a source chunk.
type Citation struct {
	ChunkID string
	PaperID string
}

// RunError reports a fatal error that ended the run.
type RunError struct {
	Message string
}

// MaxIterationsReached reports the reason loop hit its iteration bound
// without reaching a final answer.
type MaxIterationsReached struct {
	Iterations int
}

// RunCompleted closes a run with its final answer text.
type RunCompleted struct {
	InvocationID string
	FinalAnswer  string
}

func (RunStarted) isStreamEvent()           {}
func (ReasoningStep) isStreamEvent()        {}
func (ToolCallStarted) isStreamEvent()      {}
func (ToolCallResult) isStreamEvent()       {}
func (ToolCallDegraded) isStreamEvent()     {}
func (RetrievalResult) isStreamEvent()      {}
func (ResponseToken) isStreamEvent()        {}
func (Citation) isStreamEvent()             {}
func (RunError) isStreamEvent()             {}
func (MaxIterationsReached) isStreamEvent() {}
func (RunCompleted) isStreamEvent()         {}
