//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package memorystack holds conversation state across turns: a sliding
// window of recent messages, a rolling summary of what fell out of the
// window, and a semantic memory bag written back into the dual index under
// a per-user synthetic paper ID.
package memorystack

import (
	"context"
	"fmt"

	"github.com/researchagent/backend/dualindex"
	"github.com/researchagent/backend/embedder"
	"github.com/researchagent/backend/model"
	"github.com/researchagent/backend/paper"
)

// DefaultWindowSize is the number of most recent turns kept verbatim
// before they roll into the summary.
const DefaultWindowSize = 10

// Turn is one exchange in a conversation.
type Turn struct {
	UserMessage      string
	AssistantMessage string
}

// Stack holds the rolling state for a single conversation thread.
type Stack struct {
	windowSize int
	summarizer model.Model

	window  []Turn
	summary string
}

// Option configures a Stack.
type Option func(*Stack)

// WithWindowSize overrides DefaultWindowSize.
func WithWindowSize(n int) Option { return func(s *Stack) { s.windowSize = n } }

// New builds a Stack. summarizer generates the rolling summary when turns
// fall out of the sliding window; it may be nil, in which case turns are
// simply dropped without a summary update.
func New(summarizer model.Model, opts ...Option) *Stack {
	s := &Stack{windowSize: DefaultWindowSize, summarizer: summarizer}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddTurn appends a turn to the window. If the window overflows, the oldest
// turn is folded into the rolling summary.
func (s *Stack) AddTurn(ctx context.Context, turn Turn) error {
	s.window = append(s.window, turn)
	if len(s.window) <= s.windowSize {
		return nil
	}

	dropped := s.window[0]
	s.window = s.window[1:]

	if s.summarizer == nil {
		return nil
	}
	updated, err := s.summarize(ctx, dropped)
	if err != nil {
		return fmt.Errorf("memorystack: summarize: %w", err)
	}
	s.summary = updated
	return nil
}

func (s *Stack) summarize(ctx context.Context, dropped Turn) (string, error) {
	req := &model.Request{
		Messages: []model.Message{
			model.NewSystemMessage("Maintain a running summary of a conversation. " +
				"Given the existing summary and one new turn that is leaving the " +
				"active window, produce an updated summary in two sentences or fewer."),
			model.NewUserMessage(fmt.Sprintf(
				"Existing summary: %s\n\nTurn leaving window:\nUser: %s\nAssistant: %s",
				s.summary, dropped.UserMessage, dropped.AssistantMessage)),
		},
	}
	out, err := s.summarizer.GenerateContent(ctx, req)
	if err != nil {
		return s.summary, err
	}
	var final *model.Response
	for rsp := range out {
		if rsp.Error == nil {
			final = rsp
		}
	}
	if final == nil || len(final.Choices) == 0 {
		return s.summary, fmt.Errorf("empty summary completion")
	}
	return final.Choices[0].Message.Content, nil
}

// Window returns the turns currently held verbatim, oldest first.
func (s *Stack) Window() []Turn { return s.window }

// Summary returns the rolling summary of everything that has fallen out of
// the window.
func (s *Stack) Summary() string { return s.summary }

// SemanticMemory writes and retrieves durable per-user facts into the dual
// index under a synthetic paper ID (paper.MemoryPaperID), so the same
// hybrid retrieval pipeline used for papers also serves memory recall.
type SemanticMemory struct {
	index    *dualindex.Index
	embedder embedder.Embedder
}

// NewSemanticMemory builds a SemanticMemory over index, embedding facts
// with emb.
func NewSemanticMemory(index *dualindex.Index, emb embedder.Embedder) *SemanticMemory {
	return &SemanticMemory{index: index, embedder: emb}
}

// Remember stores a fact under userID's memory paper, appended after any
// existing facts (ordinal = current count).
func (m *SemanticMemory) Remember(ctx context.Context, userID, fact string) error {
	paperID := paper.MemoryPaperID(userID)
	existing, err := m.index.SparseSearch(ctx, "", 1<<30, paperID)
	if err != nil {
		return fmt.Errorf("memorystack: count existing memory: %w", err)
	}
	ordinal := len(existing)

	chunk := paper.NewChunk(paperID, ordinal, fact, paper.SectionOther, "memory", "memory", true)
	vec, err := m.embedder.GetEmbedding(ctx, fact)
	if err != nil {
		return fmt.Errorf("memorystack: embed fact: %w", err)
	}
	embedding := make([]float32, len(vec))
	for i, v := range vec {
		embedding[i] = float32(v)
	}
	return m.index.InsertChunks(ctx, paperID, []paper.Chunk{chunk}, [][]float32{embedding})
}

// Recall retrieves the k facts most relevant to query for userID.
func (m *SemanticMemory) Recall(ctx context.Context, userID, query string, k int) ([]paper.Chunk, error) {
	paperID := paper.MemoryPaperID(userID)
	vec, err := m.embedder.GetEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("memorystack: embed query: %w", err)
	}
	qv := make([]float32, len(vec))
	for i, v := range vec {
		qv[i] = float32(v)
	}
	entries, err := m.index.DenseSearch(ctx, qv, k, paperID)
	if err != nil {
		return nil, fmt.Errorf("memorystack: recall: %w", err)
	}
	chunks := make([]paper.Chunk, len(entries))
	for i, e := range entries {
		chunks[i] = e.Chunk
	}
	return chunks, nil
}

// Forget removes every fact stored for userID.
func (m *SemanticMemory) Forget(ctx context.Context, userID string) error {
	return m.index.DeleteByPaper(ctx, paper.MemoryPaperID(userID))
}
