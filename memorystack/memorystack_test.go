//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package memorystack

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchagent/backend/dualindex"
	"github.com/researchagent/backend/dualindex/inmemory"
)

func TestStack_WindowOverflowWithoutSummarizerDropsSilently(t *testing.T) {
	s := New(nil, WithWindowSize(2))
	ctx := context.Background()

	require.NoError(t, s.AddTurn(ctx, Turn{UserMessage: "q1", AssistantMessage: "a1"}))
	require.NoError(t, s.AddTurn(ctx, Turn{UserMessage: "q2", AssistantMessage: "a2"}))
	require.NoError(t, s.AddTurn(ctx, Turn{UserMessage: "q3", AssistantMessage: "a3"}))

	assert.Len(t, s.Window(), 2)
	assert.Equal(t, "q2", s.Window()[0].UserMessage)
	assert.Equal(t, "q3", s.Window()[1].UserMessage)
	assert.Empty(t, s.Summary())
}

type fakeEmbedder struct{ dim int }

func (f fakeEmbedder) GetEmbedding(_ context.Context, text string) ([]float64, error) {
	v := make([]float64, f.dim)
	for i, r := range text {
		v[i%f.dim] += float64(r)
	}
	return v, nil
}

func (f fakeEmbedder) GetEmbeddings(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i], _ = f.GetEmbedding(ctx, t)
	}
	return out, nil
}

func (f fakeEmbedder) GetDimensions() int { return f.dim }

func TestSemanticMemory_RememberAndRecall(t *testing.T) {
	ctx := context.Background()
	idx := dualindex.New(inmemory.NewDenseStore(), inmemory.NewSparseStore())
	require.NoError(t, idx.CreateCollection(ctx, 4, true))

	mem := NewSemanticMemory(idx, fakeEmbedder{dim: 4})
	require.NoError(t, mem.Remember(ctx, "user-1", "prefers concise answers"))
	require.NoError(t, mem.Remember(ctx, "user-2", "works on computer vision"))

	facts, err := mem.Recall(ctx, "user-1", "concise answers", 5)
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "prefers concise answers", facts[0].Content)

	require.NoError(t, mem.Forget(ctx, "user-1"))
	facts, err = mem.Recall(ctx, "user-1", "concise answers", 5)
	require.NoError(t, err)
	assert.Empty(t, facts)
}
