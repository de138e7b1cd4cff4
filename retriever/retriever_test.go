//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package retriever_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchagent/backend/dualindex"
	"github.com/researchagent/backend/dualindex/inmemory"
	"github.com/researchagent/backend/model"
	"github.com/researchagent/backend/paper"
	"github.com/researchagent/backend/retriever"
)

type fakeEmbedder struct{}

func (fakeEmbedder) GetEmbedding(_ context.Context, text string) ([]float64, error) {
	if text == "gradient descent" {
		return []float64{1, 0, 0, 0}, nil
	}
	return []float64{0, 0, 0, 1}, nil
}

func (f fakeEmbedder) GetEmbeddings(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		v, err := f.GetEmbedding(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (fakeEmbedder) GetDimensions() int { return 4 }

func TestRetriever_FusesDenseAndSparse(t *testing.T) {
	ctx := context.Background()
	dense := inmemory.NewDenseStore()
	sparse := inmemory.NewSparseStore()
	idx := dualindex.New(dense, sparse)
	require.NoError(t, idx.CreateCollection(ctx, 4, true))

	chunks := []paper.Chunk{
		paper.NewChunk("p1", 0, "gradient descent optimizes parameters", paper.SectionMethods, "Methods", "Methods", true),
		paper.NewChunk("p1", 1, "unrelated content about something else", paper.SectionResults, "Results", "Results", true),
	}
	embeddings := [][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}}
	require.NoError(t, idx.InsertChunks(ctx, "p1", chunks, embeddings))

	r := retriever.New(idx, fakeEmbedder{}, retriever.WithTopK(2))
	got, err := r.Retrieve(ctx, "gradient descent", "")
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "p1#0", got[0].ChunkID)
}

// fakeTranslatorModel always answers with the same fixed translation,
// regardless of the input query.
type fakeTranslatorModel struct{ answer string }

func (m *fakeTranslatorModel) GenerateContent(_ context.Context, _ *model.Request) (<-chan *model.Response, error) {
	ch := make(chan *model.Response, 1)
	ch <- &model.Response{Choices: []model.Choice{{Message: model.NewAssistantMessage(m.answer)}}, Done: true}
	close(ch)
	return ch, nil
}

func (m *fakeTranslatorModel) Info() model.Info { return model.Info{Name: "translator"} }

func buildGradientDescentIndex(t *testing.T) *dualindex.Index {
	t.Helper()
	ctx := context.Background()
	dense := inmemory.NewDenseStore()
	sparse := inmemory.NewSparseStore()
	idx := dualindex.New(dense, sparse)
	require.NoError(t, idx.CreateCollection(ctx, 4, true))

	chunks := []paper.Chunk{
		paper.NewChunk("p1", 0, "gradient descent optimizes parameters", paper.SectionMethods, "Methods", "Methods", true),
		paper.NewChunk("p1", 1, "unrelated content about something else", paper.SectionResults, "Results", "Results", true),
	}
	embeddings := [][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}}
	require.NoError(t, idx.InsertChunks(ctx, "p1", chunks, embeddings))
	return idx
}

func TestRetriever_SearchTranslatesChineseQuery(t *testing.T) {
	idx := buildGradientDescentIndex(t)
	translator := &fakeTranslatorModel{answer: "gradient descent"}
	r := retriever.New(idx, fakeEmbedder{}, retriever.WithTopK(2), retriever.WithTranslator(translator))

	res, err := r.Search(context.Background(), "什么是梯度下降", 2, "", false, true, 0)
	require.NoError(t, err)
	assert.True(t, res.QueryTranslated)
	assert.Equal(t, "gradient descent", res.TranslatedQuery)
	require.NotEmpty(t, res.FinalResults)
	assert.Equal(t, "p1#0", res.FinalResults[0].ChunkID)
}

func TestRetriever_SearchSkipsTranslationForEnglishQuery(t *testing.T) {
	idx := buildGradientDescentIndex(t)
	translator := &fakeTranslatorModel{answer: "should never be used"}
	r := retriever.New(idx, fakeEmbedder{}, retriever.WithTopK(2), retriever.WithTranslator(translator))

	res, err := r.Search(context.Background(), "what is gradient descent", 2, "", false, true, 0)
	require.NoError(t, err)
	assert.False(t, res.QueryTranslated)
	assert.Empty(t, res.TranslatedQuery)
}

func TestRetriever_SearchReportsStats(t *testing.T) {
	idx := buildGradientDescentIndex(t)
	r := retriever.New(idx, fakeEmbedder{})

	res, err := r.Search(context.Background(), "gradient descent", 1, "", false, false, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Stats.DenseCount)
	assert.Equal(t, 2, res.Stats.FusedCount)
	assert.Equal(t, 1, res.Stats.FinalCount)
}

// reverseReranker reverses the fused order, so tests can detect whether it
// ran without depending on an LLM.
type reverseReranker struct{ called bool }

func (rr *reverseReranker) Rerank(_ context.Context, _ string, chunks []paper.Chunk) ([]paper.Chunk, error) {
	rr.called = true
	reversed := make([]paper.Chunk, len(chunks))
	for i, c := range chunks {
		reversed[len(chunks)-1-i] = c
	}
	return reversed, nil
}

func TestRetriever_SearchOnlyReranksWhenRequested(t *testing.T) {
	idx := buildGradientDescentIndex(t)
	rr := &reverseReranker{}
	r := retriever.New(idx, fakeEmbedder{}, retriever.WithReranker(rr))

	_, err := r.Search(context.Background(), "gradient descent", 2, "", false, false, 0)
	require.NoError(t, err)
	assert.False(t, rr.called)

	_, err = r.Search(context.Background(), "gradient descent", 2, "", true, false, 0)
	require.NoError(t, err)
	assert.True(t, rr.called)
}

func TestTopKReranker_TruncatesWithoutReordering(t *testing.T) {
	chunks := []paper.Chunk{
		paper.NewChunk("p1", 0, "a", paper.SectionOther, "", "", true),
		paper.NewChunk("p1", 1, "b", paper.SectionOther, "", "", true),
		paper.NewChunk("p1", 2, "c", paper.SectionOther, "", "", true),
	}
	rr := retriever.NewTopKReranker(2)
	got, err := rr.Rerank(context.Background(), "q", chunks)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "p1#0", got[0].ChunkID)
	assert.Equal(t, "p1#1", got[1].ChunkID)
}
