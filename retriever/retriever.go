//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package retriever implements the hybrid retrieval pipeline: language
// detection, concurrent dense+sparse search, in-process RRF fusion, and an
// optional reranking pass.
package retriever

import (
	"context"
	"fmt"
	"strings"

	"github.com/researchagent/backend/dualindex"
	"github.com/researchagent/backend/embedder"
	"github.com/researchagent/backend/log"
	"github.com/researchagent/backend/model"
	"github.com/researchagent/backend/paper"
)

const (
	// DefaultDenseK and DefaultSparseK bound how many candidates each side
	// of the index contributes before fusion.
	DefaultDenseK  = 20
	DefaultSparseK = 20
	// DefaultTopK is the number of chunks returned after fusion/reranking.
	DefaultTopK = 5
)

// translationPrompt instructs the light model used for cross-lingual query
// translation. Only the search query is translated; the original text is
// kept for reranking, which judges relevance against what the user actually
// typed.
const translationPrompt = "You are a professional translator for academic " +
	"search queries. Translate the following query to English. Keep " +
	"academic and technical terms accurate and natural. Only output the " +
	"translation, nothing else."

// Reranker reorders (and may truncate) a fused candidate list.
type Reranker interface {
	Rerank(ctx context.Context, query string, chunks []paper.Chunk) ([]paper.Chunk, error)
}

// Retriever runs the full hybrid pipeline against a dualindex.Index.
type Retriever struct {
	index      *dualindex.Index
	embedder   embedder.Embedder
	reranker   Reranker
	translator model.Model

	denseK, sparseK, topK int
	rrfK                  int
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithDenseK overrides DefaultDenseK.
func WithDenseK(k int) Option { return func(r *Retriever) { r.denseK = k } }

// WithSparseK overrides DefaultSparseK.
func WithSparseK(k int) Option { return func(r *Retriever) { r.sparseK = k } }

// WithTopK overrides DefaultTopK.
func WithTopK(k int) Option { return func(r *Retriever) { r.topK = k } }

// WithRRFK overrides DefaultRRFK.
func WithRRFK(k int) Option { return func(r *Retriever) { r.rrfK = k } }

// WithReranker installs a reranking pass; without one, fusion order stands.
func WithReranker(rr Reranker) Option { return func(r *Retriever) { r.reranker = rr } }

// WithTranslator installs the model used to translate non-English queries
// before dense/sparse search; without one, Search never translates even
// when the caller asks for it.
func WithTranslator(m model.Model) Option { return func(r *Retriever) { r.translator = m } }

// New builds a Retriever over index, embedding queries with emb.
func New(index *dualindex.Index, emb embedder.Embedder, opts ...Option) *Retriever {
	r := &Retriever{
		index:    index,
		embedder: emb,
		denseK:   DefaultDenseK,
		sparseK:  DefaultSparseK,
		topK:     DefaultTopK,
		rrfK:     DefaultRRFK,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// sideResult carries one side's outcome (dense or sparse) back across the
// concurrent fan-out in Search.
type sideResult struct {
	dense  []dualindex.DenseEntry
	sparse []dualindex.SparseEntry
	err    error
}

// Stats reports how many candidates survived each pipeline stage of one
// Search call.
type Stats struct {
	DenseCount  int `json:"dense_count"`
	SparseCount int `json:"sparse_count"`
	FusedCount  int `json:"fused_count"`
	FinalCount  int `json:"final_count"`
}

// Result is the outcome of one Search call.
type Result struct {
	FinalResults    []paper.Chunk `json:"final_results"`
	TranslatedQuery string        `json:"translated_query,omitempty"`
	QueryTranslated bool          `json:"query_translated"`
	Stats           Stats         `json:"stats"`
}

// Search runs the full hybrid pipeline: language detection, optional query
// translation, concurrent dense+sparse search over initialK candidates each,
// RRF fusion, an optional rerank pass, and truncation to topK.
//
// translateQuery only takes effect when the detected language is Chinese or
// mixed, and only if a translator model was installed via WithTranslator;
// on translation failure the original query is kept. The translated query
// (when produced) drives both dense and sparse search, but reranking always
// scores against the original query text, matching what a human asked.
// topK<=0 and initialK<=0 fall back to the Retriever's configured defaults.
func (r *Retriever) Search(ctx context.Context, query string, topK int, paperID string, useReranker, translateQuery bool, initialK int) (Result, error) {
	if topK <= 0 {
		topK = r.topK
	}
	denseK, sparseK := r.denseK, r.sparseK
	if initialK > 0 {
		denseK, sparseK = initialK, initialK
	}

	searchQuery := query
	var translatedQuery string
	var queryTranslated bool
	if translateQuery && r.translator != nil {
		switch detectLanguage(query) {
		case LanguageChinese, LanguageMixed:
			if t, ok := r.translate(ctx, query); ok {
				searchQuery = t
				translatedQuery = t
				queryTranslated = true
			}
		}
	}

	denseCh := make(chan sideResult, 1)
	sparseCh := make(chan sideResult, 1)

	go func() {
		qv, err := r.embedder.GetEmbedding(ctx, searchQuery)
		if err != nil {
			denseCh <- sideResult{err: fmt.Errorf("embed query: %w", err)}
			return
		}
		entries, err := r.index.DenseSearch(ctx, toFloat32(qv), denseK, paperID)
		denseCh <- sideResult{dense: entries, err: err}
	}()

	go func() {
		entries, err := r.index.SparseSearch(ctx, searchQuery, sparseK, paperID)
		sparseCh <- sideResult{sparse: entries, err: err}
	}()

	dr, sr := <-denseCh, <-sparseCh
	if dr.err != nil {
		return Result{}, fmt.Errorf("retriever: dense search: %w", dr.err)
	}
	if sr.err != nil {
		return Result{}, fmt.Errorf("retriever: sparse search: %w", sr.err)
	}

	byID := make(map[string]paper.Chunk, len(dr.dense)+len(sr.sparse))
	denseList := make(rankedList, 0, len(dr.dense))
	for _, e := range dr.dense {
		byID[e.Chunk.ChunkID] = e.Chunk
		denseList = append(denseList, e.Chunk.ChunkID)
	}
	sparseList := make(rankedList, 0, len(sr.sparse))
	for _, e := range sr.sparse {
		byID[e.Chunk.ChunkID] = e.Chunk
		sparseList = append(sparseList, e.Chunk.ChunkID)
	}

	fused := fuseRRF(r.rrfK, denseList, sparseList)
	chunks := make([]paper.Chunk, 0, len(fused))
	for _, id := range fused {
		chunks = append(chunks, byID[id])
	}
	fusedCount := len(chunks)

	if useReranker && r.reranker != nil {
		reranked, err := r.reranker.Rerank(ctx, query, chunks)
		if err != nil {
			return Result{}, fmt.Errorf("retriever: rerank: %w", err)
		}
		chunks = reranked
	}

	if topK > 0 && len(chunks) > topK {
		chunks = chunks[:topK]
	}

	return Result{
		FinalResults:    chunks,
		TranslatedQuery: translatedQuery,
		QueryTranslated: queryTranslated,
		Stats: Stats{
			DenseCount:  len(dr.dense),
			SparseCount: len(sr.sparse),
			FusedCount:  fusedCount,
			FinalCount:  len(chunks),
		},
	}, nil
}

// translate asks the translator model for an English rendering of query. On
// any failure it logs and reports ok=false, leaving the original query in
// effect, matching a provider hiccup degrading gracefully rather than
// failing the whole search.
func (r *Retriever) translate(ctx context.Context, query string) (translated string, ok bool) {
	req := &model.Request{
		Messages: []model.Message{
			model.NewSystemMessage(translationPrompt),
			model.NewUserMessage(query),
		},
	}
	out, err := r.translator.GenerateContent(ctx, req)
	if err != nil {
		log.WarnContext(ctx, fmt.Sprintf("retriever: translate query: %v", err))
		return "", false
	}

	var text strings.Builder
	for rsp := range out {
		if rsp.Error != nil {
			log.WarnContext(ctx, fmt.Sprintf("retriever: translate query: %s", rsp.Error.Message))
			return "", false
		}
		if len(rsp.Choices) == 0 {
			continue
		}
		if rsp.Choices[0].Delta.Content != "" {
			text.WriteString(rsp.Choices[0].Delta.Content)
		} else if rsp.Choices[0].Message.Content != "" {
			text.WriteString(rsp.Choices[0].Message.Content)
		}
	}
	result := strings.TrimSpace(text.String())
	if result == "" {
		return "", false
	}
	return result, true
}

// Retrieve is a convenience wrapper over Search for callers that only need
// the final chunks: no translation, reranking applied whenever a reranker is
// installed, and the Retriever's configured topK/initialK defaults.
func (r *Retriever) Retrieve(ctx context.Context, query string, paperID string) ([]paper.Chunk, error) {
	res, err := r.Search(ctx, query, r.topK, paperID, r.reranker != nil, false, 0)
	if err != nil {
		return nil, err
	}
	return res.FinalResults, nil
}

// DetectLanguage exposes the query-language classifier for callers (e.g. the
// agent loop) that branch on it before translation or prompt selection.
func DetectLanguage(text string) Language { return detectLanguage(text) }

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
