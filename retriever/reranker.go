//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package retriever

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/researchagent/backend/log"
	agentmodel "github.com/researchagent/backend/model"
	"github.com/researchagent/backend/paper"
)

// TopKReranker truncates to k without reordering; k<=0 means return
// everything unchanged.
type TopKReranker struct {
	k int
}

// NewTopKReranker returns a TopKReranker. k<=0 means "return all".
func NewTopKReranker(k int) *TopKReranker {
	if k <= 0 {
		k = -1
	}
	return &TopKReranker{k: k}
}

// Rerank implements Reranker.
func (t *TopKReranker) Rerank(_ context.Context, _ string, chunks []paper.Chunk) ([]paper.Chunk, error) {
	if t.k < 0 || len(chunks) <= t.k {
		return chunks, nil
	}
	return chunks[:t.k], nil
}

// CrossEncoderReranker scores each candidate chunk's relevance to the query
// via a single JSON-mode chat completion call, then sorts by score
// descending.
type CrossEncoderReranker struct {
	model agentmodel.Model
}

// NewCrossEncoderReranker builds a CrossEncoderReranker backed by model.
func NewCrossEncoderReranker(model agentmodel.Model) *CrossEncoderReranker {
	return &CrossEncoderReranker{model: model}
}

type scoreResult struct {
	Scores []float64 `json:"scores"`
}

// Rerank implements Reranker. On any LLM failure it falls back to returning
// chunks in their incoming (RRF-fused) order rather than failing the whole
// retrieval — reranking is an enhancement, not a correctness requirement.
func (c *CrossEncoderReranker) Rerank(ctx context.Context, query string, chunks []paper.Chunk) ([]paper.Chunk, error) {
	if len(chunks) == 0 {
		return chunks, nil
	}

	prompt := buildScoringPrompt(query, chunks)
	req := &agentmodel.Request{
		JSONMode: true,
		Messages: []agentmodel.Message{
			agentmodel.NewSystemMessage("You score passage relevance to a query. " +
				"Return a JSON object {\"scores\": [float, ...]} with one score per " +
				"passage, in input order, each between 0 and 1."),
			agentmodel.NewUserMessage(prompt),
		},
	}

	out, err := c.model.GenerateContent(ctx, req)
	if err != nil {
		log.WarnContext(ctx, fmt.Sprintf("retriever: cross-encoder rerank failed, keeping fused order: %v", err))
		return chunks, nil
	}

	var final *agentmodel.Response
	for rsp := range out {
		if rsp.Error == nil {
			final = rsp
		}
	}
	if final == nil || len(final.Choices) == 0 {
		return chunks, nil
	}

	var result scoreResult
	if err := json.Unmarshal([]byte(final.Choices[0].Message.Content), &result); err != nil {
		log.WarnContext(ctx, fmt.Sprintf("retriever: cross-encoder score parse failed, keeping fused order: %v", err))
		return chunks, nil
	}
	if len(result.Scores) != len(chunks) {
		return chunks, nil
	}

	ordered := make([]paper.Chunk, len(chunks))
	copy(ordered, chunks)
	sort.SliceStable(ordered, func(i, j int) bool {
		return result.Scores[indexOf(chunks, ordered[i])] > result.Scores[indexOf(chunks, ordered[j])]
	})
	return ordered, nil
}

func indexOf(chunks []paper.Chunk, target paper.Chunk) int {
	for i, c := range chunks {
		if c.ChunkID == target.ChunkID {
			return i
		}
	}
	return 0
}

func buildScoringPrompt(query string, chunks []paper.Chunk) string {
	prompt := fmt.Sprintf("Query: %s\n\nPassages:\n", query)
	for i, c := range chunks {
		prompt += fmt.Sprintf("[%d] %s\n", i, c.Content)
	}
	return prompt
}
