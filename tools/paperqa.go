//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/researchagent/backend/model"
	"github.com/researchagent/backend/retriever"
)

// PaperQA answers a question about one paper by retrieving relevant chunks
// and asking the model to synthesize a grounded answer with citations.
type PaperQA struct {
	retriever *retriever.Retriever
	model     model.Model
}

// NewPaperQA builds a PaperQA tool over r and model.
func NewPaperQA(r *retriever.Retriever, m model.Model) *PaperQA {
	return &PaperQA{retriever: r, model: m}
}

// Definition implements Tool.
func (t *PaperQA) Definition() Definition {
	return Definition{
		Name:        "paper_qa",
		Description: "Answer a question about a specific paper, citing the passages used.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"paper_id": map[string]any{"type": "string"},
				"question": map[string]any{"type": "string"},
			},
			"required": []string{"paper_id", "question"},
		},
	}
}

// Call implements Tool.
func (t *PaperQA) Call(ctx context.Context, args map[string]any) (any, error) {
	paperID, _ := args["paper_id"].(string)
	question, _ := args["question"].(string)
	if paperID == "" || question == "" {
		return nil, fmt.Errorf("paper_qa: missing paper_id or question argument")
	}

	chunks, err := t.retriever.Retrieve(ctx, question, paperID)
	if err != nil {
		return nil, fmt.Errorf("paper_qa: retrieve: %w", err)
	}
	if len(chunks) == 0 {
		return "No relevant passages were found in this paper.", nil
	}

	var passages strings.Builder
	for _, c := range chunks {
		passages.WriteString(fmt.Sprintf("[%s] %s\n\n", c.ChunkID, c.Content))
	}

	req := &model.Request{
		Messages: []model.Message{
			model.NewSystemMessage("Answer the question using only the provided " +
				"passages. Cite passages by their bracketed chunk_id. If the " +
				"passages do not contain the answer, say so."),
			model.NewUserMessage(fmt.Sprintf("Passages:\n%s\nQuestion: %s", passages.String(), question)),
		},
	}
	out, err := t.model.GenerateContent(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("paper_qa: generate: %w", err)
	}

	var answer strings.Builder
	for rsp := range out {
		if rsp.Error != nil {
			return nil, fmt.Errorf("paper_qa: %s", rsp.Error.Message)
		}
		if len(rsp.Choices) > 0 {
			if rsp.Choices[0].Delta.Content != "" {
				answer.WriteString(rsp.Choices[0].Delta.Content)
			} else if rsp.Choices[0].Message.Content != "" {
				answer.WriteString(rsp.Choices[0].Message.Content)
			}
		}
	}
	return answer.String(), nil
}
