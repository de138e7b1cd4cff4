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

// defaultComparisonAspects is used when a compare_papers call omits aspects.
var defaultComparisonAspects = []string{"methodology", "dataset", "results", "contribution"}

// ComparePapers contrasts 2-5 papers across a set of aspects, retrieving each
// paper's passages most relevant to those aspects before asking the model to
// synthesize the comparison.
type ComparePapers struct {
	retriever *retriever.Retriever
	model     model.Model
}

// NewComparePapers builds a ComparePapers tool over r and m.
func NewComparePapers(r *retriever.Retriever, m model.Model) *ComparePapers {
	return &ComparePapers{retriever: r, model: m}
}

// Definition implements Tool.
func (t *ComparePapers) Definition() Definition {
	return Definition{
		Name: "compare_papers",
		Description: "Compare 2-5 papers and analyze their similarities and " +
			"differences. Suited to literature review and methodology comparison.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"paper_ids": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "2-5 paper ids to compare",
				},
				"aspects": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "string",
						"enum": []string{"methodology", "dataset", "results", "contribution"},
					},
					"description": "comparison dimensions; defaults to all four",
				},
			},
			"required": []string{"paper_ids"},
		},
	}
}

// Call implements Tool.
func (t *ComparePapers) Call(ctx context.Context, args map[string]any) (any, error) {
	paperIDs, err := stringSlice(args["paper_ids"])
	if err != nil {
		return nil, fmt.Errorf("compare_papers: paper_ids: %w", err)
	}
	if len(paperIDs) < 2 {
		return nil, fmt.Errorf("compare_papers: at least 2 papers are required")
	}
	if len(paperIDs) > 5 {
		return nil, fmt.Errorf("compare_papers: at most 5 papers are supported")
	}

	aspects := defaultComparisonAspects
	if raw, ok := args["aspects"]; ok {
		parsed, err := stringSlice(raw)
		if err != nil {
			return nil, fmt.Errorf("compare_papers: aspects: %w", err)
		}
		if len(parsed) > 0 {
			aspects = parsed
		}
	}
	aspectQuery := strings.Join(aspects, " ")

	var body strings.Builder
	for _, id := range paperIDs {
		chunks, err := t.retriever.Retrieve(ctx, aspectQuery, id)
		if err != nil {
			return nil, fmt.Errorf("compare_papers: retrieve %s: %w", id, err)
		}
		body.WriteString(fmt.Sprintf("## Paper %s\n", id))
		if len(chunks) == 0 {
			body.WriteString("(no indexed passages found)\n\n")
			continue
		}
		for _, c := range chunks {
			body.WriteString(fmt.Sprintf("[%s] %s\n", c.ChunkID, c.Content))
		}
		body.WriteString("\n")
	}

	req := &model.Request{
		Messages: []model.Message{
			model.NewSystemMessage(fmt.Sprintf("You are comparing %d academic "+
				"papers. For each of the following aspects, describe how the "+
				"papers agree and differ: %s. Cite passages by their bracketed "+
				"chunk_id. Organize the comparison by aspect, not by paper.",
				len(paperIDs), aspectQuery)),
			model.NewUserMessage(body.String()),
		},
	}
	out, err := t.model.GenerateContent(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("compare_papers: generate: %w", err)
	}

	var comparison strings.Builder
	for rsp := range out {
		if rsp.Error != nil {
			return nil, fmt.Errorf("compare_papers: %s", rsp.Error.Message)
		}
		if len(rsp.Choices) > 0 {
			if rsp.Choices[0].Delta.Content != "" {
				comparison.WriteString(rsp.Choices[0].Delta.Content)
			} else if rsp.Choices[0].Message.Content != "" {
				comparison.WriteString(rsp.Choices[0].Message.Content)
			}
		}
	}
	return comparison.String(), nil
}

// stringSlice converts a JSON-decoded []any (the shape args arrive in) into
// []string, rejecting any non-string element.
func stringSlice(v any) ([]string, error) {
	raw, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected an array")
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("expected an array of strings")
		}
		out = append(out, s)
	}
	return out, nil
}
