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
	"github.com/researchagent/backend/paper"
)

// Analysis produces a structured critique (strengths, weaknesses,
// methodology notes) of a paper from its section tree.
type Analysis struct {
	model model.Model
}

// NewAnalysis builds an Analysis tool backed by m.
func NewAnalysis(m model.Model) *Analysis {
	return &Analysis{model: m}
}

// Definition implements Tool.
func (t *Analysis) Definition() Definition {
	return Definition{
		Name:        "analyze_paper",
		Description: "Produce a structured critique of a paper: strengths, weaknesses, and methodology notes.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"paper_id": map[string]any{"type": "string"},
			},
			"required": []string{"paper_id"},
		},
	}
}

// AnalyzeSections runs the critique over an already-retrieved set of
// section-representative chunks (the caller is responsible for fetching
// the full text via the dual index before calling this).
func (t *Analysis) AnalyzeSections(ctx context.Context, chunks []paper.Chunk) (string, error) {
	var body strings.Builder
	for _, c := range chunks {
		body.WriteString(fmt.Sprintf("## %s\n%s\n\n", c.HierarchyPath, c.Content))
	}

	req := &model.Request{
		Messages: []model.Message{
			model.NewSystemMessage("You are a peer reviewer. Given a paper's " +
				"sections, produce a structured critique with three headed " +
				"parts: Strengths, Weaknesses, Methodology Notes."),
			model.NewUserMessage(body.String()),
		},
	}
	out, err := t.model.GenerateContent(ctx, req)
	if err != nil {
		return "", fmt.Errorf("analyze_paper: %w", err)
	}

	var result strings.Builder
	for rsp := range out {
		if rsp.Error != nil {
			return "", fmt.Errorf("analyze_paper: %s", rsp.Error.Message)
		}
		if len(rsp.Choices) > 0 {
			if rsp.Choices[0].Delta.Content != "" {
				result.WriteString(rsp.Choices[0].Delta.Content)
			} else if rsp.Choices[0].Message.Content != "" {
				result.WriteString(rsp.Choices[0].Message.Content)
			}
		}
	}
	return result.String(), nil
}

// Call implements Tool. Callers normally invoke AnalyzeSections directly
// with chunks already fetched; Call exists to satisfy function-call
// dispatch and returns an error since it has no index to fetch from.
func (t *Analysis) Call(ctx context.Context, args map[string]any) (any, error) {
	return nil, fmt.Errorf("analyze_paper: must be invoked via AnalyzeSections with pre-fetched sections")
}
