//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package tools_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchagent/backend/model"
	"github.com/researchagent/backend/tools"
)

type fakeModel struct {
	answer string
}

func (m fakeModel) GenerateContent(ctx context.Context, req *model.Request) (<-chan *model.Response, error) {
	ch := make(chan *model.Response, 1)
	ch <- &model.Response{
		Choices: []model.Choice{{Message: model.NewAssistantMessage(m.answer)}},
		Done:    true,
	}
	close(ch)
	return ch, nil
}

func (fakeModel) Info() model.Info { return model.Info{Name: "fake"} }

func TestPaperQA_AnswersFromRetrievedPassages(t *testing.T) {
	r := newTestRetriever(t)
	tool := tools.NewPaperQA(r, fakeModel{answer: "it optimizes parameters [p1#0]"})

	got, err := tool.Call(context.Background(), map[string]any{
		"paper_id": "p1",
		"question": "what does gradient descent do?",
	})
	require.NoError(t, err)
	assert.Equal(t, "it optimizes parameters [p1#0]", got)
}

func TestPaperQA_RejectsMissingArgs(t *testing.T) {
	tool := tools.NewPaperQA(newTestRetriever(t), fakeModel{})
	_, err := tool.Call(context.Background(), map[string]any{"paper_id": "p1"})
	assert.Error(t, err)
}
