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

	"github.com/researchagent/backend/tools"
)

func TestComparePapers_ComparesAcrossPapers(t *testing.T) {
	r := newTestRetriever(t)
	tool := tools.NewComparePapers(r, fakeModel{answer: "both papers use gradient descent [p1#0]"})

	got, err := tool.Call(context.Background(), map[string]any{
		"paper_ids": []any{"p1", "p1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "both papers use gradient descent [p1#0]", got)
}

func TestComparePapers_AcceptsExplicitAspects(t *testing.T) {
	r := newTestRetriever(t)
	tool := tools.NewComparePapers(r, fakeModel{answer: "comparison by dataset"})

	got, err := tool.Call(context.Background(), map[string]any{
		"paper_ids": []any{"p1", "p1"},
		"aspects":   []any{"dataset"},
	})
	require.NoError(t, err)
	assert.Equal(t, "comparison by dataset", got)
}

func TestComparePapers_RejectsTooFewPapers(t *testing.T) {
	tool := tools.NewComparePapers(newTestRetriever(t), fakeModel{})
	_, err := tool.Call(context.Background(), map[string]any{"paper_ids": []any{"p1"}})
	assert.Error(t, err)
}

func TestComparePapers_RejectsTooManyPapers(t *testing.T) {
	tool := tools.NewComparePapers(newTestRetriever(t), fakeModel{})
	_, err := tool.Call(context.Background(), map[string]any{
		"paper_ids": []any{"p1", "p2", "p3", "p4", "p5", "p6"},
	})
	assert.Error(t, err)
}

func TestComparePapers_RejectsNonStringPaperIDs(t *testing.T) {
	tool := tools.NewComparePapers(newTestRetriever(t), fakeModel{})
	_, err := tool.Call(context.Background(), map[string]any{
		"paper_ids": []any{"p1", 2},
	})
	assert.Error(t, err)
}
