//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package chunking

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchagent/backend/paper"
)

func TestNewRecursive_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want error
	}{
		{"zero max", []Option{WithMaxChunkSize(0)}, ErrInvalidMaxChunkSize},
		{"negative overlap", []Option{WithOverlap(-1)}, ErrInvalidOverlap},
		{"overlap too large", []Option{WithMaxChunkSize(10), WithOverlap(10)}, ErrOverlapTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRecursive(tt.opts...)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRecursive_EmptyInput(t *testing.T) {
	r, err := NewRecursive()
	require.NoError(t, err)

	chunks, err := r.Chunk("p1", nil)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestRecursive_SmallSectionIsCompleteSection(t *testing.T) {
	r, err := NewRecursive()
	require.NoError(t, err)

	root := []*paper.SectionNode{
		{Type: paper.SectionAbstract, Title: "Abstract", Body: "Short abstract body."},
	}
	chunks, err := r.Chunk("p1", root)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.True(t, chunks[0].IsCompleteSection)
	assert.Equal(t, "p1#0", chunks[0].ChunkID)
	assert.Equal(t, "Abstract", chunks[0].HierarchyPath)
}

func TestRecursive_EmptySectionSkipsBodyButDescendsIntoChildren(t *testing.T) {
	// Empty subsections are not indexed, but their parent's non-empty
	// body still is, and the walk still descends into children.
	r, err := NewRecursive()
	require.NoError(t, err)

	root := []*paper.SectionNode{
		{
			Type:  paper.SectionMethods,
			Title: "Methods",
			Body:  "parent body",
			Children: []*paper.SectionNode{
				{Type: paper.SectionMethods, Title: "Empty Subsection", Body: ""},
				{Type: paper.SectionMethods, Title: "Data Collection", Body: "child body"},
			},
		},
	}
	chunks, err := r.Chunk("p1", root)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "Methods", chunks[0].HierarchyPath)
	assert.Equal(t, "Methods > Data Collection", chunks[1].HierarchyPath)
}

func TestRecursive_OversizedSectionSplitsAndOverlaps(t *testing.T) {
	r, err := NewRecursive(WithMaxChunkSize(50), WithOverlap(10))
	require.NoError(t, err)

	body := strings.Repeat("word ", 40) // 200 chars, forces multi-chunk split
	root := []*paper.SectionNode{{Type: paper.SectionResults, Title: "Results", Body: body}}

	chunks, err := r.Chunk("p1", root)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	require.NoError(t, paper.ValidateOrdinals(chunks))
	for _, c := range chunks {
		assert.False(t, c.IsCompleteSection)
	}
}

func TestRecursive_OrdinalsAreDenseAndOrdered(t *testing.T) {
	r, err := NewRecursive(WithMaxChunkSize(20), WithOverlap(2))
	require.NoError(t, err)

	root := []*paper.SectionNode{
		{Type: paper.SectionIntro, Title: "Intro", Body: "one two three four five six"},
		{Type: paper.SectionMethods, Title: "Methods", Body: "seven eight nine ten eleven"},
	}
	chunks, err := r.Chunk("p1", root)
	require.NoError(t, err)
	require.NoError(t, paper.ValidateOrdinals(chunks))
	for i, c := range chunks {
		assert.Equal(t, i, c.Ordinal)
	}
}

func TestRecursive_HardSplitPathWithMaxChunkSizeOne(t *testing.T) {
	// max_chunk_size = 1 with multi-char text exercises the hard-split
	// path and still produces chunks.
	r, err := NewRecursive(WithMaxChunkSize(1), WithOverlap(0))
	require.NoError(t, err)

	root := []*paper.SectionNode{{Type: paper.SectionOther, Title: "X", Body: "abc"}}
	chunks, err := r.Chunk("p1", root)
	require.NoError(t, err)
	assert.NotEmpty(t, chunks)
}
