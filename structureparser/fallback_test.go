//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package structureparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchagent/backend/paper"
)

func TestParseFallback_NoHeadings(t *testing.T) {
	result := parseFallback("just some plain text with no headings at all")
	require.Len(t, result.Sections, 1)
	assert.Equal(t, paper.SectionOther, result.Sections[0].Type)
}

func TestParseFallback_SplitsOnHeadings(t *testing.T) {
	text := "Abstract\nThis is the abstract.\nIntroduction\nThis is the intro.\nMethods\nThis is the methods section."
	result := parseFallback(text)
	require.Len(t, result.Sections, 3)
	assert.Equal(t, paper.SectionAbstract, result.Sections[0].Type)
	assert.Equal(t, paper.SectionIntro, result.Sections[1].Type)
	assert.Equal(t, paper.SectionMethods, result.Sections[2].Type)
	assert.Contains(t, result.Sections[0].Body, "abstract")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		heading string
		want    paper.SectionType
	}{
		{"Related Work", paper.SectionRelatedWork},
		{"实验", paper.SectionExperiments},
		{"Nonsense Heading", paper.SectionOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classify(tt.heading))
	}
}
