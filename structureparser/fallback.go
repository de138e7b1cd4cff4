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
	"regexp"
	"strings"

	"github.com/researchagent/backend/paper"
)

// headingRegex matches common section heading cues, bilingual, case
// insensitive).
var headingRegex = regexp.MustCompile(
	`(?im)^\s*(abstract|introduction|related work|background|methods?|` +
		`methodology|experiments?|results?|discussion|conclusions?|references?|` +
		`bibliography|appendix|摘要|引言|相关工作|方法|实验|结果|讨论|结论|参考文献|附录)\s*$`,
)

// keywordTable classifies a heading string to a canonical SectionType
//).
var keywordTable = []struct {
	keywords []string
	section  paper.SectionType
}{
	{[]string{"abstract", "摘要"}, paper.SectionAbstract},
	{[]string{"introduction", "引言", "background"}, paper.SectionIntro},
	{[]string{"related work", "相关工作"}, paper.SectionRelatedWork},
	{[]string{"method", "methodology", "方法"}, paper.SectionMethods},
	{[]string{"experiment", "实验"}, paper.SectionExperiments},
	{[]string{"result", "结果"}, paper.SectionResults},
	{[]string{"discussion", "讨论"}, paper.SectionDiscussion},
	{[]string{"conclusion", "结论"}, paper.SectionConclusion},
	{[]string{"reference", "bibliography", "参考文献"}, paper.SectionReferences},
	{[]string{"appendix", "附录"}, paper.SectionAppendix},
}

// parseFallback implements the regex/keyword fallback path:
// split on heading cues, classify each segment by keyword match, or yield
// one catch-all "other" section if no heading matches.
//
// Uses the same regexp-based text-classification idiom as the chunking
// package's cleanTextRegex, generalized here to heading detection.
func parseFallback(text string) *PaperStructure {
	lines := strings.Split(text, "\n")
	locs := headingRegex.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return &PaperStructure{
			Sections: []*paper.SectionNode{
				{Type: paper.SectionOther, Title: "", Body: text},
			},
		}
	}
	_ = lines // segmentation operates on the raw text below

	var sections []*paper.SectionNode
	for i, loc := range locs {
		headingStart, headingEnd := loc[0], loc[1]
		bodyStart := headingEnd
		bodyEnd := len(text)
		if i+1 < len(locs) {
			bodyEnd = locs[i+1][0]
		}
		heading := strings.TrimSpace(text[headingStart:headingEnd])
		body := strings.TrimSpace(text[bodyStart:bodyEnd])
		sections = append(sections, &paper.SectionNode{
			Type:  classify(heading),
			Title: heading,
			Body:  body,
		})
	}
	return &PaperStructure{Sections: sections}
}

func classify(heading string) paper.SectionType {
	lower := strings.ToLower(heading)
	for _, row := range keywordTable {
		for _, kw := range row.keywords {
			if strings.Contains(lower, kw) {
				return row.section
			}
		}
	}
	return paper.SectionOther
}
