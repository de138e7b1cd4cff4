//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package retriever

import "strings"

// Language is the detected dominant script of a query.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageChinese Language = "zh"
	LanguageMixed   Language = "mixed"
)

// chineseThreshold and englishThreshold bound the CJK-codepoint ratio (over
// the full trimmed query length, not just the CJK+Latin subset) used to
// classify a query's dominant script.
const (
	chineseThreshold = 0.3
	englishThreshold = 0.1
)

// detectLanguage classifies text by the ratio of CJK codepoints to the
// total length of the trimmed text: zh above chineseThreshold, en below
// englishThreshold provided at least one Latin letter is present, mixed
// otherwise.
func detectLanguage(text string) Language {
	trimmed := strings.TrimSpace(text)
	total := len([]rune(trimmed))
	if total == 0 {
		return LanguageEnglish
	}

	var cjk, latin int
	for _, r := range trimmed {
		switch {
		case isCJK(r):
			cjk++
		case isLatinLetter(r):
			latin++
		}
	}

	cjkRatio := float64(cjk) / float64(total)
	switch {
	case cjkRatio > chineseThreshold:
		return LanguageChinese
	case cjkRatio < englishThreshold && latin > 0:
		return LanguageEnglish
	default:
		return LanguageMixed
	}
}

func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) || // CJK Unified Ideographs
		(r >= 0x3400 && r <= 0x4DBF) || // CJK Extension A
		(r >= 0x3040 && r <= 0x30FF) || // Hiragana/Katakana
		(r >= 0xAC00 && r <= 0xD7AF) // Hangul syllables
}

func isLatinLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
