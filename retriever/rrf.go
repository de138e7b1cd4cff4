//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package retriever

// DefaultRRFK is the RRF rank-dampening constant.
const DefaultRRFK = 60

// rankedList is an ordered sequence of chunk_ids, best first.
type rankedList = []string

// fuseRRF combines dense and sparse ranked lists via Reciprocal Rank Fusion:
// score(id) = sum over lists containing id of 1/(k+rank), rank 1-based.
// Ties break by insertion order: the order ids were first seen while
// scanning the lists, dense before sparse.
func fuseRRF(k int, lists ...rankedList) []string {
	scores := make(map[string]float64)
	seenOrder := make([]string, 0)
	seen := make(map[string]bool)

	for _, list := range lists {
		for rank, id := range list {
			scores[id] += 1.0 / float64(k+rank+1)
			if !seen[id] {
				seen[id] = true
				seenOrder = append(seenOrder, id)
			}
		}
	}

	sortByScoreDesc(seenOrder, scores)
	return seenOrder
}

// sortByScoreDesc stably sorts ids by score descending: it never swaps on
// equal scores, so ties keep ids' incoming (insertion) order.
func sortByScoreDesc(ids []string, scores map[string]float64) {
	// Simple insertion sort: candidate lists are small (top-k per side).
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0; j-- {
			a, b := ids[j-1], ids[j]
			if scores[a] >= scores[b] {
				break
			}
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}
