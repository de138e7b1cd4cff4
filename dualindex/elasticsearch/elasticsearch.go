//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package elasticsearch implements dualindex.SparseStore as a BM25 index of
// paper chunks.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esapi"

	"github.com/researchagent/backend/dualindex"
	"github.com/researchagent/backend/paper"
)

const defaultIndexName = "paper_chunks_sparse"

// esDoc is the BM25-indexed shape of a paper.Chunk.
type esDoc struct {
	ChunkID           string `json:"chunk_id"`
	PaperID           string `json:"paper_id"`
	Ordinal           int    `json:"ordinal"`
	Content           string `json:"content"`
	SectionType       string `json:"section_type"`
	SectionTitle      string `json:"section_title"`
	HierarchyPath     string `json:"hierarchy_path"`
	CharCount         int    `json:"char_count"`
	IsCompleteSection bool   `json:"is_complete_section"`
}

// Store is an Elasticsearch-backed dualindex.SparseStore.
type Store struct {
	client    *elasticsearch.Client
	indexName string
}

var _ dualindex.SparseStore = (*Store)(nil)

// New dials Elasticsearch and returns a Store.
func New(addresses []string, indexName string) (*Store, error) {
	if indexName == "" {
		indexName = defaultIndexName
	}
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: addresses})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: create client: %w", err)
	}
	return &Store{client: client, indexName: indexName}, nil
}

// CreateIndex creates (or, if recreate, drops and recreates) the BM25 index.
//
// The clear_all semantics here (a full index drop) are deliberately kept
// distinct from DeleteByPaper's scoped delete-by-query, preserving the two
// operations' independent concurrency behavior rather than unifying them
// behind a single code path.
func (s *Store) CreateIndex(ctx context.Context, recreate bool) error {
	exists, err := s.indexExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		if !recreate {
			return nil
		}
		res, err := s.client.Indices.Delete([]string{s.indexName}, s.client.Indices.Delete.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("elasticsearch: drop index: %w", err)
		}
		defer res.Body.Close()
	}

	mapping := map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				"chunk_id":            map[string]any{"type": "keyword"},
				"paper_id":            map[string]any{"type": "keyword"},
				"ordinal":             map[string]any{"type": "integer"},
				"content":             map[string]any{"type": "text", "analyzer": "cjk"},
				"section_type":        map[string]any{"type": "keyword"},
				"section_title":       map[string]any{"type": "text"},
				"hierarchy_path":      map[string]any{"type": "text"},
				"char_count":          map[string]any{"type": "integer"},
				"is_complete_section": map[string]any{"type": "boolean"},
			},
		},
		"settings": map[string]any{"number_of_shards": 1, "number_of_replicas": 0},
	}
	body, err := json.Marshal(mapping)
	if err != nil {
		return err
	}

	res, err := s.client.Indices.Create(s.indexName,
		s.client.Indices.Create.WithContext(ctx),
		s.client.Indices.Create.WithBody(bytes.NewReader(body)))
	if err != nil {
		return fmt.Errorf("elasticsearch: create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch: create index: %s", res.Status())
	}
	return nil
}

func (s *Store) indexExists(ctx context.Context) (bool, error) {
	res, err := s.client.Indices.Exists([]string{s.indexName}, s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, err
	}
	defer res.Body.Close()
	return res.StatusCode == 200, nil
}

// Insert bulk-indexes chunks under their chunk_id.
func (s *Store) Insert(ctx context.Context, paperID string, chunks []paper.Chunk) error {
	var buf bytes.Buffer
	for _, c := range chunks {
		meta, err := json.Marshal(map[string]any{
			"index": map[string]any{"_index": s.indexName, "_id": c.ChunkID},
		})
		if err != nil {
			return err
		}
		doc, err := json.Marshal(esDoc{
			ChunkID:           c.ChunkID,
			PaperID:           c.PaperID,
			Ordinal:           c.Ordinal,
			Content:           c.Content,
			SectionType:       string(c.SectionType),
			SectionTitle:      c.SectionTitle,
			HierarchyPath:     c.HierarchyPath,
			CharCount:         c.CharCount,
			IsCompleteSection: c.IsCompleteSection,
		})
		if err != nil {
			return err
		}
		buf.Write(meta)
		buf.WriteByte('\n')
		buf.Write(doc)
		buf.WriteByte('\n')
	}
	if buf.Len() == 0 {
		return nil
	}

	res, err := s.client.Bulk(bytes.NewReader(buf.Bytes()),
		s.client.Bulk.WithContext(ctx),
		s.client.Bulk.WithIndex(s.indexName))
	if err != nil {
		return fmt.Errorf("elasticsearch: bulk insert: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch: bulk insert: %s", res.Status())
	}
	return nil
}

// DeleteByPaper removes every document for paperID via delete-by-query.
//
// This is the "remove_documents" half of the preserved BM25 concurrency
// ambiguity: it and CreateIndex's clear_all are both called under
// dualindex.Index's sparse mutation lock, which serializes the two but does
// not otherwise reconcile a clear_all ordered against a delete.
func (s *Store) DeleteByPaper(ctx context.Context, paperID string) error {
	query := map[string]any{
		"query": map[string]any{
			"term": map[string]any{"paper_id": paperID},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return err
	}
	req := esapi.DeleteByQueryRequest{
		Index: []string{s.indexName},
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("elasticsearch: delete by paper: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch: delete by paper: %s", res.Status())
	}
	return nil
}

// Search runs a BM25 match query over content, optionally scoped to paperID.
func (s *Store) Search(ctx context.Context, query string, k int, paperID string) ([]dualindex.SparseEntry, error) {
	must := []map[string]any{
		{"match": map[string]any{"content": query}},
	}
	filter := []map[string]any{}
	if paperID != "" {
		filter = append(filter, map[string]any{"term": map[string]any{"paper_id": paperID}})
	}

	body, err := json.Marshal(map[string]any{
		"size": k,
		"query": map[string]any{
			"bool": map[string]any{"must": must, "filter": filter},
		},
	})
	if err != nil {
		return nil, err
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.indexName),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		if strings.Contains(res.Status(), "404") {
			return nil, nil
		}
		return nil, fmt.Errorf("elasticsearch: search: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Score  float64 `json:"_score"`
				Source esDoc   `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("elasticsearch: decode search response: %w", err)
	}

	entries := make([]dualindex.SparseEntry, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		entries = append(entries, dualindex.SparseEntry{
			Chunk: paper.Chunk{
				ChunkID:           h.Source.ChunkID,
				PaperID:           h.Source.PaperID,
				Ordinal:           h.Source.Ordinal,
				Content:           h.Source.Content,
				SectionType:       paper.SectionType(h.Source.SectionType),
				SectionTitle:      h.Source.SectionTitle,
				HierarchyPath:     h.Source.HierarchyPath,
				CharCount:         h.Source.CharCount,
				IsCompleteSection: h.Source.IsCompleteSection,
			},
			BM25Score: h.Score,
		})
	}
	return entries, nil
}

// Close is a no-op: the Elasticsearch client is a stateless HTTP client.
func (s *Store) Close() error { return nil }
