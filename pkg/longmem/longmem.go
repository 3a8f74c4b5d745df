// Copyright 2026 © The Agentrt Authors
// SPDX-License-Identifier: Apache-2.0

// Package longmem implements content-addressable long-term memory with
// optional vector recall: entries are persisted through a store.MemoryRepo,
// optionally embedded, and searched by cosine similarity with a substring
// fallback when no embedder is configured or embedding fails.
package longmem

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/orbitune/agentrt/pkg/store"
)

// Embedder converts text into a vector. A nil Embedder disables semantic
// search and set/remember store entries with a null embedding.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex is an optional ANN-backed search delegate (see
// pkg/longmem/qdrant). It is a performance optimization only: the spec's
// required behavior is the in-process cosine scan this package always
// falls back to when Index is nil or returns an error.
type VectorIndex interface {
	Search(ctx context.Context, collection string, query []float32, limit int) ([]string, error)
}

// Entry is the memory's public shape, decoupled from store.MemoryRecord so
// callers outside pkg/store never need to import it directly.
type Entry struct {
	ID        string
	Key       string
	Content   string
	Metadata  map[string]any
	SessionID string
}

// Memory is the long-term memory manager: get/set by key, append-only
// remember/forget, and ranked search.
type Memory struct {
	repo       store.MemoryRepo
	embedder   Embedder
	index      VectorIndex
	collection string
	logger     *slog.Logger
}

// New creates a Memory backed by repo. embedder may be nil.
func New(repo store.MemoryRepo, embedder Embedder, logger *slog.Logger) *Memory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Memory{repo: repo, embedder: embedder, logger: logger}
}

// WithIndex attaches an optional ANN-backed VectorIndex used to accelerate
// searchByEmbedding; collection is the index's collection name. Search
// still falls back to the in-process cosine scan on any index error.
func (m *Memory) WithIndex(index VectorIndex, collection string) *Memory {
	m.index = index
	m.collection = collection
	return m
}

// Get returns the value stored under key, or ok=false if absent.
func (m *Memory) Get(ctx context.Context, key string) (Entry, bool, error) {
	rec, ok, err := m.repo.GetByKey(ctx, key)
	if err != nil || !ok {
		return Entry{}, false, err
	}
	return toEntry(rec), true, nil
}

// Set upserts by key. If an embedder is configured it computes an
// embedding; on embedder failure the value is still stored with a null
// embedding and a warning is logged, per spec.
func (m *Memory) Set(ctx context.Context, key, content string, metadata map[string]any) error {
	rec := store.MemoryRecord{Key: key, Content: content, Metadata: metadata}
	if m.embedder != nil {
		vec, err := m.embedder.Embed(ctx, content)
		if err != nil {
			m.logger.Warn("long-term memory embedding failed, storing without vector", "key", key, "error", err)
		} else {
			rec.Embedding = vec
		}
	}
	return m.repo.UpsertByKey(ctx, rec)
}

// Remember inserts a fresh, unkeyed entry and returns its id.
func (m *Memory) Remember(ctx context.Context, content string, metadata map[string]any, sessionID string) (string, error) {
	rec := store.MemoryRecord{ID: uuid.New().String(), Content: content, Metadata: metadata, SessionID: sessionID}
	if m.embedder != nil {
		vec, err := m.embedder.Embed(ctx, content)
		if err != nil {
			m.logger.Warn("long-term memory embedding failed, storing without vector", "session_id", sessionID, "error", err)
		} else {
			rec.Embedding = vec
		}
	}
	if err := m.repo.Insert(ctx, rec); err != nil {
		return "", err
	}
	return rec.ID, nil
}

// Forget deletes an entry by id, reporting whether a row was removed.
func (m *Memory) Forget(ctx context.Context, id string) (bool, error) {
	return m.repo.Delete(ctx, id)
}

const defaultSearchLimit = 5

// Search ranks entries by relevance to query. With an embedder configured
// it embeds the query and ranks all embedded rows by cosine similarity;
// on any embedder failure, or when no embedder is configured, it falls
// back to a substring match over content, ordered most-recently-updated
// first.
func (m *Memory) Search(ctx context.Context, query string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	if m.embedder != nil {
		entries, err := m.searchByEmbedding(ctx, query, limit)
		if err == nil {
			return entries, nil
		}
		m.logger.Warn("long-term memory embedding search failed, falling back to substring match", "error", err)
	}
	return m.searchBySubstring(ctx, query, limit)
}

func (m *Memory) searchByEmbedding(ctx context.Context, query string, limit int) ([]Entry, error) {
	qvec, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	if m.index != nil {
		entries, indexErr := m.searchByIndex(ctx, qvec, limit)
		if indexErr == nil {
			return entries, nil
		}
		m.logger.Warn("long-term memory vector index search failed, falling back to in-process scan", "error", indexErr)
	}

	all, err := m.repo.All(ctx)
	if err != nil {
		return nil, err
	}

	type scored struct {
		rec   store.MemoryRecord
		score float64
	}
	var candidates []scored
	for _, rec := range all {
		if len(rec.Embedding) == 0 {
			continue
		}
		candidates = append(candidates, scored{rec: rec, score: cosineSimilarity(qvec, rec.Embedding)})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]Entry, len(candidates))
	for i, c := range candidates {
		out[i] = toEntry(c.rec)
	}
	return out, nil
}

func (m *Memory) searchByIndex(ctx context.Context, qvec []float32, limit int) ([]Entry, error) {
	ids, err := m.index.Search(ctx, m.collection, qvec, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(ids))
	for _, id := range ids {
		rec, ok, err := m.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, toEntry(rec))
		}
	}
	return out, nil
}

func (m *Memory) searchBySubstring(ctx context.Context, query string, limit int) ([]Entry, error) {
	all, err := m.repo.All(ctx)
	if err != nil {
		return nil, err
	}

	var matches []store.MemoryRecord
	for _, rec := range all {
		if strings.Contains(rec.Content, query) {
			matches = append(matches, rec)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].UpdatedAt.After(matches[j].UpdatedAt)
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]Entry, len(matches))
	for i, rec := range matches {
		out[i] = toEntry(rec)
	}
	return out, nil
}

// cosineSimilarity computes (a·b) / (‖a‖·‖b‖), returning 0 when either
// norm is zero or the vectors have mismatched lengths.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func toEntry(rec store.MemoryRecord) Entry {
	return Entry{
		ID:        rec.ID,
		Key:       rec.Key,
		Content:   rec.Content,
		Metadata:  rec.Metadata,
		SessionID: rec.SessionID,
	}
}
