// Copyright 2026 © The Agentrt Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryHistory implements HistoryRepo with in-process storage. Suitable
// for development, testing, and single-instance deployments; data is lost
// on restart.
type InMemoryHistory struct {
	mu       sync.RWMutex
	messages map[string][]HistoryMessage
	sessions map[string]SessionInfo
}

// NewInMemoryHistory creates an empty in-memory history store.
func NewInMemoryHistory() *InMemoryHistory {
	return &InMemoryHistory{
		messages: make(map[string][]HistoryMessage),
		sessions: make(map[string]SessionInfo),
	}
}

func (h *InMemoryHistory) SaveMessage(_ context.Context, sessionID string, msg HistoryMessage) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.SessionID == "" {
		msg.SessionID = sessionID
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	h.messages[sessionID] = append(h.messages[sessionID], msg)
	return msg.ID, nil
}

func (h *InMemoryHistory) GetMessages(_ context.Context, sessionID string) ([]HistoryMessage, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]HistoryMessage, len(h.messages[sessionID]))
	copy(out, h.messages[sessionID])
	return out, nil
}

func (h *InMemoryHistory) CreateSession(_ context.Context, info SessionInfo) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if info.CreatedAt.IsZero() {
		info.CreatedAt = time.Now()
	}
	info.UpdatedAt = info.CreatedAt
	h.sessions[info.ID] = info
	return nil
}

func (h *InMemoryHistory) GetSession(_ context.Context, sessionID string) (SessionInfo, bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	info, ok := h.sessions[sessionID]
	return info, ok, nil
}

func (h *InMemoryHistory) ListSessions(_ context.Context, userID string) ([]SessionInfo, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []SessionInfo
	for _, info := range h.sessions {
		if userID == "" || info.UserID == userID {
			out = append(out, info)
		}
	}
	return out, nil
}

func (h *InMemoryHistory) DeleteSession(_ context.Context, sessionID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, sessionID)
	delete(h.messages, sessionID)
	return nil
}

func (h *InMemoryHistory) SetPinned(_ context.Context, sessionID string, pinned bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	info, ok := h.sessions[sessionID]
	if !ok {
		return nil
	}
	info.Pinned = pinned
	info.UpdatedAt = time.Now()
	h.sessions[sessionID] = info
	return nil
}

func (h *InMemoryHistory) SetTitle(_ context.Context, sessionID string, title string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	info, ok := h.sessions[sessionID]
	if !ok {
		return nil
	}
	info.Title = title
	info.UpdatedAt = time.Now()
	h.sessions[sessionID] = info
	return nil
}

// InMemoryTasks implements TaskRepo with in-process storage.
type InMemoryTasks struct {
	mu    sync.RWMutex
	tasks map[string]TaskRecord
}

// NewInMemoryTasks creates an empty in-memory task store.
func NewInMemoryTasks() *InMemoryTasks {
	return &InMemoryTasks{tasks: make(map[string]TaskRecord)}
}

func (s *InMemoryTasks) CreateTask(_ context.Context, sessionID, description string, dependencies []string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New().String()
	s.tasks[id] = TaskRecord{
		ID:           id,
		SessionID:    sessionID,
		Description:  description,
		Status:       TaskPending,
		Dependencies: append([]string(nil), dependencies...),
		CreatedAt:    time.Now(),
	}
	return id, nil
}

func (s *InMemoryTasks) GetTask(_ context.Context, id string) (TaskRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	return t, ok, nil
}

func (s *InMemoryTasks) GetTasks(_ context.Context, sessionID string) ([]TaskRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []TaskRecord
	for _, t := range s.tasks {
		if t.SessionID == sessionID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *InMemoryTasks) UpdateStatus(_ context.Context, id string, status TaskStatus, result string, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil
	}
	now := time.Now()
	switch status {
	case TaskRunning:
		t.StartedAt = now
	case TaskCompleted, TaskFailed:
		t.FinishedAt = now
	}
	t.Status = status
	t.Result = result
	t.Error = errMsg
	s.tasks[id] = t
	return nil
}

func (s *InMemoryTasks) GetReadyTasks(_ context.Context, sessionID string) ([]TaskRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statusByID := make(map[string]TaskStatus, len(s.tasks))
	for id, t := range s.tasks {
		statusByID[id] = t.Status
	}

	var out []TaskRecord
	for _, t := range s.tasks {
		if t.SessionID != sessionID || t.Status != TaskPending {
			continue
		}
		ready := true
		for _, dep := range t.Dependencies {
			if statusByID[dep] != TaskCompleted {
				ready = false
				break
			}
		}
		if ready {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *InMemoryTasks) GetDAG(_ context.Context, sessionID string) ([]TaskRecord, []Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tasks []TaskRecord
	var edges []Edge
	for _, t := range s.tasks {
		if t.SessionID != sessionID {
			continue
		}
		tasks = append(tasks, t)
		for _, dep := range t.Dependencies {
			edges = append(edges, Edge{From: dep, To: t.ID})
		}
	}
	return tasks, edges, nil
}

// InMemoryMemory implements MemoryRepo with in-process storage, indexed by
// key and by session-id as spec.md §4.3 requires.
type InMemoryMemory struct {
	mu        sync.RWMutex
	records   map[string]MemoryRecord // by id
	byKey     map[string]string       // key -> id
	bySession map[string][]string     // session-id -> ids
}

// NewInMemoryMemory creates an empty in-memory long-term memory store.
func NewInMemoryMemory() *InMemoryMemory {
	return &InMemoryMemory{
		records:   make(map[string]MemoryRecord),
		byKey:     make(map[string]string),
		bySession: make(map[string][]string),
	}
}

func (m *InMemoryMemory) GetByID(_ context.Context, id string) (MemoryRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	return rec, ok, nil
}

func (m *InMemoryMemory) GetByKey(_ context.Context, key string) (MemoryRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byKey[key]
	if !ok {
		return MemoryRecord{}, false, nil
	}
	return m.records[id], true, nil
}

func (m *InMemoryMemory) UpsertByKey(_ context.Context, rec MemoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if id, ok := m.byKey[rec.Key]; ok {
		existing := m.records[id]
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
		rec.UpdatedAt = now
		m.records[id] = rec
		return nil
	}

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	rec.CreatedAt = now
	rec.UpdatedAt = now
	m.records[rec.ID] = rec
	m.byKey[rec.Key] = rec.ID
	if rec.SessionID != "" {
		m.bySession[rec.SessionID] = append(m.bySession[rec.SessionID], rec.ID)
	}
	return nil
}

func (m *InMemoryMemory) Insert(_ context.Context, rec MemoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	m.records[rec.ID] = rec
	if rec.Key != "" {
		m.byKey[rec.Key] = rec.ID
	}
	if rec.SessionID != "" {
		m.bySession[rec.SessionID] = append(m.bySession[rec.SessionID], rec.ID)
	}
	return nil
}

func (m *InMemoryMemory) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return false, nil
	}
	delete(m.records, id)
	if rec.Key != "" {
		delete(m.byKey, rec.Key)
	}
	if rec.SessionID != "" {
		ids := m.bySession[rec.SessionID]
		for i, x := range ids {
			if x == id {
				m.bySession[rec.SessionID] = append(ids[:i], ids[i+1:]...)
				break
			}
		}
	}
	return true, nil
}

func (m *InMemoryMemory) All(_ context.Context) ([]MemoryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]MemoryRecord, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	return out, nil
}

func (m *InMemoryMemory) BySession(_ context.Context, sessionID string) ([]MemoryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []MemoryRecord
	for _, id := range m.bySession[sessionID] {
		out = append(out, m.records[id])
	}
	return out, nil
}
