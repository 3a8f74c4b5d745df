// Copyright 2026 © The Agentrt Authors
// SPDX-License-Identifier: Apache-2.0

// Package store defines the narrow repository interfaces the runtime
// consumes for durable state: conversation history, tasks, and long-term
// memory entries. The package itself is a consumer-facing contract; it
// ships an in-memory adapter for tests and a SQLite adapter for a
// single-instance deployment, exactly as the teacher's conversation
// package ships both an in-memory and a SQL-backed store.
package store

import (
	"context"
	"time"
)

// HistoryMessage is a single persisted turn of conversation.
type HistoryMessage struct {
	ID         string
	SessionID  string
	Role       string
	Content    string
	ToolCallID string
	CreatedAt  time.Time
}

// SessionInfo is the persisted metadata for a session distinct from its
// message history: title, pin state, and timestamps.
type SessionInfo struct {
	ID        string
	UserID    string
	Title     string
	Pinned    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HistoryRepo persists conversation turns and session metadata.
type HistoryRepo interface {
	SaveMessage(ctx context.Context, sessionID string, msg HistoryMessage) (string, error)
	GetMessages(ctx context.Context, sessionID string) ([]HistoryMessage, error)
	CreateSession(ctx context.Context, info SessionInfo) error
	GetSession(ctx context.Context, sessionID string) (SessionInfo, bool, error)
	ListSessions(ctx context.Context, userID string) ([]SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error
	SetPinned(ctx context.Context, sessionID string, pinned bool) error
	SetTitle(ctx context.Context, sessionID string, title string) error
}

// TaskStatus is a task's lifecycle state, kept local to this package
// rather than imported from pkg/core so store stays dependency-free the
// way the teacher's own store-shaped packages avoid reaching back into
// domain packages.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// TaskRecord is the persisted shape of a task.
type TaskRecord struct {
	ID           string
	SessionID    string
	Description  string
	Status       TaskStatus
	Dependencies []string
	Result       string
	Error        string
	CreatedAt    time.Time
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Edge is a derived dependency edge for DAG visualization.
type Edge struct {
	From string
	To   string
}

// TaskRepo persists tasks and derives their dependency graph.
type TaskRepo interface {
	CreateTask(ctx context.Context, sessionID, description string, dependencies []string) (string, error)
	GetTask(ctx context.Context, id string) (TaskRecord, bool, error)
	GetTasks(ctx context.Context, sessionID string) ([]TaskRecord, error)
	UpdateStatus(ctx context.Context, id string, status TaskStatus, result string, errMsg string) error
	GetReadyTasks(ctx context.Context, sessionID string) ([]TaskRecord, error)
	GetDAG(ctx context.Context, sessionID string) ([]TaskRecord, []Edge, error)
}

// MemoryRecord is the persisted shape of a long-term memory entry.
type MemoryRecord struct {
	ID        string
	Key       string // empty means unkeyed (append-only remember())
	Content   string
	Embedding []float32
	Metadata  map[string]any
	SessionID string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MemoryRepo persists long-term memory entries, indexed by key and by
// session-id as spec.md §4.3 requires.
type MemoryRepo interface {
	GetByID(ctx context.Context, id string) (MemoryRecord, bool, error)
	GetByKey(ctx context.Context, key string) (MemoryRecord, bool, error)
	UpsertByKey(ctx context.Context, rec MemoryRecord) error
	Insert(ctx context.Context, rec MemoryRecord) error
	Delete(ctx context.Context, id string) (bool, error)
	All(ctx context.Context) ([]MemoryRecord, error)
	BySession(ctx context.Context, sessionID string) ([]MemoryRecord, error)
}
