// Copyright 2026 © The Agentrt Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteHistory persists conversation history and session metadata in
// SQLite. Suitable for a single-instance deployment.
type SQLiteHistory struct {
	db *sql.DB
}

// NewSQLiteHistory wraps db and ensures the history schema exists.
func NewSQLiteHistory(db *sql.DB) (*SQLiteHistory, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS history_sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT,
			title TEXT,
			pinned INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP,
			updated_at TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS history_messages (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			tool_call_id TEXT,
			created_at TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_history_messages_session ON history_messages(session_id, created_at);
		CREATE INDEX IF NOT EXISTS idx_history_sessions_user ON history_sessions(user_id);
	`); err != nil {
		return nil, err
	}
	return &SQLiteHistory{db: db}, nil
}

func (s *SQLiteHistory) SaveMessage(ctx context.Context, sessionID string, msg HistoryMessage) (string, error) {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.SessionID == "" {
		msg.SessionID = sessionID
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO history_messages (id, session_id, role, content, tool_call_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, msg.ID, sessionID, msg.Role, msg.Content, msg.ToolCallID, msg.CreatedAt.UTC())
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (s *SQLiteHistory) GetMessages(ctx context.Context, sessionID string) ([]HistoryMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, role, content, tool_call_id, created_at
		FROM history_messages WHERE session_id = ? ORDER BY created_at ASC, rowid ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HistoryMessage
	for rows.Next() {
		var m HistoryMessage
		var toolCallID sql.NullString
		var createdAt sql.NullTime
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &toolCallID, &createdAt); err != nil {
			return nil, err
		}
		m.ToolCallID = toolCallID.String
		if createdAt.Valid {
			m.CreatedAt = createdAt.Time
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLiteHistory) CreateSession(ctx context.Context, info SessionInfo) error {
	now := time.Now().UTC()
	if info.CreatedAt.IsZero() {
		info.CreatedAt = now
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO history_sessions (id, user_id, title, pinned, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, info.ID, info.UserID, info.Title, boolToInt(info.Pinned), info.CreatedAt.UTC(), now)
	return err
}

func (s *SQLiteHistory) GetSession(ctx context.Context, sessionID string) (SessionInfo, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, pinned, created_at, updated_at FROM history_sessions WHERE id = ?
	`, sessionID)

	var info SessionInfo
	var pinned int
	var createdAt, updatedAt sql.NullTime
	if err := row.Scan(&info.ID, &info.UserID, &info.Title, &pinned, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SessionInfo{}, false, nil
		}
		return SessionInfo{}, false, err
	}
	info.Pinned = pinned != 0
	info.CreatedAt = createdAt.Time
	info.UpdatedAt = updatedAt.Time
	return info, true, nil
}

func (s *SQLiteHistory) ListSessions(ctx context.Context, userID string) ([]SessionInfo, error) {
	query := `SELECT id, user_id, title, pinned, created_at, updated_at FROM history_sessions`
	var args []any
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		var info SessionInfo
		var pinned int
		var createdAt, updatedAt sql.NullTime
		if err := rows.Scan(&info.ID, &info.UserID, &info.Title, &pinned, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		info.Pinned = pinned != 0
		info.CreatedAt = createdAt.Time
		info.UpdatedAt = updatedAt.Time
		out = append(out, info)
	}
	return out, rows.Err()
}

func (s *SQLiteHistory) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM history_messages WHERE session_id = ?`, sessionID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM history_sessions WHERE id = ?`, sessionID)
	return err
}

func (s *SQLiteHistory) SetPinned(ctx context.Context, sessionID string, pinned bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE history_sessions SET pinned = ?, updated_at = ? WHERE id = ?`,
		boolToInt(pinned), time.Now().UTC(), sessionID)
	return err
}

func (s *SQLiteHistory) SetTitle(ctx context.Context, sessionID string, title string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE history_sessions SET title = ?, updated_at = ? WHERE id = ?`,
		title, time.Now().UTC(), sessionID)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// SQLiteTasks persists tasks in SQLite.
type SQLiteTasks struct {
	db *sql.DB
}

// NewSQLiteTasks wraps db and ensures the task schema exists.
func NewSQLiteTasks(db *sql.DB) (*SQLiteTasks, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			description TEXT NOT NULL,
			status TEXT NOT NULL,
			dependencies TEXT,
			result TEXT,
			error_text TEXT,
			created_at TIMESTAMP,
			started_at TIMESTAMP,
			finished_at TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_tasks_session ON tasks(session_id);
	`); err != nil {
		return nil, err
	}
	return &SQLiteTasks{db: db}, nil
}

func (s *SQLiteTasks) CreateTask(ctx context.Context, sessionID, description string, dependencies []string) (string, error) {
	id := uuid.New().String()
	deps, err := json.Marshal(dependencies)
	if err != nil {
		return "", err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, session_id, description, status, dependencies, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, sessionID, description, string(TaskPending), string(deps), time.Now().UTC())
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *SQLiteTasks) scanTask(row *sql.Row) (TaskRecord, bool, error) {
	var t TaskRecord
	var depsJSON string
	var status string
	var result, errText sql.NullString
	var startedAt, finishedAt, createdAt sql.NullTime
	err := row.Scan(&t.ID, &t.SessionID, &t.Description, &status, &depsJSON, &result, &errText, &createdAt, &startedAt, &finishedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TaskRecord{}, false, nil
		}
		return TaskRecord{}, false, err
	}
	t.Status = TaskStatus(status)
	t.Result = result.String
	t.Error = errText.String
	t.CreatedAt = createdAt.Time
	t.StartedAt = startedAt.Time
	t.FinishedAt = finishedAt.Time
	_ = json.Unmarshal([]byte(depsJSON), &t.Dependencies)
	return t, true, nil
}

func (s *SQLiteTasks) GetTask(ctx context.Context, id string) (TaskRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, description, status, dependencies, result, error_text, created_at, started_at, finished_at
		FROM tasks WHERE id = ?
	`, id)
	return s.scanTask(row)
}

func (s *SQLiteTasks) queryTasks(ctx context.Context, query string, args ...any) ([]TaskRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TaskRecord
	for rows.Next() {
		var t TaskRecord
		var depsJSON, status string
		var result, errText sql.NullString
		var startedAt, finishedAt, createdAt sql.NullTime
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Description, &status, &depsJSON, &result, &errText, &createdAt, &startedAt, &finishedAt); err != nil {
			return nil, err
		}
		t.Status = TaskStatus(status)
		t.Result = result.String
		t.Error = errText.String
		t.CreatedAt = createdAt.Time
		t.StartedAt = startedAt.Time
		t.FinishedAt = finishedAt.Time
		_ = json.Unmarshal([]byte(depsJSON), &t.Dependencies)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteTasks) GetTasks(ctx context.Context, sessionID string) ([]TaskRecord, error) {
	return s.queryTasks(ctx, `
		SELECT id, session_id, description, status, dependencies, result, error_text, created_at, started_at, finished_at
		FROM tasks WHERE session_id = ? ORDER BY created_at ASC, rowid ASC
	`, sessionID)
}

func (s *SQLiteTasks) UpdateStatus(ctx context.Context, id string, status TaskStatus, result string, errMsg string) error {
	now := time.Now().UTC()
	switch status {
	case TaskRunning:
		_, err := s.db.ExecContext(ctx, `UPDATE tasks SET status = ?, started_at = ? WHERE id = ?`, string(status), now, id)
		return err
	case TaskCompleted, TaskFailed:
		_, err := s.db.ExecContext(ctx, `
			UPDATE tasks SET status = ?, result = ?, error_text = ?, finished_at = ? WHERE id = ?
		`, string(status), result, errMsg, now, id)
		return err
	default:
		_, err := s.db.ExecContext(ctx, `UPDATE tasks SET status = ? WHERE id = ?`, string(status), id)
		return err
	}
}

func (s *SQLiteTasks) GetReadyTasks(ctx context.Context, sessionID string) ([]TaskRecord, error) {
	all, err := s.GetTasks(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	statusByID := make(map[string]TaskStatus, len(all))
	for _, t := range all {
		statusByID[t.ID] = t.Status
	}
	var out []TaskRecord
	for _, t := range all {
		if t.Status != TaskPending {
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

func (s *SQLiteTasks) GetDAG(ctx context.Context, sessionID string) ([]TaskRecord, []Edge, error) {
	tasks, err := s.GetTasks(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	var edges []Edge
	for _, t := range tasks {
		for _, dep := range t.Dependencies {
			edges = append(edges, Edge{From: dep, To: t.ID})
		}
	}
	return tasks, edges, nil
}

// SQLiteMemory persists long-term memory entries in SQLite, with indices
// by key and by session-id as spec.md §4.3 requires.
type SQLiteMemory struct {
	db *sql.DB
}

// NewSQLiteMemory wraps db and ensures the memory schema exists.
func NewSQLiteMemory(db *sql.DB) (*SQLiteMemory, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS memory_entries (
			id TEXT PRIMARY KEY,
			key TEXT,
			content TEXT NOT NULL,
			embedding TEXT,
			metadata TEXT,
			session_id TEXT,
			created_at TIMESTAMP,
			updated_at TIMESTAMP
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_memory_key ON memory_entries(key) WHERE key IS NOT NULL AND key != '';
		CREATE INDEX IF NOT EXISTS idx_memory_session ON memory_entries(session_id);
	`); err != nil {
		return nil, err
	}
	return &SQLiteMemory{db: db}, nil
}

func encodeEmbedding(v []float32) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	return string(b), err
}

func decodeEmbedding(s string) []float32 {
	if s == "" {
		return nil
	}
	var v []float32
	_ = json.Unmarshal([]byte(s), &v)
	return v
}

func encodeMetadata(m map[string]any) (string, error) {
	if m == nil {
		return "", nil
	}
	b, err := json.Marshal(m)
	return string(b), err
}

func decodeMetadata(s string) map[string]any {
	if s == "" {
		return nil
	}
	var m map[string]any
	_ = json.Unmarshal([]byte(s), &m)
	return m
}

func (s *SQLiteMemory) scanRow(row interface {
	Scan(dest ...any) error
}) (MemoryRecord, error) {
	var rec MemoryRecord
	var key, embedding, metadata sql.NullString
	var sessionID sql.NullString
	var createdAt, updatedAt sql.NullTime
	if err := row.Scan(&rec.ID, &key, &rec.Content, &embedding, &metadata, &sessionID, &createdAt, &updatedAt); err != nil {
		return MemoryRecord{}, err
	}
	rec.Key = key.String
	rec.Embedding = decodeEmbedding(embedding.String)
	rec.Metadata = decodeMetadata(metadata.String)
	rec.SessionID = sessionID.String
	rec.CreatedAt = createdAt.Time
	rec.UpdatedAt = updatedAt.Time
	return rec, nil
}

func (s *SQLiteMemory) GetByID(ctx context.Context, id string) (MemoryRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, key, content, embedding, metadata, session_id, created_at, updated_at
		FROM memory_entries WHERE id = ?
	`, id)
	rec, err := s.scanRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return MemoryRecord{}, false, nil
		}
		return MemoryRecord{}, false, err
	}
	return rec, true, nil
}

func (s *SQLiteMemory) GetByKey(ctx context.Context, key string) (MemoryRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, key, content, embedding, metadata, session_id, created_at, updated_at
		FROM memory_entries WHERE key = ?
	`, key)
	rec, err := s.scanRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return MemoryRecord{}, false, nil
		}
		return MemoryRecord{}, false, err
	}
	return rec, true, nil
}

func (s *SQLiteMemory) UpsertByKey(ctx context.Context, rec MemoryRecord) error {
	embedding, err := encodeEmbedding(rec.Embedding)
	if err != nil {
		return err
	}
	metadata, err := encodeMetadata(rec.Metadata)
	if err != nil {
		return err
	}

	existing, found, err := s.GetByKey(ctx, rec.Key)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if found {
		_, err := s.db.ExecContext(ctx, `
			UPDATE memory_entries SET content = ?, embedding = ?, metadata = ?, session_id = ?, updated_at = ?
			WHERE id = ?
		`, rec.Content, embedding, metadata, rec.SessionID, now, existing.ID)
		return err
	}

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO memory_entries (id, key, content, embedding, metadata, session_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Key, rec.Content, embedding, metadata, rec.SessionID, now, now)
	return err
}

func (s *SQLiteMemory) Insert(ctx context.Context, rec MemoryRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	embedding, err := encodeEmbedding(rec.Embedding)
	if err != nil {
		return err
	}
	metadata, err := encodeMetadata(rec.Metadata)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	var key any
	if rec.Key != "" {
		key = rec.Key
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO memory_entries (id, key, content, embedding, metadata, session_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, key, rec.Content, embedding, metadata, rec.SessionID, now, now)
	return err
}

func (s *SQLiteMemory) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM memory_entries WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *SQLiteMemory) All(ctx context.Context) ([]MemoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, key, content, embedding, metadata, session_id, created_at, updated_at FROM memory_entries
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMemoryRows(rows)
}

func (s *SQLiteMemory) BySession(ctx context.Context, sessionID string) ([]MemoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, key, content, embedding, metadata, session_id, created_at, updated_at
		FROM memory_entries WHERE session_id = ? ORDER BY updated_at DESC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMemoryRows(rows)
}

func scanMemoryRows(rows *sql.Rows) ([]MemoryRecord, error) {
	var out []MemoryRecord
	for rows.Next() {
		var rec MemoryRecord
		var key, embedding, metadata, sessionID sql.NullString
		var createdAt, updatedAt sql.NullTime
		if err := rows.Scan(&rec.ID, &key, &rec.Content, &embedding, &metadata, &sessionID, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		rec.Key = key.String
		rec.Embedding = decodeEmbedding(embedding.String)
		rec.Metadata = decodeMetadata(metadata.String)
		rec.SessionID = sessionID.String
		rec.CreatedAt = createdAt.Time
		rec.UpdatedAt = updatedAt.Time
		out = append(out, rec)
	}
	return out, rows.Err()
}
