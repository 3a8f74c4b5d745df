// Copyright 2026 © The Agentrt Authors
// SPDX-License-Identifier: Apache-2.0

// Package dag implements the task graph and its ready-wave executor:
// tasks become ready once every dependency is completed, ready tasks
// dispatch in parallel each round, and a round never advances until every
// task in it has settled.
package dag

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/orbitune/agentrt/pkg/core"
	"github.com/orbitune/agentrt/pkg/store"
)

// maxRounds bounds the executor: a graph that still has ready or running
// work after this many rounds ends the run with a warning rather than
// looping forever on a cyclic or pathological dependency set.
const maxRounds = 50

// ActionDispatcher resolves a tool invocation, used by per-task dispatch
// when a task's description parses as {tool, params}.
type ActionDispatcher interface {
	ExecuteAction(ctx context.Context, toolName string, params map[string]any) (any, error)
}

// Executor runs the ready-wave scheduler over a session's task graph.
type Executor struct {
	tasks    store.TaskRepo
	registry ActionDispatcher
	logger   *slog.Logger
}

// New creates an Executor. registry may be nil if no tasks in practice
// dispatch through the skill registry.
func New(tasks store.TaskRepo, registry ActionDispatcher, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{tasks: tasks, registry: registry, logger: logger}
}

// Execute runs sessionID's task graph to completion (or MAX_ROUNDS),
// returning a channel of task_completed/task_failed events. The channel
// is closed when the run ends, whether by exhausting ready tasks,
// hitting the round bound, or ctx cancellation.
func (e *Executor) Execute(ctx context.Context, sessionID string) <-chan core.Event {
	events := make(chan core.Event, 16)

	go func() {
		defer close(events)
		e.run(ctx, sessionID, events)
	}()

	return events
}

func (e *Executor) run(ctx context.Context, sessionID string, events chan<- core.Event) {
	for round := 0; round < maxRounds; round++ {
		if ctx.Err() != nil {
			return
		}

		ready, err := e.tasks.GetReadyTasks(ctx, sessionID)
		if err != nil {
			e.logger.Error("dag executor: failed to list ready tasks", "session_id", sessionID, "error", err)
			return
		}
		if len(ready) == 0 {
			return
		}

		for i := range ready {
			if err := e.tasks.UpdateStatus(ctx, ready[i].ID, store.TaskRunning, "", ""); err != nil {
				e.logger.Error("dag executor: failed to flip task to running", "task_id", ready[i].ID, "error", err)
				return
			}
		}

		var wg sync.WaitGroup
		results := make([]core.Event, len(ready))
		for i := range ready {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = e.dispatch(ctx, ready[i])
			}(i)
		}
		wg.Wait()

		for _, ev := range results {
			if err := e.persist(ctx, ev); err != nil {
				e.logger.Error("dag executor: failed to persist task settlement", "task_id", ev.TaskID, "error", err)
			}
			events <- ev
		}
	}

	e.logger.Warn("dag executor: hit MAX_ROUNDS, ending run", "session_id", sessionID, "max_rounds", maxRounds)
}

func (e *Executor) persist(ctx context.Context, ev core.Event) error {
	switch ev.Kind {
	case core.EventTaskCompleted:
		resultText := ""
		if ev.TaskResult != nil {
			resultText = fmt.Sprintf("%v", ev.TaskResult)
		}
		return e.tasks.UpdateStatus(ctx, ev.TaskID, store.TaskCompleted, resultText, "")
	case core.EventTaskFailed:
		return e.tasks.UpdateStatus(ctx, ev.TaskID, store.TaskFailed, "", ev.TaskError)
	default:
		return nil
	}
}

// dispatch executes one task and returns its settlement event. A task
// exception marks only that task failed; the round otherwise continues.
func (e *Executor) dispatch(ctx context.Context, task store.TaskRecord) core.Event {
	result, err := e.runTask(ctx, task)
	if err != nil {
		return core.TaskFailedEvent(task.ID, err)
	}
	return core.TaskCompletedEvent(task.ID, result)
}

// toolTask is the shape a task's description parses into when it should
// dispatch through the skill registry rather than be treated as a note.
type toolTask struct {
	Tool   string         `json:"tool"`
	Params map[string]any `json:"params"`
}

func (e *Executor) runTask(ctx context.Context, task store.TaskRecord) (any, error) {
	var spec toolTask
	if err := json.Unmarshal([]byte(task.Description), &spec); err == nil && spec.Tool != "" {
		if e.registry == nil {
			return nil, fmt.Errorf("task references tool %q but no skill registry is configured", spec.Tool)
		}
		return e.registry.ExecuteAction(ctx, spec.Tool, spec.Params)
	}
	return fmt.Sprintf("Task noted: %s", task.Description), nil
}
