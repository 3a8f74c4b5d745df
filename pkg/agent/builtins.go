// Copyright 2026 © The Agentrt Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/orbitune/agentrt/pkg/core"
)

// builtinResult is what a built-in tool-call handler produces: text for the
// tool-role reply appended to the message list. Events the handler surfaces
// on the run's channel go through its emit callback, not through this value.
type builtinResult struct {
	reply string
}

type planTaskArgs struct {
	Thought string   `json:"thought"`
	Steps   []string `json:"steps"`
}

func (a *Agent) handlePlanTask(runID, argsJSON string, emit func(core.Event)) builtinResult {
	var args planTaskArgs
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return builtinResult{reply: "Error: invalid plan_task arguments: " + err.Error()}
	}
	emit(core.ThoughtEvent(runID, args.Thought))
	emit(core.PlanEvent(runID, args.Steps))

	stepsJSON, _ := json.Marshal(args.Steps)
	return builtinResult{reply: fmt.Sprintf("Plan recorded: %s\nProceed with the next step.", stepsJSON)}
}

type memoryRememberArgs struct {
	Content string `json:"content"`
	Tags    string `json:"tags"`
}

func (a *Agent) handleMemoryRemember(ctx context.Context, sessionID, argsJSON string) string {
	if a.memory == nil {
		return "Error: long-term memory is not configured"
	}
	var args memoryRememberArgs
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return "Error: invalid memory_remember arguments: " + err.Error()
	}

	var metadata map[string]any
	if args.Tags != "" {
		var tags []string
		for _, t := range strings.Split(args.Tags, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
		metadata = map[string]any{"tags": tags}
	}

	id, err := a.memory.Remember(ctx, args.Content, metadata, sessionID)
	if err != nil {
		return "Error: " + err.Error()
	}
	return fmt.Sprintf("Memory saved (id: %s)", id)
}

type memoryRecallArgs struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func (a *Agent) handleMemoryRecall(ctx context.Context, argsJSON string) string {
	if a.memory == nil {
		return "Error: long-term memory is not configured"
	}
	var args memoryRecallArgs
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return "Error: invalid memory_recall arguments: " + err.Error()
	}
	limit := args.Limit
	if limit <= 0 {
		limit = 5
	}

	entries, err := a.memory.Search(ctx, args.Query, limit)
	if err != nil {
		return "Error: " + err.Error()
	}
	if len(entries) == 0 {
		return "No relevant memories found."
	}

	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "- %s\n", e.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

type dagCreateTaskArgs struct {
	Description  string   `json:"description"`
	Dependencies []string `json:"dependencies"`
}

func (a *Agent) handleDAGCreateTask(ctx context.Context, sessionID, argsJSON string) string {
	if a.tasks == nil {
		return "Error: task store is not configured"
	}
	var args dagCreateTaskArgs
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return "Error: invalid dag_create_task arguments: " + err.Error()
	}
	id, err := a.tasks.CreateTask(ctx, sessionID, args.Description, args.Dependencies)
	if err != nil {
		return "Error: " + err.Error()
	}
	return fmt.Sprintf("Task created (id: %s)", id)
}

func (a *Agent) handleDAGGetStatus(ctx context.Context, sessionID string) string {
	if a.tasks == nil {
		return "Error: task store is not configured"
	}
	tasks, _, err := a.tasks.GetDAG(ctx, sessionID)
	if err != nil {
		return "Error: " + err.Error()
	}
	type taskView struct {
		ID          string `json:"id"`
		Description string `json:"description"`
		Status      string `json:"status"`
	}
	views := make([]taskView, len(tasks))
	for i, t := range tasks {
		views[i] = taskView{ID: t.ID, Description: t.Description, Status: string(t.Status)}
	}
	b, err := json.Marshal(views)
	if err != nil {
		return "Error: " + err.Error()
	}
	return string(b)
}

func (a *Agent) handleDAGExecute(ctx context.Context, runID, sessionID string, emit func(core.Event)) string {
	if a.dagRunner == nil {
		return "Error: DAG executor is not configured"
	}
	completed, failed := 0, 0
	for ev := range a.dagRunner.Execute(ctx, sessionID) {
		ev.RunID = runID
		emit(ev)
		if ev.Kind == core.EventTaskCompleted {
			completed++
		} else if ev.Kind == core.EventTaskFailed {
			failed++
		}
	}
	return fmt.Sprintf("DAG execution finished: %d completed, %d failed", completed, failed)
}
