// Copyright 2026 © The Agentrt Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import "github.com/orbitune/agentrt/pkg/core"

// Reserved built-in tool-call identifiers (spec.md §3, "tool-call descriptor").
const (
	toolPlanTask       = "plan_task"
	toolMemoryRemember = "memory_remember"
	toolMemoryRecall   = "memory_recall"
	toolDAGCreateTask  = "dag_create_task"
	toolDAGGetStatus   = "dag_get_status"
	toolDAGExecute     = "dag_execute"
)

func planTaskDescriptor() core.ToolDescriptor {
	return core.ToolDescriptor{
		Name:        toolPlanTask,
		Description: "Record a short plan before acting: a rationale and an ordered list of steps.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"thought": map[string]any{"type": "string", "description": "Why this plan is the right next step."},
				"steps":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Ordered plan steps."},
			},
			"required": []string{"thought", "steps"},
		},
	}
}

func memoryRememberDescriptor() core.ToolDescriptor {
	return core.ToolDescriptor{
		Name:        toolMemoryRemember,
		Description: "Save a fact to long-term memory for recall in future sessions.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"content": map[string]any{"type": "string", "description": "The fact to remember."},
				"tags":    map[string]any{"type": "string", "description": "Optional comma-separated tags."},
			},
			"required": []string{"content"},
		},
	}
}

func memoryRecallDescriptor() core.ToolDescriptor {
	return core.ToolDescriptor{
		Name:        toolMemoryRecall,
		Description: "Search long-term memory for entries relevant to a query.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string", "description": "What to search for."},
				"limit": map[string]any{"type": "integer", "description": "Maximum entries to return, default 5."},
			},
			"required": []string{"query"},
		},
	}
}

func dagCreateTaskDescriptor() core.ToolDescriptor {
	return core.ToolDescriptor{
		Name:        toolDAGCreateTask,
		Description: "Add a task to the session's dependency graph.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"description":  map[string]any{"type": "string", "description": "What the task does."},
				"dependencies": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "IDs of tasks this one depends on."},
			},
			"required": []string{"description"},
		},
	}
}

func dagGetStatusDescriptor() core.ToolDescriptor {
	return core.ToolDescriptor{
		Name:        toolDAGGetStatus,
		Description: "Get the current status of every task in the session's dependency graph.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	}
}

func dagExecuteDescriptor() core.ToolDescriptor {
	return core.ToolDescriptor{
		Name:        toolDAGExecute,
		Description: "Run the session's task graph to completion, dispatching ready tasks in dependency order.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	}
}

// isBuiltin reports whether name is a reserved built-in identifier rather
// than a dotted source.action name resolved through the tool registry.
func isBuiltin(name string) bool {
	switch name {
	case toolPlanTask, toolMemoryRemember, toolMemoryRecall, toolDAGCreateTask, toolDAGGetStatus, toolDAGExecute:
		return true
	default:
		return false
	}
}

// toolDescriptors assembles the tool list offered to the model this run:
// plan_task always, memory built-ins iff long-term memory is configured,
// DAG built-ins iff a task store is configured, plus the registry's own.
func (a *Agent) toolDescriptors() []core.ToolDescriptor {
	out := []core.ToolDescriptor{planTaskDescriptor()}
	if a.memory != nil {
		out = append(out, memoryRememberDescriptor(), memoryRecallDescriptor())
	}
	if a.tasks != nil {
		out = append(out, dagCreateTaskDescriptor(), dagGetStatusDescriptor())
		if a.dagRunner != nil {
			out = append(out, dagExecuteDescriptor())
		}
	}
	if a.tools != nil {
		out = append(out, a.tools.GetToolDescriptors()...)
	}
	return out
}
