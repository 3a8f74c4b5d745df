// Copyright 2026 © The Agentrt Authors
// SPDX-License-Identifier: Apache-2.0

package dag

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/orbitune/agentrt/pkg/core"
	"github.com/orbitune/agentrt/pkg/store"
)

func drain(t *testing.T, events <-chan core.Event) []core.Event {
	t.Helper()
	var out []core.Event
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-deadline:
			t.Fatalf("timed out draining events")
		}
	}
}

func TestDiamondDAGCompletesInThreeRounds(t *testing.T) {
	repo := store.NewInMemoryTasks()
	ctx := context.Background()

	a, _ := repo.CreateTask(ctx, "s1", "A", nil)
	b, _ := repo.CreateTask(ctx, "s1", "B", []string{a})
	c, _ := repo.CreateTask(ctx, "s1", "C", []string{a})
	d, _ := repo.CreateTask(ctx, "s1", "D", []string{b, c})

	ex := New(repo, nil, nil)
	events := drain(t, ex.Execute(ctx, "s1"))

	if len(events) != 4 {
		t.Fatalf("expected 4 settlement events, got %d: %+v", len(events), events)
	}
	if events[0].TaskID != a || events[0].Kind != core.EventTaskCompleted {
		t.Fatalf("expected A to complete first, got %+v", events[0])
	}
	middleIDs := map[string]bool{events[1].TaskID: true, events[2].TaskID: true}
	if !middleIDs[b] || !middleIDs[c] {
		t.Fatalf("expected B and C to complete in the second round, got %+v", events[1:3])
	}
	if events[3].TaskID != d || events[3].Kind != core.EventTaskCompleted {
		t.Fatalf("expected D to complete last, got %+v", events[3])
	}

	task, ok, err := repo.GetTask(ctx, d)
	if err != nil || !ok || task.Status != store.TaskCompleted {
		t.Fatalf("expected D persisted completed, got %+v ok=%v err=%v", task, ok, err)
	}
}

func TestFailedTaskBlocksItsDependentsButNotSiblings(t *testing.T) {
	repo := store.NewInMemoryTasks()
	ctx := context.Background()

	root, _ := repo.CreateTask(ctx, "s1", "not json", nil)
	failing, _ := repo.CreateTask(ctx, "s1", `{"tool": "will.fail", "params": {}}`, nil)
	dependent, _ := repo.CreateTask(ctx, "s1", "depends on failing", []string{failing})

	registry := &fakeRegistry{err: fmt.Errorf("boom")}
	ex := New(repo, registry, nil)
	events := drain(t, ex.Execute(ctx, "s1"))

	if len(events) != 2 {
		t.Fatalf("expected 2 settlement events (root, failing), got %+v", events)
	}

	failedTask, ok, err := repo.GetTask(ctx, failing)
	if err != nil || !ok || failedTask.Status != store.TaskFailed || failedTask.Error == "" {
		t.Fatalf("expected failing task marked failed with error, got %+v", failedTask)
	}
	rootTask, ok, err := repo.GetTask(ctx, root)
	if err != nil || !ok || rootTask.Status != store.TaskCompleted {
		t.Fatalf("expected sibling root task still completed, got %+v", rootTask)
	}
	dependentTask, ok, err := repo.GetTask(ctx, dependent)
	if err != nil || !ok || dependentTask.Status != store.TaskPending {
		t.Fatalf("expected dependent to remain pending forever, got %+v", dependentTask)
	}
}

func TestTaskDispatchesThroughRegistryWhenDescriptionIsToolJSON(t *testing.T) {
	repo := store.NewInMemoryTasks()
	ctx := context.Background()

	spec, _ := json.Marshal(toolTask{Tool: "weather.forecast", Params: map[string]any{"city": "denver"}})
	id, _ := repo.CreateTask(ctx, "s1", string(spec), nil)

	registry := &fakeRegistry{result: "sunny"}
	ex := New(repo, registry, nil)
	events := drain(t, ex.Execute(ctx, "s1"))

	if len(events) != 1 || events[0].TaskID != id || events[0].TaskResult != "sunny" {
		t.Fatalf("unexpected event: %+v", events)
	}
	if registry.calledTool != "weather.forecast" {
		t.Fatalf("expected registry called with weather.forecast, got %q", registry.calledTool)
	}
}

func TestPlainDescriptionBecomesNotedTask(t *testing.T) {
	repo := store.NewInMemoryTasks()
	ctx := context.Background()
	id, _ := repo.CreateTask(ctx, "s1", "buy milk", nil)

	ex := New(repo, nil, nil)
	events := drain(t, ex.Execute(ctx, "s1"))

	if len(events) != 1 || events[0].TaskResult != "Task noted: buy milk" {
		t.Fatalf("unexpected event: %+v", events)
	}
	_ = id
}

func TestEmptyGraphTerminatesImmediately(t *testing.T) {
	repo := store.NewInMemoryTasks()
	ex := New(repo, nil, nil)
	events := drain(t, ex.Execute(context.Background(), "empty-session"))
	if len(events) != 0 {
		t.Fatalf("expected no events for an empty graph, got %+v", events)
	}
}

type fakeRegistry struct {
	result     any
	err        error
	calledTool string
}

func (f *fakeRegistry) ExecuteAction(ctx context.Context, toolName string, params map[string]any) (any, error) {
	f.calledTool = toolName
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}
