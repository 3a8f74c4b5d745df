// Copyright 2026 © The Agentrt Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/orbitune/agentrt/pkg/core"
	"github.com/orbitune/agentrt/pkg/dag"
	"github.com/orbitune/agentrt/pkg/llm"
	"github.com/orbitune/agentrt/pkg/longmem"
	"github.com/orbitune/agentrt/pkg/store"
)

func TestHandlePlanTaskEmitsThoughtAndPlan(t *testing.T) {
	a := New("a1", &llm.MockProvider{}, "test-model")
	var got []core.Event
	result := a.handlePlanTask("run-1", `{"thought":"why","steps":["one","two"]}`, func(ev core.Event) { got = append(got, ev) })

	if len(got) != 2 || got[0].Kind != core.EventThought || got[1].Kind != core.EventPlan {
		t.Fatalf("unexpected events: %+v", got)
	}
	if got[0].Text != "why" {
		t.Fatalf("unexpected thought text: %q", got[0].Text)
	}
	if !strings.Contains(result.reply, "one") || !strings.Contains(result.reply, "Proceed") {
		t.Fatalf("unexpected reply: %q", result.reply)
	}
}

func TestHandlePlanTaskInvalidArgumentsReturnsError(t *testing.T) {
	a := New("a1", &llm.MockProvider{}, "test-model")
	result := a.handlePlanTask("run-1", `not json`, func(core.Event) {})
	if !strings.HasPrefix(result.reply, "Error:") {
		t.Fatalf("expected error reply, got %q", result.reply)
	}
}

func TestHandleMemoryRememberWithoutMemoryConfiguredErrors(t *testing.T) {
	a := New("a1", &llm.MockProvider{}, "test-model")
	result := a.handleMemoryRemember(context.Background(), "s1", `{"content":"x"}`)
	if !strings.HasPrefix(result, "Error:") {
		t.Fatalf("expected error, got %q", result)
	}
}

func TestHandleMemoryRecallWithResults(t *testing.T) {
	mem := &fakeLongTermMemory{searchResults: []longmem.Entry{{Content: "fact one"}, {Content: "fact two"}}}
	a := New("a1", &llm.MockProvider{}, "test-model", WithLongTermMemory(mem))
	result := a.handleMemoryRecall(context.Background(), `{"query":"facts"}`)
	if !strings.Contains(result, "fact one") || !strings.Contains(result, "fact two") {
		t.Fatalf("unexpected result: %q", result)
	}
}

func TestHandleDAGCreateTaskAndGetStatus(t *testing.T) {
	repo := store.NewInMemoryTasks()
	a := New("a1", &llm.MockProvider{}, "test-model", WithTaskStore(repo))
	ctx := context.Background()

	created := a.handleDAGCreateTask(ctx, "s1", `{"description":"buy milk"}`)
	if !strings.HasPrefix(created, "Task created (id: ") {
		t.Fatalf("unexpected create result: %q", created)
	}

	status := a.handleDAGGetStatus(ctx, "s1")
	if !strings.Contains(status, "buy milk") || !strings.Contains(status, "pending") {
		t.Fatalf("unexpected status result: %q", status)
	}
}

func TestHandleDAGExecuteForwardsSettlementEvents(t *testing.T) {
	repo := store.NewInMemoryTasks()
	ctx := context.Background()
	_, _ = repo.CreateTask(ctx, "s1", "buy milk", nil)
	executor := dag.New(repo, nil, nil)
	a := New("a1", &llm.MockProvider{}, "test-model", WithTaskStore(repo), WithDAGExecutor(executor))

	var got []core.Event
	result := a.handleDAGExecute(ctx, "run-1", "s1", func(ev core.Event) { got = append(got, ev) })

	if len(got) != 1 || got[0].Kind != core.EventTaskCompleted {
		t.Fatalf("expected one forwarded task_completed event, got %+v", got)
	}
	if !strings.Contains(result, "1 completed") {
		t.Fatalf("unexpected summary: %q", result)
	}
}

func TestHandleDAGExecuteWithoutExecutorErrors(t *testing.T) {
	a := New("a1", &llm.MockProvider{}, "test-model")
	result := a.handleDAGExecute(context.Background(), "run-1", "s1", func(core.Event) {})
	if !strings.HasPrefix(result, "Error:") {
		t.Fatalf("expected error, got %q", result)
	}
}
