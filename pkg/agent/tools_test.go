// Copyright 2026 © The Agentrt Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"testing"

	"github.com/orbitune/agentrt/pkg/core"
	"github.com/orbitune/agentrt/pkg/dag"
	"github.com/orbitune/agentrt/pkg/llm"
	"github.com/orbitune/agentrt/pkg/store"
)

func toolNames(a *Agent) map[string]bool {
	names := make(map[string]bool)
	for _, d := range a.toolDescriptors() {
		names[d.Name] = true
	}
	return names
}

func TestToolDescriptorsAlwaysIncludesPlanTask(t *testing.T) {
	a := New("a1", &llm.MockProvider{}, "test-model")
	names := toolNames(a)
	if !names[toolPlanTask] {
		t.Fatalf("expected plan_task always present, got %+v", names)
	}
	if names[toolMemoryRemember] || names[toolDAGCreateTask] {
		t.Fatalf("expected memory/dag tools absent without configuration, got %+v", names)
	}
}

func TestToolDescriptorsIncludesMemoryToolsWhenConfigured(t *testing.T) {
	a := New("a1", &llm.MockProvider{}, "test-model", WithLongTermMemory(&fakeLongTermMemory{}))
	names := toolNames(a)
	if !names[toolMemoryRemember] || !names[toolMemoryRecall] {
		t.Fatalf("expected memory tools present, got %+v", names)
	}
}

func TestToolDescriptorsIncludesDAGToolsWhenTaskStoreConfigured(t *testing.T) {
	repo := store.NewInMemoryTasks()
	a := New("a1", &llm.MockProvider{}, "test-model", WithTaskStore(repo))
	names := toolNames(a)
	if !names[toolDAGCreateTask] || !names[toolDAGGetStatus] {
		t.Fatalf("expected dag_create_task/dag_get_status present, got %+v", names)
	}
	if names[toolDAGExecute] {
		t.Fatalf("expected dag_execute absent without an executor, got %+v", names)
	}
}

func TestToolDescriptorsIncludesDAGExecuteWhenExecutorConfigured(t *testing.T) {
	repo := store.NewInMemoryTasks()
	executor := dag.New(repo, nil, nil)
	a := New("a1", &llm.MockProvider{}, "test-model", WithTaskStore(repo), WithDAGExecutor(executor))
	names := toolNames(a)
	if !names[toolDAGExecute] {
		t.Fatalf("expected dag_execute present, got %+v", names)
	}
}

func TestToolDescriptorsIncludesRegistryTools(t *testing.T) {
	registry := &fakeToolRegistry{tools: []core.ToolDescriptor{{Name: "weather.forecast"}}}
	a := New("a1", &llm.MockProvider{}, "test-model", WithToolRegistry(registry))
	names := toolNames(a)
	if !names["weather.forecast"] {
		t.Fatalf("expected registry tool present, got %+v", names)
	}
}
