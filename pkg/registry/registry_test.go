// Copyright 2026 © The Agentrt Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/orbitune/agentrt/pkg/core"
)

type stubSource struct {
	name        string
	tools       []core.ToolDescriptor
	initErr     error
	destroyedN  int
	initialized bool
	executeFn   func(ctx context.Context, toolName string, params map[string]any) (any, error)
}

func (s *stubSource) Name() string { return s.name }
func (s *stubSource) Initialize(ctx context.Context) error {
	if s.initErr != nil {
		return s.initErr
	}
	s.initialized = true
	return nil
}
func (s *stubSource) GetTools() []core.ToolDescriptor { return s.tools }
func (s *stubSource) Execute(ctx context.Context, toolName string, params map[string]any) (any, error) {
	if s.executeFn != nil {
		return s.executeFn(ctx, toolName, params)
	}
	return "executed:" + toolName, nil
}
func (s *stubSource) Destroy(ctx context.Context) error {
	s.destroyedN++
	return nil
}

func TestRegisterSourceAndGetToolDescriptors(t *testing.T) {
	r := New(nil)
	ctx := context.Background()

	src := &stubSource{name: "local-1", tools: []core.ToolDescriptor{{Name: "weather.forecast", Description: "get forecast"}}}
	if err := r.RegisterSource(ctx, src); err != nil {
		t.Fatalf("register: %v", err)
	}
	if !src.initialized {
		t.Fatalf("expected source to be initialized")
	}

	tools := r.GetToolDescriptors()
	if len(tools) != 1 || tools[0].Name != "weather.forecast" {
		t.Fatalf("unexpected tools: %+v", tools)
	}
}

func TestRegisterSourceFailurePropagatesAndDoesNotInstall(t *testing.T) {
	r := New(nil)
	ctx := context.Background()

	src := &stubSource{name: "broken", initErr: errors.New("boom")}
	if err := r.RegisterSource(ctx, src); err == nil {
		t.Fatalf("expected registration error to propagate")
	}
	if len(r.GetToolDescriptors()) != 0 {
		t.Fatalf("expected no tools installed after failed initialize")
	}
}

func TestRegisterSourceReplacesSameNameDestroyingOldFirst(t *testing.T) {
	r := New(nil)
	ctx := context.Background()

	old := &stubSource{name: "local-1", tools: []core.ToolDescriptor{{Name: "old.tool"}}}
	if err := r.RegisterSource(ctx, old); err != nil {
		t.Fatalf("register old: %v", err)
	}

	replacement := &stubSource{name: "local-1", tools: []core.ToolDescriptor{{Name: "new.tool"}}}
	if err := r.RegisterSource(ctx, replacement); err != nil {
		t.Fatalf("register replacement: %v", err)
	}

	if old.destroyedN != 1 {
		t.Fatalf("expected old source destroyed once, got %d", old.destroyedN)
	}
	tools := r.GetToolDescriptors()
	if len(tools) != 1 || tools[0].Name != "new.tool" {
		t.Fatalf("expected only replacement's tools, got %+v", tools)
	}
}

func TestUnregisterSourceRemovesAndDestroys(t *testing.T) {
	r := New(nil)
	ctx := context.Background()

	src := &stubSource{name: "local-1", tools: []core.ToolDescriptor{{Name: "a.b"}}}
	if err := r.RegisterSource(ctx, src); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.UnregisterSource(ctx, "local-1"); err != nil {
		t.Fatalf("unregister: %v", err)
	}
	if src.destroyedN != 1 {
		t.Fatalf("expected destroy called once, got %d", src.destroyedN)
	}
	if len(r.GetToolDescriptors()) != 0 {
		t.Fatalf("expected no tools after unregister")
	}
}

func TestSearchToolsCaseInsensitiveSubstring(t *testing.T) {
	r := New(nil)
	ctx := context.Background()
	src := &stubSource{name: "local-1", tools: []core.ToolDescriptor{
		{Name: "weather.forecast", Description: "Get the weather forecast"},
		{Name: "calendar.create", Description: "Create a calendar event"},
	}}
	if err := r.RegisterSource(ctx, src); err != nil {
		t.Fatalf("register: %v", err)
	}

	results := r.SearchTools("WEATHER")
	if len(results) != 1 || results[0].Name != "weather.forecast" {
		t.Fatalf("unexpected search-by-name results: %+v", results)
	}

	results = r.SearchTools("CALENDAR.CREATE event")
	if len(results) != 0 {
		t.Fatalf("expected no match for a query spanning multiple fields, got %+v", results)
	}

	results = r.SearchTools("event")
	if len(results) != 1 || results[0].Name != "calendar.create" {
		t.Fatalf("unexpected search-by-description results: %+v", results)
	}
}

func TestExecuteActionRoutesToOwningSource(t *testing.T) {
	r := New(nil)
	ctx := context.Background()

	src := &stubSource{name: "local-1", tools: []core.ToolDescriptor{{Name: "weather.forecast"}}}
	if err := r.RegisterSource(ctx, src); err != nil {
		t.Fatalf("register: %v", err)
	}

	result, err := r.ExecuteAction(ctx, "weather.forecast", nil)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result != "executed:weather.forecast" {
		t.Fatalf("unexpected result: %v", result)
	}
}

func TestExecuteActionUnknownToolFails(t *testing.T) {
	r := New(nil)
	if _, err := r.ExecuteAction(context.Background(), "nope.nope", nil); err == nil {
		t.Fatalf("expected ToolNotFound error")
	}
}

func TestToolIndexInvalidatedOnUnregister(t *testing.T) {
	r := New(nil)
	ctx := context.Background()

	src := &stubSource{name: "local-1", tools: []core.ToolDescriptor{{Name: "a.b"}}}
	if err := r.RegisterSource(ctx, src); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := r.ExecuteAction(ctx, "a.b", nil); err != nil {
		t.Fatalf("expected execute to succeed and warm the cache: %v", err)
	}

	if err := r.UnregisterSource(ctx, "local-1"); err != nil {
		t.Fatalf("unregister: %v", err)
	}
	if _, err := r.ExecuteAction(ctx, "a.b", nil); err == nil {
		t.Fatalf("expected stale cached tool to fail after unregister")
	}
}
