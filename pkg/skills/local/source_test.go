// Copyright 2026 © The Agentrt Authors
// SPDX-License-Identifier: Apache-2.0

package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/orbitune/agentrt/pkg/core"
)

func TestSourceDispatchesToRegisteredHandler(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir+"/weather", sampleManifest)

	RegisterHandlers("weather", map[string]core.ActionHandler{
		"get_forecast": func(ctx context.Context, params map[string]any) (any, error) {
			return "sunny in " + params["city"].(string), nil
		},
	})

	src := New("local-1", dir, nil)
	ctx := context.Background()
	if err := src.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	tools := src.GetTools()
	if len(tools) != 4 {
		t.Fatalf("expected 2 declared actions plus 2 resource tools, got %d: %+v", len(tools), tools)
	}

	result, err := src.Execute(ctx, "weather.get_forecast", map[string]any{"city": "denver"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result != "sunny in denver" {
		t.Fatalf("unexpected result: %v", result)
	}
}

func TestSourceUnboundActionAlwaysFails(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir+"/weather", sampleManifest)

	src := New("local-2", dir, nil)
	ctx := context.Background()
	if err := src.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	if _, err := src.Execute(ctx, "weather.get_alerts", nil); err == nil {
		t.Fatalf("expected placeholder handler to fail for unbound action")
	}
}

func TestSourceExecuteUnknownToolFails(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir+"/weather", sampleManifest)

	src := New("local-3", dir, nil)
	ctx := context.Background()
	if err := src.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	if _, err := src.Execute(ctx, "weather.unknown", nil); err == nil {
		t.Fatalf("expected error for unknown tool name")
	}
}

func TestSourceLoadsAndListsResources(t *testing.T) {
	dir := t.TempDir()
	skillDir := filepath.Join(dir, "weather")
	writeManifest(t, skillDir, sampleManifest)

	scriptsDir := filepath.Join(skillDir, "scripts")
	if err := os.MkdirAll(scriptsDir, 0o755); err != nil {
		t.Fatalf("mkdir scripts: %v", err)
	}
	if err := os.WriteFile(filepath.Join(scriptsDir, "setup.sh"), []byte("#!/bin/sh\necho hi\n"), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}

	src := New("local-5", dir, nil)
	ctx := context.Background()
	if err := src.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	listed, err := src.Execute(ctx, "weather.list_resources", nil)
	if err != nil {
		t.Fatalf("list_resources: %v", err)
	}
	resources, ok := listed.([]string)
	if !ok || len(resources) != 1 || resources[0] != filepath.Join("scripts", "setup.sh") {
		t.Fatalf("unexpected resource list: %+v", listed)
	}

	loaded, err := src.Execute(ctx, "weather.load_resource", map[string]any{"resource": "scripts/setup.sh"})
	if err != nil {
		t.Fatalf("load_resource: %v", err)
	}
	if loaded != "#!/bin/sh\necho hi\n" {
		t.Fatalf("unexpected resource contents: %q", loaded)
	}

	if _, err := src.Execute(ctx, "weather.load_resource", map[string]any{"resource": "../outside.sh"}); err == nil {
		t.Fatalf("expected traversal outside the skill directory to be rejected")
	}
}

func TestSourceDestroyClearsTools(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir+"/weather", sampleManifest)

	src := New("local-4", dir, nil)
	ctx := context.Background()
	if err := src.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := src.Destroy(ctx); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if len(src.GetTools()) != 0 {
		t.Fatalf("expected no tools after destroy")
	}
}
