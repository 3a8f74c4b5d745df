// Copyright 2026 © The Agentrt Authors
// SPDX-License-Identifier: Apache-2.0

package local

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleManifest = `---
name: weather
version: 2.0.0
description: Look up weather information
author: orbitune
---

Weather skill body text.

## Actions

### get_forecast

Return the forecast for a city.

- **参数**: ` + "`city`" + ` (string) - the city name
- ` + "`days`" + ` (number) - how many days to forecast, 可选

### get_alerts

Return active weather alerts for a region.

- ` + "`region`" + ` (string) - the region code
`

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, "SKILL.md")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLoadFileParsesMetadataAndActions(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, filepath.Join(dir, "weather"), sampleManifest)

	m, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}

	if m.Name != "weather" || m.Version != "2.0.0" || m.Author != "orbitune" {
		t.Fatalf("unexpected metadata: %+v", m)
	}
	if len(m.Actions) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(m.Actions))
	}

	forecast := m.Actions[0]
	if forecast.Name != "get_forecast" || forecast.Description != "Return the forecast for a city." {
		t.Fatalf("unexpected forecast action: %+v", forecast)
	}
	if len(forecast.Parameters) != 2 {
		t.Fatalf("expected 2 parameters, got %+v", forecast.Parameters)
	}
	if forecast.Parameters[0].Name != "city" || !forecast.Parameters[0].Required {
		t.Fatalf("expected city required, got %+v", forecast.Parameters[0])
	}
	if forecast.Parameters[1].Name != "days" || forecast.Parameters[1].Required {
		t.Fatalf("expected days optional (可选 marker), got %+v", forecast.Parameters[1])
	}

	alerts := m.Actions[1]
	if alerts.Name != "get_alerts" || len(alerts.Parameters) != 1 || !alerts.Parameters[0].Required {
		t.Fatalf("unexpected alerts action: %+v", alerts)
	}
}

func TestLoadFileDefaultsNameVersionDescription(t *testing.T) {
	dir := t.TempDir()
	skillDir := filepath.Join(dir, "my-skill")
	content := "no frontmatter here\n\n## Actions\n\n### noop\n\ndoes nothing\n"
	path := writeManifest(t, skillDir, content)

	m, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	if m.Name != "my-skill" {
		t.Fatalf("expected name defaulted from dir, got %q", m.Name)
	}
	if m.Version != "1.0.0" {
		t.Fatalf("expected default version 1.0.0, got %q", m.Version)
	}
	if m.Description != "" {
		t.Fatalf("expected empty description, got %q", m.Description)
	}
	if len(m.Actions) != 1 || m.Actions[0].Name != "noop" {
		t.Fatalf("unexpected actions: %+v", m.Actions)
	}
}

func TestLoadDirSkipsDirsWithoutManifest(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, filepath.Join(root, "weather"), sampleManifest)
	if err := os.MkdirAll(filepath.Join(root, "no-manifest"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	manifests, err := LoadDir(root)
	if err != nil {
		t.Fatalf("load dir: %v", err)
	}
	if len(manifests) != 1 || manifests[0].Name != "weather" {
		t.Fatalf("expected only weather manifest, got %+v", manifests)
	}
}
