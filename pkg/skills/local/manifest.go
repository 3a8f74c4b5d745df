// Copyright 2026 © The Agentrt Authors
// SPDX-License-Identifier: Apache-2.0

// Package local implements the local filesystem skill source: discovering
// SKILL.md manifests under configured directories and exposing their
// declared actions as tools.
package local

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// optionalMarker is the localization-neutral token that flags a parameter
// optional; its absence means the parameter is required.
const optionalMarker = "可选"

// Manifest is a parsed SKILL.md: metadata header plus declared actions.
type Manifest struct {
	Name         string
	Version      string
	Description  string
	Author       string
	Dependencies []string
	Actions      []ActionSpec
	Dir          string
}

// ActionSpec is one `### <action_name>` block under `## Actions`.
type ActionSpec struct {
	Name        string
	Description string
	Parameters  []ParamSpec
}

// ParamSpec is one parameter bullet under an action.
type ParamSpec struct {
	Name        string
	Type        string
	Description string
	Required    bool
}

type frontmatter struct {
	Name         string   `yaml:"name"`
	Version      string   `yaml:"version"`
	Description  string   `yaml:"description"`
	Author       string   `yaml:"author"`
	Dependencies []string `yaml:"dependencies"`
}

// LoadDir scans root for immediate subdirectories containing SKILL.md.
func LoadDir(root string) ([]Manifest, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var out []Manifest
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(root, entry.Name(), "SKILL.md")
		if _, err := os.Stat(path); err != nil {
			continue
		}
		m, err := LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		out = append(out, m)
	}
	return out, nil
}

// LoadFile parses a single SKILL.md manifest.
func LoadFile(path string) (Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, err
	}
	dir := filepath.Dir(path)

	fm, body, err := splitFrontmatter(string(raw))
	if err != nil {
		return Manifest{}, err
	}
	var parsed frontmatter
	if err := yaml.Unmarshal([]byte(fm), &parsed); err != nil {
		return Manifest{}, fmt.Errorf("parse frontmatter: %w", err)
	}

	m := Manifest{
		Name:         parsed.Name,
		Version:      parsed.Version,
		Description:  parsed.Description,
		Author:       parsed.Author,
		Dependencies: parsed.Dependencies,
		Dir:          dir,
	}
	if m.Name == "" {
		m.Name = filepath.Base(dir)
	}
	if m.Version == "" {
		m.Version = "1.0.0"
	}

	m.Actions = parseActions(body)
	return m, nil
}

func splitFrontmatter(content string) (string, string, error) {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "---") {
		return "", trimmed, nil
	}
	parts := strings.SplitN(trimmed, "---", 3)
	if len(parts) < 3 {
		return "", "", fmt.Errorf("invalid frontmatter delimiters")
	}
	return strings.TrimSpace(parts[1]), strings.TrimSpace(parts[2]), nil
}

var (
	actionsHeaderPattern = regexp.MustCompile(`(?m)^##\s+Actions\s*$`)
	actionHeaderPattern  = regexp.MustCompile(`^###\s+(\S+)\s*$`)
	paramBulletPattern   = regexp.MustCompile("^-\\s+(?:\\*\\*[^*]+\\*\\*:\\s*)?`([^`]+)`\\s*\\(([^)]+)\\)\\s*-\\s*(.*)$")
)

// parseActions extracts every `### <name>` block under `## Actions`. The
// first non-bullet line of a block is its description; subsequent
// `` - `name` (type) - description `` bullets (optionally prefixed
// `**参数**:`) declare parameters, required unless the description
// contains the "可选" marker.
func parseActions(body string) []ActionSpec {
	loc := actionsHeaderPattern.FindStringIndex(body)
	if loc == nil {
		return nil
	}
	section := body[loc[1]:]

	var actions []ActionSpec
	var current *ActionSpec
	descriptionSet := false

	scanner := bufio.NewScanner(strings.NewReader(section))
	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(strings.TrimSpace(line), "## ") {
			break // next top-level section ends the Actions block
		}

		if m := actionHeaderPattern.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			if current != nil {
				actions = append(actions, *current)
			}
			current = &ActionSpec{Name: m[1]}
			descriptionSet = false
			continue
		}
		if current == nil {
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if pm := paramBulletPattern.FindStringSubmatch(trimmed); pm != nil {
			desc := pm[3]
			current.Parameters = append(current.Parameters, ParamSpec{
				Name:        pm[1],
				Type:        strings.TrimSpace(pm[2]),
				Description: desc,
				Required:    !strings.Contains(desc, optionalMarker),
			})
			continue
		}

		if strings.HasPrefix(trimmed, "-") {
			continue // an unrecognized bullet, ignore
		}

		if !descriptionSet {
			current.Description = trimmed
			descriptionSet = true
		}
	}
	if current != nil {
		actions = append(actions, *current)
	}
	return actions
}
