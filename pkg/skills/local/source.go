// Copyright 2026 © The Agentrt Authors
// SPDX-License-Identifier: Apache-2.0

package local

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/orbitune/agentrt/pkg/core"
	"github.com/orbitune/agentrt/pkg/errors"
)

// resourceSubdirs are the sub-resource directories a skill may ship
// alongside its SKILL.md, loaded on demand rather than inlined into the
// tool description up front.
var resourceSubdirs = []string{"scripts", "references", "assets"}

// Source is a SkillSource backed by a directory of SKILL.md manifests. Each
// manifest's actions are published as tools named "<skill.name>.<action>",
// dispatched at Execute time to whatever handler RegisterHandlers bound.
type Source struct {
	name   string
	dir    string
	logger *slog.Logger

	skills map[string]core.Skill // by manifest name
	tools  map[string]boundTool  // by "<skill>.<action>"
}

type boundTool struct {
	skillName   string
	actionName  string
	descriptor  core.ToolDescriptor
	requiredSet map[string]struct{}

	// handler, when set, is called directly instead of going through
	// s.skills[skillName].Actions[actionName] — used by the built-in
	// resource-loading tools, which aren't declared manifest actions.
	handler core.ActionHandler
}

// New creates a local Source rooted at dir. Name must be unique among the
// registry's installed sources.
func New(name, dir string, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{name: name, dir: dir, logger: logger}
}

func (s *Source) Name() string { return s.name }

// Initialize parses every SKILL.md manifest under dir and binds each
// declared action to a handler via RegisterHandlers, falling back to an
// always-failing placeholder when no handler was registered.
func (s *Source) Initialize(ctx context.Context) error {
	manifests, err := LoadDir(s.dir)
	if err != nil {
		return errors.New(errors.CodeConfig, fmt.Sprintf("load skill manifests from %s", s.dir), err)
	}

	skills := make(map[string]core.Skill, len(manifests))
	tools := make(map[string]boundTool)

	for _, m := range manifests {
		skill := core.Skill{
			Name:        m.Name,
			Version:     m.Version,
			Description: m.Description,
			Author:      m.Author,
			Actions:     make(map[string]core.SkillAction, len(m.Actions)),
		}

		for _, a := range m.Actions {
			handler, ok := lookupHandler(m.Name, a.Name)
			if !ok {
				handler = unboundActionPlaceholder(m.Name, a.Name)
			}

			properties := make(map[string]any, len(a.Parameters))
			var required []string
			requiredSet := make(map[string]struct{})
			for _, p := range a.Parameters {
				properties[p.Name] = map[string]any{
					"type":        p.Type,
					"description": p.Description,
				}
				if p.Required {
					required = append(required, p.Name)
					requiredSet[p.Name] = struct{}{}
				}
			}
			params := map[string]any{
				"type":       "object",
				"properties": properties,
				"required":   required,
			}

			action := core.SkillAction{
				Name:        a.Name,
				Description: a.Description,
				Parameters:  params,
				Required:    required,
				Handler:     handler,
			}
			skill.Actions[a.Name] = action

			toolName := m.Name + "." + a.Name
			tools[toolName] = boundTool{
				skillName:  m.Name,
				actionName: a.Name,
				descriptor: core.ToolDescriptor{
					Name:        toolName,
					Description: a.Description,
					Parameters:  params,
				},
				requiredSet: requiredSet,
			}
		}

		skills[m.Name] = skill

		for name, t := range resourceTools(m.Name, m.Dir) {
			tools[name] = t
		}
	}

	s.skills = skills
	s.tools = tools
	s.logger.Info("local skill source initialized", "source", s.name, "skills", len(skills), "tools", len(tools))
	return nil
}

func (s *Source) GetTools() []core.ToolDescriptor {
	out := make([]core.ToolDescriptor, 0, len(s.tools))
	for _, t := range s.tools {
		out = append(out, t.descriptor)
	}
	return out
}

func (s *Source) Execute(ctx context.Context, toolName string, params map[string]any) (any, error) {
	t, ok := s.tools[toolName]
	if !ok {
		return nil, errors.New(errors.CodeToolNotFound, fmt.Sprintf("unknown tool %q", toolName), nil)
	}
	if t.handler != nil {
		return t.handler(ctx, params)
	}
	action := s.skills[t.skillName].Actions[t.actionName]
	return action.Handler(ctx, params)
}

func (s *Source) Destroy(ctx context.Context) error {
	s.skills = nil
	s.tools = nil
	return nil
}

// resourceTools returns the two progressive-disclosure built-ins every local
// skill gets for free: "<skill>.list_resources" enumerates files under the
// skill's scripts/references/assets subdirectories, and
// "<skill>.load_resource" reads one of them by relative path, so a large
// skill body doesn't have to be inlined into the tool description up front.
func resourceTools(skillName, dir string) map[string]boundTool {
	listName := skillName + ".list_resources"
	loadName := skillName + ".load_resource"

	return map[string]boundTool{
		listName: {
			skillName:  skillName,
			actionName: "list_resources",
			descriptor: core.ToolDescriptor{
				Name:        listName,
				Description: fmt.Sprintf("List available scripts/references/assets for the %q skill.", skillName),
				Parameters: map[string]any{
					"type":       "object",
					"properties": map[string]any{},
					"required":   []string{},
				},
			},
			handler: func(ctx context.Context, params map[string]any) (any, error) {
				return listResources(dir)
			},
		},
		loadName: {
			skillName:  skillName,
			actionName: "load_resource",
			descriptor: core.ToolDescriptor{
				Name:        loadName,
				Description: fmt.Sprintf("Load one resource file by relative path from the %q skill's directory.", skillName),
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"resource": map[string]any{
							"type":        "string",
							"description": "Path to the resource file, relative to the skill directory (e.g. scripts/setup.sh)",
						},
					},
					"required": []string{"resource"},
				},
			},
			handler: func(ctx context.Context, params map[string]any) (any, error) {
				resource, _ := params["resource"].(string)
				return loadResource(dir, resource)
			},
		},
	}
}

// listResources enumerates non-directory entries under the skill's
// scripts/, references/, and assets/ subdirectories. A missing subdirectory
// is skipped, not an error.
func listResources(dir string) ([]string, error) {
	var out []string
	for _, subdir := range resourceSubdirs {
		entries, err := os.ReadDir(filepath.Join(dir, subdir))
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				out = append(out, filepath.Join(subdir, entry.Name()))
			}
		}
	}
	return out, nil
}

// loadResource reads one file by path relative to the skill directory,
// rejecting anything that would escape it.
func loadResource(dir, resource string) (string, error) {
	if resource == "" {
		return "", errors.New(errors.CodeInvalidInput, "resource path is required", nil)
	}

	clean := filepath.Clean(resource)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", errors.New(errors.CodeInvalidInput, fmt.Sprintf("invalid resource path: %s", resource), nil)
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	absPath, err := filepath.Abs(filepath.Join(dir, clean))
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(absPath, absDir) {
		return "", errors.New(errors.CodeInvalidInput, "resource path outside skill directory", nil)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return "", errors.New(errors.CodeToolFailure, fmt.Sprintf("load resource %s", resource), err)
	}
	return string(data), nil
}

func unboundActionPlaceholder(skillName, actionName string) core.ActionHandler {
	return func(ctx context.Context, params map[string]any) (any, error) {
		return nil, errors.New(errors.CodeToolFailure,
			fmt.Sprintf("skill %q action %q has no bound implementation", skillName, actionName), nil)
	}
}
