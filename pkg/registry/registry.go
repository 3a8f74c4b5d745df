// Copyright 2026 © The Agentrt Authors
// SPDX-License-Identifier: Apache-2.0

// Package registry aggregates skill sources (local filesystem, remote MCP)
// into a single tool surface the agent loop consumes: descriptor union,
// substring search, and toolName-routed execution.
package registry

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/orbitune/agentrt/pkg/core"
	"github.com/orbitune/agentrt/pkg/errors"
)

// Registry owns the set of installed skill sources.
type Registry struct {
	logger *slog.Logger

	mu      sync.RWMutex
	sources map[string]core.SkillSource
	// toolIndex caches toolName -> source name; invalidated on any
	// register/unregister rather than kept eagerly consistent.
	toolIndex map[string]string
}

// New creates an empty Registry.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger:  logger,
		sources: make(map[string]core.SkillSource),
	}
}

// RegisterSource installs src. If a source with the same name is already
// installed it is destroyed first. src.Initialize is called before
// installation is visible; on failure the error is propagated and nothing
// is installed, so GetToolDescriptors never returns partial state from a
// failed install.
func (r *Registry) RegisterSource(ctx context.Context, src core.SkillSource) error {
	name := src.Name()

	r.mu.Lock()
	existing, ok := r.sources[name]
	r.mu.Unlock()
	if ok {
		if err := existing.Destroy(ctx); err != nil {
			r.logger.Warn("failed to destroy existing skill source before replacement", "source", name, "error", err)
		}
	}

	if err := src.Initialize(ctx); err != nil {
		return errors.New(errors.CodeConfig, "skill source initialize failed", err).WithContext("source", name)
	}

	r.mu.Lock()
	r.sources[name] = src
	r.toolIndex = nil
	r.mu.Unlock()
	return nil
}

// UnregisterSource destroys and removes a source by name. A missing name
// is a no-op.
func (r *Registry) UnregisterSource(ctx context.Context, name string) error {
	r.mu.Lock()
	src, ok := r.sources[name]
	if ok {
		delete(r.sources, name)
		r.toolIndex = nil
	}
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return src.Destroy(ctx)
}

// GetToolDescriptors returns the union of every installed source's tools.
// A source is skipped (logged, not failed) if listing its tools panics
// or the source reports itself unavailable via an empty slice.
func (r *Registry) GetToolDescriptors() []core.ToolDescriptor {
	r.mu.RLock()
	sources := make([]core.SkillSource, 0, len(r.sources))
	for _, s := range r.sources {
		sources = append(sources, s)
	}
	r.mu.RUnlock()

	var out []core.ToolDescriptor
	for _, s := range sources {
		out = append(out, r.safeGetTools(s)...)
	}
	return out
}

func (r *Registry) safeGetTools(s core.SkillSource) (tools []core.ToolDescriptor) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("skill source panicked listing tools", "source", s.Name(), "panic", rec)
			tools = nil
		}
	}()
	return s.GetTools()
}

// SearchTools returns tools whose name or description contains query,
// case-insensitively.
func (r *Registry) SearchTools(query string) []core.ToolDescriptor {
	q := strings.ToLower(query)
	var out []core.ToolDescriptor
	for _, t := range r.GetToolDescriptors() {
		if strings.Contains(strings.ToLower(t.Name), q) || strings.Contains(strings.ToLower(t.Description), q) {
			out = append(out, t)
		}
	}
	return out
}

// ExecuteAction locates the source currently advertising toolName and
// invokes it. Fails with CodeToolNotFound if no installed source
// advertises the name.
func (r *Registry) ExecuteAction(ctx context.Context, toolName string, params map[string]any) (any, error) {
	src, err := r.resolveSource(toolName)
	if err != nil {
		return nil, err
	}
	return src.Execute(ctx, toolName, params)
}

// resolveSource consults the toolName->source cache, rebuilding it on a
// miss (covers both a genuinely unknown tool and a stale/invalidated
// cache) before failing.
func (r *Registry) resolveSource(toolName string) (core.SkillSource, error) {
	r.mu.RLock()
	sourceName, cached := r.toolIndex[toolName]
	r.mu.RUnlock()
	if cached {
		r.mu.RLock()
		src, ok := r.sources[sourceName]
		r.mu.RUnlock()
		if ok {
			return src, nil
		}
	}

	r.rebuildToolIndex()

	r.mu.RLock()
	defer r.mu.RUnlock()
	sourceName, ok := r.toolIndex[toolName]
	if !ok {
		return nil, errors.New(errors.CodeToolNotFound, "tool not found in any installed skill source", nil).WithContext("tool", toolName)
	}
	src, ok := r.sources[sourceName]
	if !ok {
		return nil, errors.New(errors.CodeToolNotFound, "tool not found in any installed skill source", nil).WithContext("tool", toolName)
	}
	return src, nil
}

func (r *Registry) rebuildToolIndex() {
	r.mu.RLock()
	sources := make(map[string]core.SkillSource, len(r.sources))
	for name, s := range r.sources {
		sources[name] = s
	}
	r.mu.RUnlock()

	index := make(map[string]string)
	for name, s := range sources {
		for _, t := range r.safeGetTools(s) {
			index[t.Name] = name
		}
	}

	r.mu.Lock()
	r.toolIndex = index
	r.mu.Unlock()
}
