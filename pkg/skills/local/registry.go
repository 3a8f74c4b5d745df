// Copyright 2026 © The Agentrt Authors
// SPDX-License-Identifier: Apache-2.0

package local

import (
	"sync"

	"github.com/orbitune/agentrt/pkg/core"
)

// handlerRegistry is the Go-native stand-in for the spec's "companion
// implementation module": since Go has no runtime equivalent of loading an
// arbitrary index.ts/index.js and inspecting its exports, a companion Go
// package binds its handlers ahead of time, from an init() function, by
// calling RegisterHandlers with the skill's manifest name. A manifest
// action with no registered handler gets a placeholder that always fails,
// matching the spec's third binding rule.
var handlerRegistry = struct {
	mu       sync.RWMutex
	handlers map[string]map[string]core.ActionHandler
}{handlers: make(map[string]map[string]core.ActionHandler)}

// RegisterHandlers binds a companion module's action handlers to a skill
// name. Call this from an init() function in the Go package that
// implements a given skill directory's actions.
func RegisterHandlers(skillName string, handlers map[string]core.ActionHandler) {
	handlerRegistry.mu.Lock()
	defer handlerRegistry.mu.Unlock()
	handlerRegistry.handlers[skillName] = handlers
}

func lookupHandler(skillName, action string) (core.ActionHandler, bool) {
	handlerRegistry.mu.RLock()
	defer handlerRegistry.mu.RUnlock()
	bound, ok := handlerRegistry.handlers[skillName]
	if !ok {
		return nil, false
	}
	h, ok := bound[action]
	return h, ok
}
