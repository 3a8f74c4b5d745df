// SPDX-License-Identifier: Apache-2.0
// Package resilience provides circuit breaker and timeout patterns for Agentrt.
package resilience

import (
	"context"
	"testing"
	"time"

	kerrors "github.com/orbitune/agentrt/pkg/errors"
)

func TestWithTimeout(t *testing.T) {
	tests := []struct {
		name        string
		duration    time.Duration
		sleepTime   time.Duration
		expectError bool
	}{
		{"fast operation", 1 * time.Second, 10 * time.Millisecond, false},
		{"slow operation", 50 * time.Millisecond, 200 * time.Millisecond, true},
		{"no timeout", 0, 100 * time.Millisecond, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := TimeoutConfig{Duration: tt.duration, ErrorOnTimeout: true}
			err := WithTimeout(context.Background(), config, func() error {
				time.Sleep(tt.sleepTime)
				return nil
			})

			if tt.expectError {
				if err == nil {
					t.Errorf("expected timeout error")
				}
				if ke, ok := err.(*kerrors.RuntimeError); ok {
					if ke.Code != kerrors.CodeTimeout {
						t.Errorf("expected CodeTimeout, got %v", ke.Code)
					}
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			}
		})
	}
}

func TestWithTimeoutResult(t *testing.T) {
	config := TimeoutConfig{Duration: 1 * time.Second}

	value, err := WithTimeoutResult(context.Background(), config, func() (interface{}, error) {
		return "success", nil
	})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if value != "success" {
		t.Errorf("expected 'success', got %v", value)
	}
}

func TestWithTimeoutResultTimeout(t *testing.T) {
	config := TimeoutConfig{Duration: 50 * time.Millisecond}

	value, err := WithTimeoutResult(context.Background(), config, func() (interface{}, error) {
		time.Sleep(200 * time.Millisecond)
		return "success", nil
	})

	if err == nil {
		t.Errorf("expected timeout error")
	}
	if value != nil {
		t.Errorf("expected nil value on timeout")
	}
}
