// SPDX-License-Identifier: Apache-2.0
// Package resilience provides circuit breaker and timeout patterns for Agentrt.
package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	kerrors "github.com/orbitune/agentrt/pkg/errors"
)

func TestCircuitBreakerClosed(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 3,
		Name:             "test",
	})

	if cb.State() != StateClosed {
		t.Errorf("expected initial state Closed")
	}

	// Successful calls should keep it closed
	for i := 0; i < 5; i++ {
		err := cb.Call(context.Background(), func() error { return nil })
		if err != nil {
			t.Errorf("call %d failed: %v", i, err)
		}
	}

	if cb.State() != StateClosed {
		t.Errorf("expected state to remain Closed after success")
	}
}

func TestCircuitBreakerOpen(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 2,
		Name:             "test",
	})

	// Trigger failures to open the circuit
	for i := 0; i < 2; i++ {
		_ = cb.Call(context.Background(), func() error {
			return errors.New("failure")
		})
	}

	if cb.State() != StateOpen {
		t.Errorf("expected state Open after %d failures", 2)
	}

	// Subsequent calls should be rejected
	err := cb.Call(context.Background(), func() error {
		t.Fatalf("should not execute in open state")
		return nil
	})

	if err == nil {
		t.Errorf("expected error when circuit is open")
	}

	// Error should indicate circuit is open
	if ke, ok := err.(*kerrors.RuntimeError); ok && !ke.Recoverable {
		t.Errorf("expected circuit breaker error to be marked recoverable")
	}
}

func TestCircuitBreakerHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Timeout:          100 * time.Millisecond,
		Name:             "test",
	})

	// Open the circuit
	_ = cb.Call(context.Background(), func() error { return errors.New("fail") })
	if cb.State() != StateOpen {
		t.Fatalf("expected circuit to be open")
	}

	// Wait for timeout to transition to half-open
	time.Sleep(150 * time.Millisecond)
	_ = cb.Call(context.Background(), func() error { return nil })

	if cb.State() != StateHalfOpen {
		t.Errorf("expected state HalfOpen after timeout")
	}

	// Another success should close it
	_ = cb.Call(context.Background(), func() error { return nil })

	if cb.State() != StateClosed {
		t.Errorf("expected state Closed after successes in half-open")
	}
}

func TestCircuitBreakerReset(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		Name:             "test",
	})

	// Open the circuit
	_ = cb.Call(context.Background(), func() error { return errors.New("fail") })

	if cb.State() != StateOpen {
		t.Fatalf("expected circuit to be open")
	}

	// Reset should go back to closed
	cb.Reset()

	if cb.State() != StateClosed {
		t.Errorf("expected state Closed after reset")
	}

	// Calls should succeed
	err := cb.Call(context.Background(), func() error { return nil })
	if err != nil {
		t.Errorf("call failed after reset: %v", err)
	}
}
