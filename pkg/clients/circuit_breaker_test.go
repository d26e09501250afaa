package clients

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var errUpstream = errors.New("upstream failed")

func fail(context.Context) error { return errUpstream }
func ok(context.Context) error   { return nil }

func TestCircuitBreaker_StartsInClosedState(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())

	if cb.State() != StateClosed {
		t.Fatalf("expected circuit breaker to start in CLOSED state, got %s", cb.State())
	}
}

func TestCircuitBreaker_DoesNotTripBelowFailureThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "below-threshold",
		MinRequests:  10,
		FailureRatio: 0.5,
		Timeout:      100 * time.Millisecond,
	})

	// 4 failures + 6 successes = 40%
	for i := 0; i < 4; i++ {
		_ = cb.Call(context.Background(), fail)
	}
	for i := 0; i < 6; i++ {
		_ = cb.Call(context.Background(), ok)
	}

	if cb.State() != StateClosed {
		t.Fatalf("expected CLOSED below failure threshold, got %s", cb.State())
	}
}

func TestCircuitBreaker_TripsAndRejects(t *testing.T) {
	var transitions []string
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "trip",
		MinRequests:  3,
		FailureRatio: 0.5,
		Timeout:      time.Second,
		OnStateChange: func(_ string, _, to CircuitBreakerState) {
			transitions = append(transitions, to.String())
		},
	})

	for i := 0; i < 3; i++ {
		_ = cb.Call(context.Background(), fail)
	}
	if !cb.IsOpen() {
		t.Fatalf("expected OPEN, got %s", cb.State())
	}
	if len(transitions) == 0 || transitions[0] != "open" {
		t.Fatalf("expected open transition, got %v", transitions)
	}

	var called int32
	err := cb.Call(context.Background(), func(context.Context) error {
		atomic.AddInt32(&called, 1)
		return nil
	})
	if !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen, got %v", err)
	}
	if called != 0 {
		t.Fatal("guarded function must not run while open")
	}
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "half-open",
		MinRequests:  3,
		FailureRatio: 0.5,
		Timeout:      50 * time.Millisecond,
	})
	for i := 0; i < 3; i++ {
		_ = cb.Call(context.Background(), fail)
	}

	time.Sleep(60 * time.Millisecond)

	if err := cb.Call(context.Background(), ok); err != nil {
		t.Fatalf("expected probe to succeed, got %v", err)
	}
	if cb.State() != StateClosed {
		t.Fatalf("expected CLOSED after successful probe, got %s", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "half-open-fail",
		MinRequests:  3,
		FailureRatio: 0.5,
		Timeout:      50 * time.Millisecond,
	})
	for i := 0; i < 3; i++ {
		_ = cb.Call(context.Background(), fail)
	}
	time.Sleep(60 * time.Millisecond)
	_ = cb.Call(context.Background(), fail)

	if cb.State() != StateOpen {
		t.Fatalf("expected OPEN after failed probe, got %s", cb.State())
	}
}

func TestCircuitBreaker_CallerCancellationIsNotAFailure(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "cancel",
		MinRequests:  2,
		FailureRatio: 0.5,
		Timeout:      time.Second,
	})
	for i := 0; i < 5; i++ {
		_ = cb.Call(context.Background(), func(context.Context) error { return context.Canceled })
	}
	if cb.State() != StateClosed {
		t.Fatalf("cancellations must not trip the breaker, got %s", cb.State())
	}
}

func TestCircuitBreaker_ExecuteReturnsValue(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())

	result, err := cb.Execute(context.Background(), func(context.Context) (any, error) {
		return "payload", nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result != "payload" {
		t.Fatalf("expected payload, got %v", result)
	}
	if cb.Name() != "default" {
		t.Fatalf("unexpected name %s", cb.Name())
	}
}

func TestBreakerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBreakerMetrics(reg)
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:          "llm",
		MinRequests:   2,
		FailureRatio:  0.5,
		Timeout:       time.Second,
		OnStateChange: m.Callback(),
	})
	m.Init(cb)

	for i := 0; i < 2; i++ {
		_ = cb.Call(context.Background(), fail)
	}

	expected := `
# HELP circuit_breaker_state Current state of circuit breaker (0=closed, 1=half-open, 2=open)
# TYPE circuit_breaker_state gauge
circuit_breaker_state{name="llm"} 2
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "circuit_breaker_state"); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(m.transitions.WithLabelValues("llm", "closed", "open")); got != 1 {
		t.Fatalf("expected one closed->open transition, got %v", got)
	}
}
