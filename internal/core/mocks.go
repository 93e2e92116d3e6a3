package core

import (
	"context"
	"sync"
	"time"
)

// RecordedRequest is one call captured by MockMetricsCollector.
type RecordedRequest struct {
	Method   string
	Endpoint string
	Status   string
	Duration time.Duration
}

// MockMetricsCollector implements MetricsCollector for tests by recording
// every call.
type MockMetricsCollector struct {
	mu    sync.Mutex
	calls []RecordedRequest
}

func (m *MockMetricsCollector) RecordRequest(method, endpoint, status string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, RecordedRequest{Method: method, Endpoint: endpoint, Status: status, Duration: duration})
}

// Calls returns a copy of the recorded requests.
func (m *MockMetricsCollector) Calls() []RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RecordedRequest, len(m.calls))
	copy(out, m.calls)
	return out
}

// MockHealthProbe implements HealthProbe for tests. Delay simulates a slow
// dependency; the probe honours context cancellation while waiting.
type MockHealthProbe struct {
	ProbeName string
	Err       error
	Delay     time.Duration
}

func (m *MockHealthProbe) Name() string { return m.ProbeName }

func (m *MockHealthProbe) Check(ctx context.Context) error {
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.Err
}
