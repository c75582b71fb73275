package ml

import "sync"

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu       sync.Mutex
	accuracy float64
	features int
	samples  int
	calls    int
}

func (m *MockMetrics) TrainingAccuracySet(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accuracy = v
	m.calls++
}

func (m *MockMetrics) FeaturesSet(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.features = n
}

func (m *MockMetrics) TrainingSamplesSet(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = n
}
