package publish

import (
	"context"
	"sync"
)

// MockPublisher records batches instead of sending them, for tests that
// check what a poll would publish.
type MockPublisher struct {
	mu      sync.Mutex
	batches [][]Message
	closed  bool

	// Err, when set, is returned by every Publish call
	Err error
}

// Publish records the batch.
func (m *MockPublisher) Publish(_ context.Context, msgs []Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	batch := make([]Message, len(msgs))
	copy(batch, msgs)
	m.batches = append(m.batches, batch)
	return nil
}

// Close marks the publisher closed.
func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Batches returns every recorded batch in order.
func (m *MockPublisher) Batches() [][]Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]Message, len(m.batches))
	copy(out, m.batches)
	return out
}

// Closed reports whether Close was called.
func (m *MockPublisher) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
