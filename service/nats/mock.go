package nats

import (
	"context"
	"sync"
)

// MockPublisher keeps published waves in memory so tests can inspect what
// the feed relayed.
type MockPublisher struct {
	mu              sync.RWMutex
	publishedEvents []*WaveEvent
	publishError    error
	closed          bool
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		publishedEvents: make([]*WaveEvent, 0),
	}
}

func (m *MockPublisher) PublishWave(ctx context.Context, event *WaveEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishError != nil {
		return m.publishError
	}

	m.publishedEvents = append(m.publishedEvents, event)
	return nil
}

func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// GetPublishedEvents returns a copy of the events published so far.
func (m *MockPublisher) GetPublishedEvents() []*WaveEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]*WaveEvent, len(m.publishedEvents))
	copy(events, m.publishedEvents)
	return events
}

func (m *MockPublisher) GetPublishedEventCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.publishedEvents)
}

// SetPublishError makes every later PublishWave fail with err.
func (m *MockPublisher) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishError = err
}

func (m *MockPublisher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishedEvents = make([]*WaveEvent, 0)
	m.publishError = nil
	m.closed = false
}

func (m *MockPublisher) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
