package relay

import "context"

// MockNotifier records relayed events for test assertions.
type MockNotifier struct {
	// NotifyConfirmedFunc allows customizing relay behavior
	NotifyConfirmedFunc func(ctx context.Context, event ConfirmedEvent) error

	// Events stores every relayed event in order
	Events []ConfirmedEvent
}

// NewMockNotifier creates a new mock notifier.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{Events: []ConfirmedEvent{}}
}

// NotifyConfirmed records the event, delegating when a custom func is set.
func (m *MockNotifier) NotifyConfirmed(ctx context.Context, event ConfirmedEvent) error {
	if m.NotifyConfirmedFunc != nil {
		return m.NotifyConfirmedFunc(ctx, event)
	}
	m.Events = append(m.Events, event)
	return nil
}
