package llm

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

var errMockExhausted = errors.New("mock provider has no queued responses")

// MockResponse is one scripted reply. A non-nil Err is returned instead of
// a response.
type MockResponse struct {
	Content    json.RawMessage
	Usage      Usage
	StopReason StopReason
	Err        error
}

// MockProvider replays scripted responses in order and records every
// request. Content is returned as scripted, without schema checks.
type MockProvider struct {
	mu    sync.Mutex
	queue []MockResponse
	next  int
	Calls []Request
}

// NewMockProvider creates a MockProvider that replays responses.
func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{queue: responses}
}

func (m *MockProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	if m.next >= len(m.queue) {
		m.mu.Unlock()
		return nil, &Error{Provider: "mock", Kind: KindUnavailable, Err: errMockExhausted}
	}
	r := m.queue[m.next]
	m.next++
	m.mu.Unlock()

	if r.Err != nil {
		return nil, r.Err
	}
	stop := r.StopReason
	if stop == "" {
		stop = StopEnd
	}
	return &Response{Content: r.Content, Usage: r.Usage, Model: "mock", StopReason: stop}, nil
}

func (m *MockProvider) ModelID() string { return "mock" }

// AddResponse queues another scripted reply.
func (m *MockProvider) AddResponse(r MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, r)
}

// CallCount returns how many requests have been made.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
