// Package testutils holds test doubles shared by the gateway and command
// test suites.
package testutils

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"

	"github.com/papercomputeco/chatrelay/pkg/backend"
)

// MockBackend replays scripted chunks for every streamed invocation and
// returns Body for non-streamed ones. Calls may arrive from handler
// goroutines, so the call counter is guarded.
type MockBackend struct {
	Chunks  []string
	TailErr error // returned after the last chunk instead of io.EOF
	Body    []byte
	OpenErr error // returned by InvokeStream and Invoke

	// Hang makes streams block after the last chunk until their context
	// ends, like a backend that has gone quiet mid-answer.
	Hang bool

	mu       sync.Mutex
	calls    int
	lastBody []byte
	streams  []*mockStream
}

var _ backend.Backend = (*MockBackend)(nil)

func (m *MockBackend) InvokeStream(_ context.Context, _ string, body []byte) (backend.ChunkStream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastBody = body
	if m.OpenErr != nil {
		return nil, m.OpenErr
	}
	st := &mockStream{chunks: append([]string(nil), m.Chunks...), tailErr: m.TailErr, hang: m.Hang}
	m.streams = append(m.streams, st)
	return st, nil
}

func (m *MockBackend) Invoke(_ context.Context, _ string, body []byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastBody = body
	if m.OpenErr != nil {
		return nil, m.OpenErr
	}
	return m.Body, nil
}

// Calls returns the number of invocations so far.
func (m *MockBackend) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastBody returns the encoded body of the most recent invocation.
func (m *MockBackend) LastBody() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastBody
}

// StreamsClosed reports whether every stream opened so far was closed.
func (m *MockBackend) StreamsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, st := range m.streams {
		if !st.closed.Load() {
			return false
		}
	}
	return true
}

type mockStream struct {
	chunks  []string
	tailErr error
	hang    bool
	closed  atomic.Bool
}

func (s *mockStream) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.chunks) == 0 {
		if s.hang {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		if s.tailErr != nil {
			return nil, s.tailErr
		}
		return nil, io.EOF
	}
	next := s.chunks[0]
	s.chunks = s.chunks[1:]
	return []byte(next), nil
}

func (s *mockStream) Close() error {
	s.closed.Store(true)
	return nil
}

// ClaudeDelta builds a Messages API content_block_delta event.
func ClaudeDelta(text string) string {
	b, _ := json.Marshal(map[string]any{
		"type":  "content_block_delta",
		"index": 0,
		"delta": map[string]string{"type": "text_delta", "text": text},
	})
	return string(b)
}
