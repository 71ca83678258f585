package source

import (
	"context"
	"sync"

	"github.com/curatehub/curatehub/internal/model"
)

// MemoryResponse scripts one Search outcome.
type MemoryResponse struct {
	Result *Result
	Err    error
}

// Memory is an in-memory adapter for tests and local runs. Responses are
// consumed in order; the last one repeats once the script runs out.
type Memory struct {
	mu        sync.Mutex
	responses []MemoryResponse
	calls     []*model.CursorData
}

func NewMemory(responses ...MemoryResponse) *Memory {
	return &Memory{responses: responses}
}

func (m *Memory) Enqueue(res *Result, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, MemoryResponse{Result: res, Err: err})
}

func (m *Memory) Search(_ context.Context, last *model.CursorData, _ SearchOptions) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, last)
	if len(m.responses) == 0 {
		return &Result{}, nil
	}
	next := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	return next.Result, next.Err
}

// Calls returns the cursor passed to each Search invocation.
func (m *Memory) Calls() []*model.CursorData {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.CursorData, len(m.calls))
	copy(out, m.calls)
	return out
}
