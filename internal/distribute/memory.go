package distribute

import (
	"context"
	"sync"

	"github.com/curatehub/curatehub/internal/model"
)

// Memory records deliveries for inspection in tests. An optional Fail
// function can script per-call errors.
type Memory struct {
	mu         sync.Mutex
	deliveries []model.PipelineContent
	Fail       func(c model.PipelineContent) error
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Distribute(_ context.Context, _ map[string]any, c model.PipelineContent) error {
	if m.Fail != nil {
		if err := m.Fail(c); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries = append(m.deliveries, c)
	return nil
}

// Deliveries returns a copy of everything delivered so far.
func (m *Memory) Deliveries() []model.PipelineContent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.PipelineContent, len(m.deliveries))
	copy(out, m.deliveries)
	return out
}
