package distribute

import (
	"context"
	"fmt"
	"sync"

	"github.com/curatehub/curatehub/internal/model"
)

// Distributor pushes finished content to an external sink. Errors are
// distributor-local: the processor isolates them from sibling distributors.
type Distributor interface {
	Distribute(ctx context.Context, cfg map[string]any, c model.PipelineContent) error
}

// Registry maps distributor plugin names to implementations.
type Registry struct {
	mu           sync.RWMutex
	distributors map[string]Distributor
}

func NewRegistry() *Registry {
	return &Registry{distributors: make(map[string]Distributor)}
}

func (r *Registry) Register(name string, d Distributor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.distributors[name] = d
}

func (r *Registry) Get(name string) (Distributor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.distributors[name]
	if !ok {
		return nil, fmt.Errorf("unknown distributor %q", name)
	}
	return d, nil
}
