package transform

import (
	"context"
	"fmt"
	"sync"

	"github.com/curatehub/curatehub/internal/model"
)

// Transformer mutates pipeline content. Implementations must treat cfg as
// read-only; a returned error means the caller falls back to its prior
// content rather than aborting the item.
type Transformer interface {
	Apply(ctx context.Context, cfg map[string]any, c model.PipelineContent) (model.PipelineContent, error)
}

// BatchTransformer is an optional capability for stages that operate on a
// whole collected result set at once.
type BatchTransformer interface {
	ApplyBatch(ctx context.Context, cfg map[string]any, items []model.PipelineContent) ([]model.PipelineContent, error)
}

// Registry maps stage plugin names to transformers.
type Registry struct {
	mu           sync.RWMutex
	transformers map[string]Transformer
}

func NewRegistry() *Registry {
	return &Registry{transformers: make(map[string]Transformer)}
}

func (r *Registry) Register(name string, t Transformer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transformers[name] = t
}

func (r *Registry) get(name string) (Transformer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transformers[name]
	if !ok {
		return nil, fmt.Errorf("unknown transformer %q", name)
	}
	return t, nil
}

// Apply runs one named stage against a single item.
func (r *Registry) Apply(ctx context.Context, stage model.StageConfig, c model.PipelineContent) (model.PipelineContent, error) {
	t, err := r.get(stage.Plugin)
	if err != nil {
		return c, err
	}
	return t.Apply(ctx, stage.Config, c)
}

// ApplyBatch runs one named stage against a result set. Stages without batch
// support are mapped over the items one by one.
func (r *Registry) ApplyBatch(ctx context.Context, stage model.StageConfig, items []model.PipelineContent) ([]model.PipelineContent, error) {
	t, err := r.get(stage.Plugin)
	if err != nil {
		return items, err
	}
	if bt, ok := t.(BatchTransformer); ok {
		return bt.ApplyBatch(ctx, stage.Config, items)
	}
	out := make([]model.PipelineContent, 0, len(items))
	for _, item := range items {
		next, err := t.Apply(ctx, stage.Config, item)
		if err != nil {
			return items, err
		}
		out = append(out, next)
	}
	return out, nil
}
