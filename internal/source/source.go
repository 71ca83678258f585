package source

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/curatehub/curatehub/internal/model"
)

// ErrFetch wraps adapter/network failures. One search config failing must not
// affect sibling searches or feeds, so callers log and move on.
var ErrFetch = errors.New("source fetch failed")

// Author identifies the platform-side author of an item.
type Author struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName,omitempty"`
}

// Metadata carries per-item source bookkeeping.
type Metadata struct {
	SourcePlugin string            `json:"sourcePlugin"`
	Extra        map[string]string `json:"extra,omitempty"`
}

// Item is a raw platform item. Content is either a plain string or an object
// with a "text" field; ingestion tolerates anything else.
type Item struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"externalId"`
	Content    any       `json:"content"`
	Author     Author    `json:"author"`
	CreatedAt  time.Time `json:"createdAt"`
	Metadata   Metadata  `json:"metadata"`
}

// SearchOptions names one search a feed runs against a plugin.
type SearchOptions struct {
	FeedID   string
	SearchID string
	Type     string
	Query    string
	PageSize int
}

// Result is one fetch outcome. A nil NextState signals the source is
// exhausted and the stored cursor should be deleted.
type Result struct {
	Items     []Item
	NextState *model.CursorData
}

// Adapter fetches items from an external platform given the last committed
// cursor. Long-running platform jobs are surfaced through
// NextState.CurrentAsyncJob rather than blocking.
type Adapter interface {
	Search(ctx context.Context, last *model.CursorData, opts SearchOptions) (*Result, error)
}

// Registry maps plugin names to adapters.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

func (r *Registry) Register(name string, a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[name] = a
}

func (r *Registry) Get(name string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("unknown source plugin %q", name)
	}
	return a, nil
}
