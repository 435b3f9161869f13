// Package store implements the generic persistence helper: every collection
// is written to the local cache and, when configured, to the remote document
// store; reads fall back remote -> local cache -> seed defaults.
package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Entity is anything persisted by id.
type Entity interface {
	GetID() string
}

// Remote is the remote document store.
type Remote interface {
	GetAll(ctx context.Context, collection string) ([]json.RawMessage, error)
	Upsert(ctx context.Context, collection, id string, data json.RawMessage, merge bool) error
}

// Local is the local string key/value cache.
type Local interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// Tier tells which storage tier answered a read.
type Tier string

const (
	TierRemote  Tier = "remote"
	TierLocal   Tier = "local"
	TierDefault Tier = "default"
)

// Options describes a collection.
type Options[T Entity] struct {
	// Name is the remote collection name.
	Name string
	// LocalKey is the local cache key holding the JSON array.
	LocalKey string
	// Defaults returns the seed list used when no tier has data.
	Defaults func() []T
	// Less, when set, orders every read result.
	Less func(a, b T) bool
	// LocalOnly keeps the collection out of the remote store.
	LocalOnly bool
}

type Collection[T Entity] struct {
	opts   Options[T]
	local  Local
	remote Remote
	logger *zap.Logger

	// guards the read-modify-write of the local array
	mu sync.Mutex
}

// NewCollection builds a collection. remote may be nil (local mode).
func NewCollection[T Entity](opts Options[T], local Local, remote Remote, logger *zap.Logger) *Collection[T] {
	if opts.LocalOnly {
		remote = nil
	}
	if opts.Defaults == nil {
		opts.Defaults = func() []T { return nil }
	}
	return &Collection[T]{
		opts:   opts,
		local:  local,
		remote: remote,
		logger: logger.With(zap.String("collection", opts.Name)),
	}
}

// HasRemote reports whether a remote store is attached.
func (c *Collection[T]) HasRemote() bool {
	return c.remote != nil
}

// Get returns the collection contents and the tier that produced them.
// Failures never surface: each one is logged and the next tier is tried.
func (c *Collection[T]) Get(ctx context.Context) ([]T, Tier) {
	if c.remote != nil {
		if items, ok := c.readRemote(ctx); ok {
			c.refreshCache(items)
			return c.sorted(items), TierRemote
		}
	}

	c.mu.Lock()
	items, ok := c.readLocal()
	c.mu.Unlock()
	if ok {
		return c.sorted(items), TierLocal
	}

	return c.sorted(c.opts.Defaults()), TierDefault
}

// Find returns the entity with the given id.
func (c *Collection[T]) Find(ctx context.Context, id string) (T, bool) {
	items, _ := c.Get(ctx)
	for _, it := range items {
		if it.GetID() == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Save replaces (or creates) the entity in the local cache and upserts it
// remotely, overwriting the remote document.
func (c *Collection[T]) Save(ctx context.Context, item T) {
	c.write(ctx, item, false)
}

// Update is Save with a merging remote upsert.
func (c *Collection[T]) Update(ctx context.Context, item T) {
	c.write(ctx, item, true)
}

func (c *Collection[T]) write(ctx context.Context, item T, merge bool) {
	c.updateLocal(item)

	if c.remote == nil {
		return
	}

	data, err := json.Marshal(item)
	if err != nil {
		c.logger.Error("Failed to encode document", zap.String("id", item.GetID()), zap.Error(err))
		return
	}
	if err := c.remote.Upsert(ctx, c.opts.Name, item.GetID(), data, merge); err != nil {
		c.logger.Error("Error saving to remote store", zap.String("id", item.GetID()), zap.Error(err))
		return
	}
	c.logger.Debug("Document saved to remote store", zap.String("id", item.GetID()), zap.Bool("merge", merge))
}

// updateLocal replaces the entity by id, or prepends it when new.
func (c *Collection[T]) updateLocal(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, ok := c.readLocal()
	if !ok {
		current = c.opts.Defaults()
	}

	replaced := false
	for i := range current {
		if current[i].GetID() == item.GetID() {
			current[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		current = append([]T{item}, current...)
	}

	c.writeLocal(current)
}

func (c *Collection[T]) refreshCache(items []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeLocal(items)
}

func (c *Collection[T]) readRemote(ctx context.Context) ([]T, bool) {
	docs, err := c.remote.GetAll(ctx, c.opts.Name)
	if err != nil {
		c.logger.Error("Error fetching from remote store, falling back to local", zap.Error(err))
		return nil, false
	}
	if len(docs) == 0 {
		c.logger.Info("Remote collection empty, falling back to local")
		return nil, false
	}

	items := make([]T, 0, len(docs))
	for _, d := range docs {
		var it T
		if err := json.Unmarshal(d, &it); err != nil {
			c.logger.Warn("Skipping malformed remote document", zap.Error(err))
			continue
		}
		items = append(items, it)
	}
	if len(items) == 0 {
		return nil, false
	}
	return items, true
}

// readLocal must be called with mu held.
func (c *Collection[T]) readLocal() ([]T, bool) {
	raw, ok, err := c.local.Get(c.opts.LocalKey)
	if err != nil {
		c.logger.Error("Local cache read failed", zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		c.logger.Error("Local cache holds malformed data", zap.Error(err))
		return nil, false
	}
	return items, true
}

// writeLocal must be called with mu held.
func (c *Collection[T]) writeLocal(items []T) {
	data, err := json.Marshal(items)
	if err != nil {
		c.logger.Error("Failed to encode local cache", zap.Error(err))
		return
	}
	if err := c.local.Set(c.opts.LocalKey, string(data)); err != nil {
		c.logger.Error("Local storage sync failed", zap.Error(err))
	}
}

func (c *Collection[T]) sorted(items []T) []T {
	if c.opts.Less != nil && len(items) > 1 {
		sort.SliceStable(items, func(i, j int) bool { return c.opts.Less(items[i], items[j]) })
	}
	return items
}
