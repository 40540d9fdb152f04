package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// memoryCollection keeps encoded documents so callers never share mutable state.
type memoryCollection[T any] struct {
	name string
	opts collectionOptions

	mu     sync.RWMutex
	docs   map[string][]byte
	order  []string
	unique map[string]map[string]string // field -> value -> id
}

// NewMemoryCollection returns an in-process collection.
func NewMemoryCollection[T any](name string, opts ...CollectionOption) Collection[T] {
	return newMemoryCollection[T](name, opts...)
}

func newMemoryCollection[T any](name string, opts ...CollectionOption) *memoryCollection[T] {
	o := buildOptions(opts)
	unique := make(map[string]map[string]string, len(o.unique))
	for _, field := range o.unique {
		unique[field] = make(map[string]string)
	}
	return &memoryCollection[T]{
		name:   name,
		opts:   o,
		docs:   make(map[string][]byte),
		unique: unique,
	}
}

func (c *memoryCollection[T]) Name() string { return c.name }

func (c *memoryCollection[T]) Insert(_ context.Context, id string, doc *T) error {
	raw, fields, err := encode(doc)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.docs[id]; exists {
		return ErrDuplicate
	}
	if err := c.checkUnique(id, fields); err != nil {
		return err
	}
	c.docs[id] = raw
	c.order = append(c.order, id)
	c.index(id, nil, fields)
	return nil
}

func (c *memoryCollection[T]) Replace(_ context.Context, id string, doc *T) error {
	versioned, expected, hasVersion := versionOf(doc)
	if hasVersion {
		versioned.SetDocumentVersion(expected + 1)
	}
	err := c.replace(id, doc, expected, hasVersion)
	if err != nil && hasVersion {
		versioned.SetDocumentVersion(expected)
	}
	return err
}

func (c *memoryCollection[T]) replace(id string, doc *T, expected int64, checkVersion bool) error {
	raw, fields, err := encode(doc)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	prev, exists := c.docs[id]
	if !exists {
		return ErrNotFound
	}
	var prevFields map[string]any
	if err := json.Unmarshal(prev, &prevFields); err != nil {
		return err
	}
	if checkVersion && storedVersion(prevFields) != expected {
		return ErrStale
	}
	if err := c.checkUnique(id, fields); err != nil {
		return err
	}
	c.docs[id] = raw
	c.index(id, prevFields, fields)
	return nil
}

func (c *memoryCollection[T]) Get(_ context.Context, id string) (*T, error) {
	c.mu.RLock()
	raw, ok := c.docs[id]
	c.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decode[T](raw)
}

func (c *memoryCollection[T]) List(_ context.Context) ([]*T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*T, 0, len(c.order))
	for _, id := range c.order {
		doc, err := decode[T](c.docs[id])
		if err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", c.name, id, err)
		}
		out = append(out, doc)
	}
	return out, nil
}

func (c *memoryCollection[T]) FindBy(_ context.Context, field, value string) ([]*T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []*T
	for _, id := range c.order {
		raw := c.docs[id]
		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, err
		}
		if v, ok := fields[field]; !ok || fieldString(v) != value {
			continue
		}
		doc, err := decode[T](raw)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

// checkUnique must be called with the write lock held.
func (c *memoryCollection[T]) checkUnique(id string, fields map[string]any) error {
	for field, values := range c.unique {
		v, ok := fields[field]
		if !ok || v == nil {
			continue
		}
		if owner, taken := values[fieldString(v)]; taken && owner != id {
			return ErrDuplicate
		}
	}
	return nil
}

func (c *memoryCollection[T]) index(id string, prev, next map[string]any) {
	for field, values := range c.unique {
		if v, ok := prev[field]; ok && v != nil {
			delete(values, fieldString(v))
		}
		if v, ok := next[field]; ok && v != nil {
			values[fieldString(v)] = id
		}
	}
}

func encode[T any](doc *T) ([]byte, map[string]any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, nil, err
	}
	return raw, fields, nil
}

func decode[T any](raw []byte) (*T, error) {
	var doc T
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func storedVersion(fields map[string]any) int64 {
	if v, ok := fields["version"].(float64); ok {
		return int64(v)
	}
	return 0
}

func fieldString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
