package store

import (
	"context"
	"maps"
	"sync"
)

// Memory keeps collections in process memory in insertion order. It is the
// default backend for local runs and tests.
type Memory struct {
	mu          sync.RWMutex
	collections map[string][]Record
	closed      bool
}

func NewMemory() *Memory {
	return &Memory{collections: make(map[string][]Record)}
}

func (m *Memory) Find(ctx context.Context, collection string, filter Filter) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, errClosed
	}
	out := make([]Record, 0)
	for _, r := range m.collections[collection] {
		if filter.Matches(r) {
			out = append(out, maps.Clone(r))
		}
	}
	return out, nil
}

func (m *Memory) Insert(ctx context.Context, collection string, record Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := requireName(record); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errClosed
	}
	m.collections[collection] = append(m.collections[collection], maps.Clone(record))
	return nil
}

func (m *Memory) Update(ctx context.Context, collection string, filter Filter, fields Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errClosed
	}
	for _, r := range m.collections[collection] {
		if filter.Matches(r) {
			maps.Copy(r, fields)
			return nil
		}
	}
	return nil
}

func (m *Memory) DropAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errClosed
	}
	m.collections = make(map[string][]Record)
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
