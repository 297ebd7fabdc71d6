package kv

import (
	"context"
	"sync"
)

type memoryRepo struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemory returns a process-local Repository. Its contents do not survive a
// restart of the process, only a rebuild of the stores on top of it.
func NewMemory() Repository {
	return &memoryRepo{
		entries: make(map[string]string),
	}
}

func (r *memoryRepo) Get(_ context.Context, key string) (string, bool, error) {
	r.mu.RLock()
	v, ok := r.entries[key]
	r.mu.RUnlock()
	return v, ok, nil
}

func (r *memoryRepo) Set(_ context.Context, key, value string) error {
	r.mu.Lock()
	r.entries[key] = value
	r.mu.Unlock()
	return nil
}

func (r *memoryRepo) MultiSet(_ context.Context, entries map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range entries {
		r.entries[k] = v
	}
	return nil
}

func (r *memoryRepo) MultiGet(_ context.Context, keys []string) ([]*string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*string, len(keys))
	for i, k := range keys {
		if v, ok := r.entries[k]; ok {
			out[i] = &v
		}
	}
	return out, nil
}

func (r *memoryRepo) MultiRemove(_ context.Context, keys []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range keys {
		delete(r.entries, k)
	}
	return nil
}

func (r *memoryRepo) Ping(context.Context) error {
	return nil
}
