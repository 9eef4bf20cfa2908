package fewshot

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryRegistry is the process-local registry used when no table is
// configured. Contents do not survive a restart.
type MemoryRegistry struct {
	mu       sync.RWMutex
	examples map[string]Example
	now      func() time.Time
}

// NewMemoryRegistry builds an empty in-process registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		examples: make(map[string]Example),
		now:      time.Now,
	}
}

func (r *MemoryRegistry) Put(ctx context.Context, example Example) error {
	if err := validateExample(example); err != nil {
		return err
	}
	if example.CreatedAt.IsZero() {
		example.CreatedAt = r.now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.examples[example.Name] = example
	return nil
}

func (r *MemoryRegistry) Get(ctx context.Context, name string) (Example, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	example, ok := r.examples[name]
	if !ok {
		return Example{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return example, nil
}

func (r *MemoryRegistry) List(ctx context.Context) ([]Example, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	examples := make([]Example, 0, len(r.examples))
	for _, example := range r.examples {
		examples = append(examples, example)
	}
	sort.Slice(examples, func(i, j int) bool { return examples[i].Name < examples[j].Name })
	return examples, nil
}
