package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ppiankov/materialsio/internal/model"
)

// Factory builds a fresh capability instance
type Factory[T any] func() (T, error)

// Table maps capability names to factories within one namespace
type Table[T any] struct {
	namespace string
	mu        sync.RWMutex
	factories map[string]Factory[T]
}

// NewTable creates an empty table for namespace
func NewTable[T any](namespace string) *Table[T] {
	return &Table[T]{
		namespace: namespace,
		factories: make(map[string]Factory[T]),
	}
}

// Namespace returns the namespace the table serves
func (t *Table[T]) Namespace() string {
	return t.namespace
}

// Register adds a factory under name
func (t *Table[T]) Register(name string, factory Factory[T]) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("factory for '%s' is nil", name)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.factories[name]; exists {
		return fmt.Errorf("%s '%s' already registered", t.namespace, name)
	}

	t.factories[name] = factory
	return nil
}

// Has reports whether name is registered
func (t *Table[T]) Has(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	_, exists := t.factories[name]
	return exists
}

// Get builds a new instance of the named capability
func (t *Table[T]) Get(name string) (T, error) {
	t.mu.RLock()
	factory, exists := t.factories[name]
	t.mu.RUnlock()

	var zero T
	if !exists {
		return zero, model.NewCapabilityError(t.namespace, name, model.ErrNotFound)
	}

	item, err := factory()
	if err != nil {
		return zero, model.NewCapabilityError(t.namespace, name, fmt.Errorf("create: %w", err))
	}
	return item, nil
}

// Names returns the registered names in sorted order
func (t *Table[T]) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, 0, len(t.factories))
	for name := range t.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
