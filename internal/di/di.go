// Package di provides a small lazy dependency injection container with typed tokens.
package di

import (
	"fmt"
	"sync"
)

// ServiceRegistry resolves registered services by key.
type ServiceRegistry interface {
	Get(key string) any
	Has(key string) bool
}

// Container is a ServiceRegistry that also accepts registrations.
type Container interface {
	ServiceRegistry
	Register(key string, value any)
	RegisterFactory(key string, factory func(ServiceRegistry) any)
}

type entry struct {
	factory func(ServiceRegistry) any
	value   any
	built   bool
}

type container struct {
	mu       sync.Mutex
	entries  map[string]*entry
	building map[string]bool
}

// NewContainer creates an empty container.
func NewContainer() Container {
	return &container{
		entries:  make(map[string]*entry),
		building: make(map[string]bool),
	}
}

// Register stores a ready value under key.
func (c *container) Register(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &entry{value: value, built: true}
}

// RegisterFactory stores a factory that is invoked once, on first Get.
func (c *container) RegisterFactory(key string, factory func(ServiceRegistry) any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &entry{factory: factory}
}

func (c *container) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// Get resolves key, building it on first access. Panics on unknown keys and
// on dependency cycles since both are wiring bugs.
func (c *container) Get(key string) any {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		panic(fmt.Sprintf("di: service %q not registered", key))
	}
	if e.built {
		v := e.value
		c.mu.Unlock()
		return v
	}
	if c.building[key] {
		c.mu.Unlock()
		panic(fmt.Sprintf("di: dependency cycle resolving %q", key))
	}
	c.building[key] = true
	c.mu.Unlock()

	// factory runs unlocked so it can resolve its own dependencies
	v := e.factory(c)

	c.mu.Lock()
	delete(c.building, key)
	e.value = v
	e.built = true
	c.mu.Unlock()

	return v
}

// Token is a typed key for a service.
type Token[T any] struct {
	key string
}

// NewToken creates a token for key.
func NewToken[T any](key string) Token[T] {
	return Token[T]{key: key}
}

// Key returns the registry key.
func (t Token[T]) Key() string {
	return t.key
}

// RegisterToken registers a typed factory for token.
func RegisterToken[T any](c Container, token Token[T], factory func(ServiceRegistry) T) {
	c.RegisterFactory(token.key, func(sr ServiceRegistry) any {
		return factory(sr)
	})
}

// GetToken resolves a typed service.
func GetToken[T any](sr ServiceRegistry, token Token[T]) T {
	v, ok := sr.Get(token.key).(T)
	if !ok {
		panic(fmt.Sprintf("di: service %q has unexpected type", token.key))
	}
	return v
}
