// Package container is a small dependency-injection container: explicit,
// named bindings for the orchestrator, configuration, and circuit-breaker
// registry in place of module-level globals, supporting singleton, factory,
// instance, and scoped lifetimes.
package container

import (
	"fmt"
	"sync"
)

// Lifetime controls how a binding's factory is invoked across Resolve calls.
type Lifetime int

const (
	// Singleton builds a value once and returns the same instance forever.
	Singleton Lifetime = iota
	// Factory builds a new value on every Resolve call.
	Factory
	// Instance wraps a value that was already constructed.
	Instance
	// Scoped builds one instance per scope key, shared within that scope.
	Scoped
)

// FactoryFunc is a constructor that may resolve its own dependencies from c.
type FactoryFunc func(c *Container) (interface{}, error)

type binding struct {
	lifetime Lifetime
	build    FactoryFunc
	value    interface{}
	built    bool
	buildMu  sync.Mutex // serialises the one-time build of a Singleton
}

// Container is a name-keyed registry of bindings, guarded by a single mutex.
type Container struct {
	mu       sync.Mutex
	bindings map[string]*binding
	scopes   map[string]map[string]interface{} // scopeKey -> name -> instance
}

// New creates an empty Container.
func New() *Container {
	return &Container{
		bindings: make(map[string]*binding),
		scopes:   make(map[string]map[string]interface{}),
	}
}

// RegisterInstance binds name to an already-constructed value.
func (c *Container) RegisterInstance(name string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindings[name] = &binding{lifetime: Instance, value: value, built: true}
}

// RegisterSingleton binds name to a factory invoked at most once; every
// subsequent Resolve returns the same built value.
func (c *Container) RegisterSingleton(name string, build FactoryFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindings[name] = &binding{lifetime: Singleton, build: build}
}

// RegisterFactory binds name to a factory invoked fresh on every Resolve.
func (c *Container) RegisterFactory(name string, build FactoryFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindings[name] = &binding{lifetime: Factory, build: build}
}

// RegisterScoped binds name to a factory invoked once per distinct scope key
// passed to ResolveScoped.
func (c *Container) RegisterScoped(name string, build FactoryFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindings[name] = &binding{lifetime: Scoped, build: build}
}

// Resolve returns the bound value for name, building it if necessary.
// Scoped bindings resolved this way use the empty scope key.
func (c *Container) Resolve(name string) (interface{}, error) {
	return c.ResolveScoped("", name)
}

// ResolveScoped returns the bound value for name within scopeKey. For
// Singleton/Factory/Instance bindings scopeKey is ignored.
func (c *Container) ResolveScoped(scopeKey, name string) (interface{}, error) {
	c.mu.Lock()
	b, ok := c.bindings[name]
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("container: no binding registered for %q", name)
	}

	switch b.lifetime {
	case Instance:
		return b.value, nil

	case Singleton:
		b.buildMu.Lock()
		defer b.buildMu.Unlock()
		if !b.built {
			v, err := b.build(c)
			if err != nil {
				return nil, err
			}
			b.value = v
			b.built = true
		}
		return b.value, nil

	case Factory:
		return b.build(c)

	case Scoped:
		c.mu.Lock()
		scope, ok := c.scopes[scopeKey]
		if !ok {
			scope = make(map[string]interface{})
			c.scopes[scopeKey] = scope
		}
		if v, ok := scope[name]; ok {
			c.mu.Unlock()
			return v, nil
		}
		c.mu.Unlock()

		v, err := b.build(c)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		scope[name] = v
		c.mu.Unlock()
		return v, nil

	default:
		return nil, fmt.Errorf("container: unknown lifetime for %q", name)
	}
}

// EndScope discards every instance built for scopeKey, so the next
// ResolveScoped call for that key rebuilds scoped bindings from scratch.
func (c *Container) EndScope(scopeKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.scopes, scopeKey)
}
