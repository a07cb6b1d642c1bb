// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"errors"
	"sort"
	"sync"
)

// Factory creates a device instance. Backend-global setup (pipeline
// compilation, default state) happens here, once.
type Factory func() (Device, error)

// RegistryEntry represents a registered backend.
type RegistryEntry struct {
	// Name is the unique identifier for this backend.
	Name string

	// Priority determines selection order (higher = preferred).
	// Standard priorities:
	//   - 100: shared application GPU contexts
	//   - 50: self-owned GPU backends (Vulkan via wgpu HAL)
	//   - 10: pure software
	Priority int

	// Factory creates device instances.
	Factory Factory

	// Available reports if the backend is usable on this system.
	Available func() bool
}

// globalRegistry is the default registry.
var globalRegistry = &Registry{}

// Registry manages registered backends.
//
// Backends register themselves without requiring changes to the engine,
// typically from an init function behind a blank import:
//
//	func init() {
//	    device.Register("wgpu", 50, factory, available)
//	}
//
// Acquire walks the available backends in priority order; a specific backend
// can be requested by name.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*RegistryEntry
}

// NewRegistry creates a new empty registry. Most code should use the global
// registry via Register and Acquire; tests build private registries to
// control exactly which backends exist.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*RegistryEntry),
	}
}

// Register adds a backend to the global registry. If available is nil, the
// backend is assumed always available. Registering an existing name replaces
// the previous entry.
func Register(name string, priority int, factory Factory, available func() bool) {
	globalRegistry.Register(name, priority, factory, available)
}

// Unregister removes a backend from the global registry.
func Unregister(name string) {
	globalRegistry.Unregister(name)
}

// List returns all registered backend names sorted by priority (highest first).
func List() []string {
	return globalRegistry.List()
}

// Available returns names of all available backends sorted by priority.
func Available() []string {
	return globalRegistry.Available()
}

// Acquire opens the best available backend from the global registry.
func Acquire() (Device, error) {
	return globalRegistry.Acquire()
}

// AcquireByName opens a specific backend from the global registry.
func AcquireByName(name string) (Device, error) {
	return globalRegistry.AcquireByName(name)
}

// Register adds a backend to this registry.
func (r *Registry) Register(name string, priority int, factory Factory, available func() bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entries == nil {
		r.entries = make(map[string]*RegistryEntry)
	}

	if available == nil {
		available = func() bool { return true }
	}

	r.entries[name] = &RegistryEntry{
		Name:      name,
		Priority:  priority,
		Factory:   factory,
		Available: available,
	}
}

// Unregister removes a backend from this registry.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, name)
}

// List returns all registered backend names sorted by priority.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sortedNames(false)
}

// Available returns names of all available backends sorted by priority.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sortedNames(true)
}

// Acquire opens the highest-priority available backend. It tries each
// available backend in priority order and returns the first that opens;
// ErrNoBackendAvailable if none is registered or every factory fails.
func (r *Registry) Acquire() (Device, error) {
	r.mu.RLock()
	available := r.sortedNames(true)
	r.mu.RUnlock()

	if len(available) == 0 {
		return nil, ErrNoBackendAvailable
	}

	var lastErr error
	for _, name := range available {
		d, err := r.AcquireByName(name)
		if err == nil {
			return d, nil
		}
		lastErr = err
	}

	return nil, errors.Join(ErrNoBackendAvailable, lastErr)
}

// AcquireByName opens a specific backend.
func (r *Registry) AcquireByName(name string) (Device, error) {
	r.mu.RLock()
	entry, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &BackendNotFoundError{Name: name}
	}

	if !entry.Available() {
		return nil, &BackendUnavailableError{Name: name}
	}

	return entry.Factory()
}

// sortedNames returns backend names sorted by priority (highest first).
// If onlyAvailable is true, filters to available backends only.
// Must be called with the lock held.
func (r *Registry) sortedNames(onlyAvailable bool) []string {
	if len(r.entries) == 0 {
		return nil
	}

	type entry struct {
		name     string
		priority int
	}

	entries := make([]entry, 0, len(r.entries))
	for name, e := range r.entries {
		if onlyAvailable && !e.Available() {
			continue
		}
		entries = append(entries, entry{name: name, priority: e.Priority})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].priority > entries[j].priority
	})

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names
}

// Errors.
var (
	// ErrNoBackendAvailable is returned when no backends are registered or
	// available on the current system. Callers treat this as recoverable:
	// it is the signal to switch to a degraded presentation path.
	ErrNoBackendAvailable = errors.New("device: no backend available")
)

// BackendNotFoundError indicates a named backend is not registered.
type BackendNotFoundError struct {
	Name string
}

func (e *BackendNotFoundError) Error() string {
	return "device: backend not found: " + e.Name
}

// BackendUnavailableError indicates a backend exists but is not available.
type BackendUnavailableError struct {
	Name string
}

func (e *BackendUnavailableError) Error() string {
	return "device: backend unavailable: " + e.Name
}
