// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package driver

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Factory opens a driver instance.
type Factory func() (Driver, error)

// Registered driver names.
const (
	NameWGPU     = "wgpu"
	NameSoftware = "software"
)

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
	// Priority order for Default (first that opens wins).
	priority = []string{NameWGPU, NameSoftware}
)

// Register registers a driver factory under name, replacing any previous
// registration. It is typically called from init.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = factory
}

// Unregister removes a driver from the registry.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, name)
}

// Available returns the sorted names of registered drivers.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsRegistered reports whether a driver is registered under name.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := factories[name]
	return ok
}

// Get opens the driver registered under name.
func Get(name string) (Driver, error) {
	registryMu.RLock()
	factory, ok := factories[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q is not registered", ErrNotAvailable, name)
	}
	d, err := factory()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return d, nil
}

// Default opens the best available driver: wgpu, then software, then any
// other registered driver in name order.
func Default() (Driver, error) {
	registryMu.RLock()
	order := slices.Clone(priority)
	for _, name := range sortedKeysLocked() {
		if !slices.Contains(order, name) {
			order = append(order, name)
		}
	}
	registryMu.RUnlock()

	var errs []error
	for _, name := range order {
		if !IsRegistered(name) {
			continue
		}
		d, err := Get(name)
		if err == nil {
			return d, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("%w: no drivers registered", ErrNotAvailable)
	}
	return nil, fmt.Errorf("%w: %w", ErrNotAvailable, errors.Join(errs...))
}

func sortedKeysLocked() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
