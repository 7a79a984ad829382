// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package services

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// =============================================================================
// Errors
// =============================================================================

// ErrServiceNotFound is returned by Get when no factory is registered for
// the requested name.
var ErrServiceNotFound = errors.New("service not registered")

// ErrServiceCreation is returned by Get when the registered factory fails
// or the created instance fails its health check.
var ErrServiceCreation = errors.New("service creation failed")

// =============================================================================
// Optional instance capabilities
// =============================================================================

// HealthChecker is probed by the container to decide whether a cached
// instance is still usable. Instances without the probe are considered
// healthy merely by existing.
type HealthChecker interface {
	IsHealthy() bool
}

// shutdowner and closer are the best-effort teardown probes used by
// Shutdown. Errors from either are swallowed.
type shutdowner interface {
	Shutdown() error
}

type closer interface {
	Close() error
}

// =============================================================================
// Container
// =============================================================================

// Factory creates a service instance from the shared configuration.
type Factory func(cfg Config) (any, error)

// Container is a lazy dependency container for the relay's collaborators.
//
// Services are created on first Get, health-checked, and cached as
// singletons. The check-cache / create / cache-write critical section is
// guarded by a mutex, so concurrent notification-processing goroutines
// never construct the same singleton twice.
type Container struct {
	cfg Config

	mu        sync.Mutex
	factories map[string]Factory
	services  map[string]any
}

// Info is the diagnostic snapshot served by the /services endpoint.
type Info struct {
	RegisteredServices []string        `json:"registered_services"`
	ActiveServices     []string        `json:"active_services"`
	HealthStatus       map[string]bool `json:"health_status"`
	ConfigSummary      map[string]any  `json:"config_summary"`
}

// NewContainer creates an empty container around cfg. Register factories
// before use; NewDefaultContainer wires the standard set.
func NewContainer(cfg Config) *Container {
	return &Container{
		cfg:       cfg,
		factories: make(map[string]Factory),
		services:  make(map[string]any),
	}
}

// Config returns the configuration the container was built with.
func (c *Container) Config() Config {
	return c.cfg
}

// RegisterFactory registers a factory function for a named service.
func (c *Container) RegisterFactory(name string, factory Factory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[name] = factory
	slog.Debug("Registered service factory", "service", name)
}

// RegisterSingleton registers a pre-created instance, bypassing lazy
// construction. Used by tests to inject fakes.
func (c *Container) RegisterSingleton(name string, instance any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[name] = instance
	// A singleton counts as registered for inventory purposes.
	if _, ok := c.factories[name]; !ok {
		c.factories[name] = func(Config) (any, error) { return instance, nil }
	}
}

// Get returns the named service, creating and caching it on first use.
//
// Errors are distinguishable with errors.Is: ErrServiceNotFound when no
// factory exists, ErrServiceCreation when the factory fails or the new
// instance fails its health check.
func (c *Container) Get(name string) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if svc, ok := c.services[name]; ok {
		if isHealthy(svc) {
			return svc, nil
		}
		// Unhealthy cached instance: evict and recreate below.
		slog.Warn("Cached service unhealthy, recreating", "service", name)
		delete(c.services, name)
	}

	factory, ok := c.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrServiceNotFound, name, c.registeredLocked())
	}

	svc, err := factory(c.cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrServiceCreation, name, err)
	}
	if !isHealthy(svc) {
		return nil, fmt.Errorf("%w: %s failed health check after creation", ErrServiceCreation, name)
	}

	c.services[name] = svc
	slog.Info("Created service", "service", name)
	return svc, nil
}

// GetOptional returns the named service or nil when it is unregistered or
// cannot be created. Used for the pipeline's optional collaborators.
func (c *Container) GetOptional(name string) any {
	svc, err := c.Get(name)
	if err != nil {
		slog.Debug("Optional service not available", "service", name, "error", err)
		return nil
	}
	return svc
}

// IsRegistered reports whether a factory exists for the name.
func (c *Container) IsRegistered(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.factories[name]
	return ok
}

// IsAvailable reports whether the service can be obtained and is healthy.
func (c *Container) IsAvailable(name string) bool {
	_, err := c.Get(name)
	return err == nil
}

// HealthCheck probes every registered service. Services that cannot be
// created report false.
func (c *Container) HealthCheck() map[string]bool {
	status := make(map[string]bool)
	for _, name := range c.registered() {
		status[name] = c.IsAvailable(name)
	}
	return status
}

// ResetService evicts a cached instance, forcing recreation on next Get.
func (c *Container) ResetService(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.services[name]; ok {
		slog.Info("Resetting service", "service", name)
		delete(c.services, name)
	}
}

// Shutdown offers each cached service a best-effort teardown and clears
// the cache. Teardown errors are logged and swallowed.
func (c *Container) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for name, svc := range c.services {
		var err error
		switch s := svc.(type) {
		case shutdowner:
			err = s.Shutdown()
		case closer:
			err = s.Close()
		}
		if err != nil {
			slog.Error("Error shutting down service", "service", name, "error", err)
		}
	}
	c.services = make(map[string]any)
	slog.Info("Service container shut down")
}

// ServiceInfo returns the diagnostic snapshot for the inventory endpoint.
func (c *Container) ServiceInfo() Info {
	c.mu.Lock()
	active := make([]string, 0, len(c.services))
	for name := range c.services {
		active = append(active, name)
	}
	c.mu.Unlock()
	sort.Strings(active)

	return Info{
		RegisteredServices: c.registered(),
		ActiveServices:     active,
		HealthStatus:       c.HealthCheck(),
		ConfigSummary:      c.cfg.Redacted(),
	}
}

func (c *Container) registered() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registeredLocked()
}

func (c *Container) registeredLocked() []string {
	names := make([]string, 0, len(c.factories))
	for name := range c.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func isHealthy(svc any) bool {
	if svc == nil {
		return false
	}
	if probe, ok := svc.(HealthChecker); ok {
		return probe.IsHealthy()
	}
	return true
}
