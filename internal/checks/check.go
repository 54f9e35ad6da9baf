// Package checks contains the scheduled host health checks. Each check is a
// short, self-contained probe that resolves a fresh configuration snapshot,
// inspects one subsystem, and on a breach asks the autofix dispatcher for a
// remediation. Checks never remediate directly; the dispatcher owns
// enablement, cooldowns, and audit.
package checks

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hostmend/hostmend/internal/autofix"
	"github.com/hostmend/hostmend/internal/config"
	"github.com/hostmend/hostmend/internal/variant"
)

// Runtime is the engine surface a check runs against.
type Runtime struct {
	Resolver   *config.Resolver
	Dispatcher *autofix.Dispatcher
	Variants   *variant.Registry
}

// Check is one scheduled health probe.
type Check interface {
	// Name is the component name: it keys the per-component config layer and
	// appears as requested_by in grace records.
	Name() string

	// Run performs one detection cycle. When the check dispatched a
	// remediation it returns the outcome so callers can surface the exit
	// code; nil means no dispatch happened. A returned error means the probe
	// itself failed; dispatch outcomes are never errors.
	Run(ctx context.Context, rt *Runtime) (*autofix.Outcome, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Check)
)

// Register adds a check to the package registry. Called from init or startup;
// duplicate names panic early rather than shadowing silently.
func Register(c Check) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[c.Name()]; exists {
		panic(fmt.Sprintf("checks: duplicate check %q", c.Name()))
	}
	registry[c.Name()] = c
}

// Get returns the named check.
func Get(name string) (Check, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	c, ok := registry[name]
	return c, ok
}

// Names returns all registered check names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
