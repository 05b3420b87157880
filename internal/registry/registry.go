// Package registry tracks which component owns each port and domain
// during a deployment run. The coordinator owns the registries and
// hands them to adapters; nothing here is process-global.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/yairfalse/seppo/internal/errors"
)

// PortRegistry maps TCP ports to the component that claimed them.
// Re-claiming a port already held by the same component is a no-op.
type PortRegistry struct {
	mu    sync.RWMutex
	ports map[int]string
}

func NewPortRegistry() *PortRegistry {
	return &PortRegistry{ports: make(map[int]string)}
}

// Claim reserves a port for a component. Claiming a port held by
// another component fails with a conflict error.
func (r *PortRegistry) Claim(port int, component string) error {
	if port <= 0 || port > 65535 {
		return errors.New(errors.ErrorTypeConfiguration, component,
			fmt.Sprintf("port %d is out of range", port))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, taken := r.ports[port]; taken && owner != component {
		return errors.New(errors.ErrorTypeConfiguration, component,
			fmt.Sprintf("port %d is already claimed by %s", port, owner)).
			WithSolutions(
				fmt.Sprintf("Configure a different port for %s", component),
				fmt.Sprintf("Remove the port from %s if it no longer needs it", owner),
			)
	}
	r.ports[port] = component
	return nil
}

// Release frees a port. Releasing an unclaimed port is a no-op.
func (r *PortRegistry) Release(port int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ports, port)
}

// Lookup returns the owner of a port.
func (r *PortRegistry) Lookup(port int) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owner, ok := r.ports[port]
	return owner, ok
}

// PortOf returns the lowest port a component has claimed.
func (r *PortRegistry) PortOf(component string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	best := 0
	for port, owner := range r.ports {
		if owner != component {
			continue
		}
		if best == 0 || port < best {
			best = port
		}
	}
	return best, best != 0
}

// DomainRegistry maps domain names to the component that claimed them.
// Names are compared case-insensitively with any trailing dot stripped.
type DomainRegistry struct {
	mu      sync.RWMutex
	domains map[string]string
}

func NewDomainRegistry() *DomainRegistry {
	return &DomainRegistry{domains: make(map[string]string)}
}

// Claim reserves a domain for a component.
func (r *DomainRegistry) Claim(domain, component string) error {
	name := normalizeDomain(domain)
	if name == "" {
		return errors.New(errors.ErrorTypeConfiguration, component, "empty domain name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, taken := r.domains[name]; taken && owner != component {
		return errors.New(errors.ErrorTypeConfiguration, component,
			fmt.Sprintf("domain %s is already claimed by %s", name, owner)).
			WithSolutions(
				fmt.Sprintf("Use a different domain for %s", component),
				"Check the components section of your configuration for duplicates",
			)
	}
	r.domains[name] = component
	return nil
}

// Release frees a domain. Releasing an unclaimed domain is a no-op.
func (r *DomainRegistry) Release(domain string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.domains, normalizeDomain(domain))
}

// Lookup returns the owner of a domain.
func (r *DomainRegistry) Lookup(domain string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owner, ok := r.domains[normalizeDomain(domain)]
	return owner, ok
}

// DomainsOf returns every domain a component has claimed, sorted.
func (r *DomainRegistry) DomainsOf(component string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	for name, owner := range r.domains {
		if owner == component {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func normalizeDomain(domain string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
}
