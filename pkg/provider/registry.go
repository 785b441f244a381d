package provider

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry routes member IDs to registered providers by prefix. A member ID
// is "<provider>/<model>"; the model part may itself contain slashes
// ("openrouter/x-ai/grok-2" routes to "openrouter" with model "x-ai/grok-2").
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider under its Name. Registering the same name twice
// is a configuration mistake and returns an error.
func (r *Registry) Register(p Provider) error {
	name := p.Name()
	if name == "" {
		return errors.New("provider name must not be empty")
	}
	if strings.Contains(name, "/") {
		return fmt.Errorf("provider name %q must not contain '/'", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("provider %q already registered", name)
	}
	r.providers[name] = p
	return nil
}

// Resolve splits a member ID into its provider and model parts and looks the
// provider up. Member IDs without a prefix or with an unregistered prefix
// fail resolution.
func (r *Registry) Resolve(member string) (Provider, string, error) {
	prefix, model, found := strings.Cut(member, "/")
	if !found || prefix == "" || model == "" {
		return nil, "", fmt.Errorf("member ID %q is not of the form <provider>/<model>", member)
	}

	r.mu.RLock()
	p, ok := r.providers[prefix]
	r.mu.RUnlock()

	if !ok {
		return nil, "", fmt.Errorf("no provider registered for prefix %q", prefix)
	}
	return p, model, nil
}

// Names returns the registered provider names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes every registered provider and returns the joined errors.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name, p := range r.providers {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing provider %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
