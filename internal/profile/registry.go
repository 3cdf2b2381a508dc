package profile

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds profiles by name. The first profile added is the default
// until SetDefault is called.
type Registry struct {
	mu          sync.RWMutex
	profiles    map[string]Profile
	order       []string
	defaultName string
}

// NewRegistry creates a registry from profiles, validating each one.
func NewRegistry(profiles ...Profile) (*Registry, error) {
	r := &Registry{profiles: make(map[string]Profile)}
	for _, p := range profiles {
		if err := r.Add(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add validates and registers a profile.
func (r *Registry) Add(p Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.profiles[p.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateProfile, p.Name)
	}
	r.profiles[p.Name] = p
	r.order = append(r.order, p.Name)
	if r.defaultName == "" {
		r.defaultName = p.Name
	}
	return nil
}

// Get returns the profile called name.
func (r *Registry) Get(name string) (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	return p, nil
}

// At returns the profile at index in registration order, which is the
// order of the selector in interactive front-ends.
func (r *Registry) At(index int) (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if index < 0 || index >= len(r.order) {
		return Profile{}, fmt.Errorf("%w: index %d", ErrProfileNotFound, index)
	}
	return r.profiles[r.order[index]], nil
}

// Default returns the default profile.
func (r *Registry) Default() (Profile, error) {
	r.mu.RLock()
	name := r.defaultName
	r.mu.RUnlock()

	if name == "" {
		return Profile{}, fmt.Errorf("%w: registry is empty", ErrProfileNotFound)
	}
	return r.Get(name)
}

// SetDefault makes name the default profile.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.profiles[name]; !ok {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	r.defaultName = name
	return nil
}

// Names returns profile names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.order...)
}

// List returns all profiles sorted by name.
func (r *Registry) List() []Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of profiles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
