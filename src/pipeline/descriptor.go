package pipeline

import (
	"fmt"

	"github.com/quantrose/candleflow/src/config"
	"github.com/quantrose/candleflow/src/eventmodels"
	"github.com/quantrose/candleflow/src/eventpubsub"
)

// Deps is handed to plugin factories at pipeline construction.
type Deps struct {
	Bus    *eventpubsub.Bus
	Config config.Config
	Mode   Mode
}

// Descriptor declares a plugin: which modes it runs in, which plugins must
// run before it, which events it emits and whether its candle hook may block
// on I/O. Descriptors are read once at pipeline construction to compute the
// topological order.
type Descriptor struct {
	Slug      string
	Modes     []Mode
	DependsOn []string
	Emits     []eventmodels.EventName
	Async     bool
	New       func(deps Deps) (Plugin, error)
}

func (d Descriptor) SupportsMode(mode Mode) bool {
	for _, m := range d.Modes {
		if m == mode {
			return true
		}
	}

	return false
}

// Registry maps plugin slugs to descriptors, preserving registration order
// so the topological sort can tie-break deterministically.
type Registry struct {
	order       []string
	descriptors map[string]Descriptor
}

func NewRegistry() *Registry {
	return &Registry{descriptors: make(map[string]Descriptor)}
}

func (r *Registry) Register(d Descriptor) error {
	if d.Slug == "" {
		return fmt.Errorf("Register: descriptor slug not set")
	}

	if d.New == nil {
		return fmt.Errorf("Register: descriptor %s has no factory", d.Slug)
	}

	if _, found := r.descriptors[d.Slug]; found {
		return fmt.Errorf("%w: %s", ErrDuplicatePlugin, d.Slug)
	}

	r.order = append(r.order, d.Slug)
	r.descriptors[d.Slug] = d

	return nil
}

func (r *Registry) Get(slug string) (Descriptor, bool) {
	d, found := r.descriptors[slug]
	return d, found
}

// Select returns the descriptors for the enabled slugs in registration
// order, dropping plugins that do not run in the given mode.
func (r *Registry) Select(enabled []string, mode Mode) ([]Descriptor, error) {
	enabledSet := make(map[string]bool, len(enabled))
	for _, slug := range enabled {
		if _, found := r.descriptors[slug]; !found {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPlugin, slug)
		}

		enabledSet[slug] = true
	}

	var selected []Descriptor
	for _, slug := range r.order {
		if !enabledSet[slug] {
			continue
		}

		selected = append(selected, r.descriptors[slug])
	}

	return selected, nil
}
