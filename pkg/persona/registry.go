package persona

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Registry holds the available personas.
type Registry struct {
	mu       sync.RWMutex
	personas map[string]*Persona
	def      string
}

// NewRegistry returns a registry with the built-in personas and
// archivist as the default.
func NewRegistry() *Registry {
	r := &Registry{
		personas: make(map[string]*Persona),
		def:      Archivist,
	}
	for _, p := range builtins() {
		r.personas[p.Name] = p
	}
	return r
}

// Register adds p, merging it over an existing persona of the same name.
func (r *Registry) Register(p *Persona) error {
	name := normalize(p.Name)
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.personas[name]; ok {
		merged := existing.Clone()
		merged.merge(p)
		r.personas[name] = merged
		return nil
	}

	cp := p.Clone()
	cp.Name = name
	if err := cp.Validate(); err != nil {
		return err
	}
	// New personas inherit any message they leave out from the plain copy.
	base := plain()
	for k, v := range base.Messages {
		if _, ok := cp.Messages[k]; !ok {
			cp.Messages[k] = v
		}
	}
	r.personas[name] = cp
	return nil
}

// Get returns a copy of the named persona. An empty name returns the default.
func (r *Registry) Get(name string) (*Persona, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if strings.TrimSpace(name) == "" {
		name = r.def
	}
	p, ok := r.personas[normalize(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPersona, name)
	}
	return p.Clone(), nil
}

// DefaultName returns the name of the default persona.
func (r *Registry) DefaultName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.def
}

// SetDefault changes the default persona.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name = normalize(name)
	if _, ok := r.personas[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPersona, name)
	}
	r.def = name
	return nil
}

// Names returns the registered persona names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.personas))
	for n := range r.personas {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// All returns copies of every persona in name order.
func (r *Registry) All() []*Persona {
	names := r.Names()
	out := make([]*Persona, 0, len(names))
	for _, n := range names {
		if p, err := r.Get(n); err == nil {
			out = append(out, p)
		}
	}
	return out
}

// fileFormat is the YAML layout accepted by LoadFile.
type fileFormat struct {
	Default  string     `yaml:"default"`
	Personas []*Persona `yaml:"personas"`
}

// LoadFile reads personas from a YAML file and registers them.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read personas %s: %w", path, err)
	}
	return r.Load(data)
}

// Load registers the personas in a YAML document.
func (r *Registry) Load(data []byte) error {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse personas: %w", err)
	}
	for i, p := range f.Personas {
		if p == nil {
			continue
		}
		if err := r.Register(p); err != nil {
			return fmt.Errorf("persona[%d]: %w", i, err)
		}
	}
	if f.Default != "" {
		return r.SetDefault(f.Default)
	}
	return nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
