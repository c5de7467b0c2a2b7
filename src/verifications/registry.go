// Package verifications keeps the identity verification methods an
// organization offers: direct authorization handlers and multistep
// workflows. The registry is filled at startup and only read afterwards.
package verifications

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

type Kind string

const (
	// KindDirect is a single-step identity check.
	KindDirect Kind = "direct"
	// KindMultistep is a workflow of ordered steps.
	KindMultistep Kind = "multistep"
)

type Descriptor struct {
	Name  string   `json:"name" yaml:"name"`
	Kind  Kind     `json:"type" yaml:"type"`
	Steps []string `json:"steps,omitempty" yaml:"steps,omitempty"`
}

type DuplicateNameError struct{ Name string }

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("verification method %q already registered", e.Name)
}

type NotFoundError struct{ Name string }

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("verification method %q not found", e.Name)
}

type Registry struct {
	mu     sync.RWMutex
	byName map[string]Descriptor
	order  []string
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Descriptor)}
}

// Register adds a descriptor. Names are unique across handlers and workflows.
func (r *Registry) Register(name string, kind Kind, steps ...string) error {
	if name == "" {
		return fmt.Errorf("verification method name is required")
	}
	switch kind {
	case KindDirect:
		if len(steps) > 0 {
			return fmt.Errorf("direct handler %q cannot have steps", name)
		}
	case KindMultistep:
	default:
		return fmt.Errorf("unknown verification kind %q", kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[name]; ok {
		return &DuplicateNameError{Name: name}
	}
	r.byName[name] = Descriptor{Name: name, Kind: kind, Steps: append([]string(nil), steps...)}
	r.order = append(r.order, name)
	return nil
}

func (r *Registry) RegisterHandler(name string) error {
	return r.Register(name, KindDirect)
}

func (r *Registry) RegisterWorkflow(name string, steps ...string) error {
	return r.Register(name, KindMultistep, steps...)
}

func (r *Registry) Resolve(name string) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byName[name]
	if !ok {
		return Descriptor{}, &NotFoundError{Name: name}
	}
	d.Steps = append([]string(nil), d.Steps...)
	return d, nil
}

func (r *Registry) Classify(name string) (Kind, error) {
	d, err := r.Resolve(name)
	if err != nil {
		return "", err
	}
	return d.Kind, nil
}

// Names returns every registered name in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string{}, r.order...)
}

// ListHandlers returns the direct handler names in registration order.
func (r *Registry) ListHandlers() []string {
	out := []string{}
	for _, d := range r.byKind(KindDirect) {
		out = append(out, d.Name)
	}
	return out
}

func (r *Registry) ListWorkflows() []Descriptor {
	return r.byKind(KindMultistep)
}

// Methods lists handlers first, then workflows, each group in registration order.
func (r *Registry) Methods() []Descriptor {
	return append(r.byKind(KindDirect), r.byKind(KindMultistep)...)
}

func (r *Registry) byKind(kind Kind) []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Descriptor{}
	for _, name := range r.order {
		if d := r.byName[name]; d.Kind == kind {
			d.Steps = append([]string(nil), d.Steps...)
			out = append(out, d)
		}
	}
	return out
}

// File is the on-disk registry layout.
type File struct {
	Handlers  []string `yaml:"handlers"`
	Workflows []struct {
		Name  string   `yaml:"name"`
		Steps []string `yaml:"steps"`
	} `yaml:"workflows"`
}

func Parse(data []byte) (*Registry, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse verifications file: %w", err)
	}

	r := NewRegistry()
	for _, h := range f.Handlers {
		if err := r.RegisterHandler(h); err != nil {
			return nil, err
		}
	}
	for _, w := range f.Workflows {
		if err := r.RegisterWorkflow(w.Name, w.Steps...); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// LoadFile reads a registry from a YAML file.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read verifications file: %w", err)
	}
	return Parse(data)
}
