package models

import (
	"fmt"
	"sort"

	"github.com/mhelwig/odefit/internal/dynamo"
)

// Registry maps model names to constructors. Every call to Build returns
// a fresh instance, so callers may mutate parameters freely.
type Registry struct {
	models map[string]func() dynamo.System
}

func NewRegistry() *Registry {
	return &Registry{models: make(map[string]func() dynamo.System)}
}

// Default returns a registry with all built-in models.
func Default() *Registry {
	r := NewRegistry()
	r.Register("conversion", func() dynamo.System { return NewConversion() })
	r.Register("lotka_volterra", func() dynamo.System { return NewLotkaVolterra() })
	r.Register("sir", func() dynamo.System { return NewSIR() })
	r.Register("logistic", func() dynamo.System { return NewLogistic() })
	return r
}

func (r *Registry) Register(name string, fn func() dynamo.System) {
	r.models[name] = fn
}

func (r *Registry) Build(name string) (dynamo.System, error) {
	fn, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s (known: %v)", name, r.Names())
	}
	return fn(), nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
