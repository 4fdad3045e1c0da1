package experiment

import (
	"fmt"
	"sort"

	"github.com/FrankErrickson/Utilitarianism/internal/model"
	"github.com/FrankErrickson/Utilitarianism/internal/model/stylized"
	"gonum.org/v1/gonum/mat"
)

// ModelBuilder binds a backstop matrix to a model implementation.
type ModelBuilder func(backstop *mat.Dense) model.Factory

type Registry struct {
	models map[string]ModelBuilder
}

func NewRegistry() *Registry {
	r := &Registry{
		models: make(map[string]ModelBuilder),
	}

	r.models["stylized"] = func(backstop *mat.Dense) model.Factory {
		return stylized.Factory(backstop, stylized.DefaultOptions())
	}

	return r
}

// Register adds or replaces a model.
func (r *Registry) Register(name string, b ModelBuilder) {
	r.models[name] = b
}

func (r *Registry) GetModel(name string, backstop *mat.Dense) (model.Factory, error) {
	fn, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s (available: %v)", name, r.ListModels())
	}
	return fn(backstop), nil
}

func (r *Registry) ListModels() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
