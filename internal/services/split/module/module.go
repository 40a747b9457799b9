// Package module implements the split module
package module

import (
	"seqrun/internal/modkit"
	"seqrun/internal/platform/runcfg"
	"seqrun/internal/services/split/domain"
	"seqrun/internal/services/split/service"
)

// Ports exposed by the split module
type Ports struct {
	Splitter domain.SplitterPort
}

// Module implements modkit.Module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs a new split module
func New(deps modkit.Deps, run runcfg.Config, opts ...modkit.Option) *Module {
	_ = modkit.Build(append([]modkit.Option{
		modkit.WithName("split"),
	}, opts...)...)

	if deps.Store == nil {
		panic("split module: Deps missing Store")
	}

	m := &Module{deps: deps}
	m.ports = Ports{
		Splitter: service.New(deps.Store, run),
	}
	return m
}

// Name satisfies modkit.Module
func (m *Module) Name() string { return "split" }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }
