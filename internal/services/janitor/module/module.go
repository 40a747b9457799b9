// Package module implements the janitor module
package module

import (
	"seqrun/internal/modkit"
	"seqrun/internal/platform/runcfg"
	"seqrun/internal/services/janitor/domain"
	"seqrun/internal/services/janitor/service"
	statusservice "seqrun/internal/services/status/service"
)

// Ports exposed by the janitor module
type Ports struct {
	Janitor domain.JanitorPort
}

// Module implements modkit.Module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs a new janitor module
func New(deps modkit.Deps, run runcfg.Config, opts ...modkit.Option) *Module {
	_ = modkit.Build(append([]modkit.Option{
		modkit.WithName("janitor"),
	}, opts...)...)

	if deps.Store == nil || deps.Sched == nil {
		panic("janitor module: Deps missing Store or Sched")
	}

	m := &Module{deps: deps}
	m.ports = Ports{
		Janitor: service.New(deps.Store, deps.Sched, statusservice.New(deps.Store, deps.Sched, run), run),
	}
	return m
}

// Name satisfies modkit.Module
func (m *Module) Name() string { return "janitor" }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }
