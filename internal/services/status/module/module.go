// Package module implements the status module
package module

import (
	"seqrun/internal/modkit"
	"seqrun/internal/platform/runcfg"
	"seqrun/internal/services/status/domain"
	"seqrun/internal/services/status/service"
)

// Ports exposed by the status module
type Ports struct {
	Aggregator domain.AggregatorPort
}

// Module implements modkit.Module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs a new status module
func New(deps modkit.Deps, run runcfg.Config, opts ...modkit.Option) *Module {
	_ = modkit.Build(append([]modkit.Option{
		modkit.WithName("status"),
	}, opts...)...)

	if deps.Store == nil || deps.Sched == nil {
		panic("status module: Deps missing Store or Sched")
	}

	m := &Module{deps: deps}
	m.ports = Ports{
		Aggregator: service.New(deps.Store, deps.Sched, run),
	}
	return m
}

// Name satisfies modkit.Module
func (m *Module) Name() string { return "status" }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }
