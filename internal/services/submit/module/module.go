// Package module implements the submit module
package module

import (
	"seqrun/internal/modkit"
	"seqrun/internal/platform/runcfg"
	"seqrun/internal/services/submit/domain"
	"seqrun/internal/services/submit/service"
)

// Ports exposed by the submit module
type Ports struct {
	Submitter domain.SubmitterPort
}

// Module implements modkit.Module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs a new submit module
func New(deps modkit.Deps, run runcfg.Config, cfg service.Config, opts ...modkit.Option) *Module {
	_ = modkit.Build(append([]modkit.Option{
		modkit.WithName("submit"),
	}, opts...)...)

	if deps.Store == nil || deps.Sched == nil {
		panic("submit module: Deps missing Store or Sched")
	}

	m := &Module{deps: deps}
	m.ports = Ports{
		Submitter: service.New(deps.Store, deps.Sched, run, cfg),
	}
	return m
}

// Name satisfies modkit.Module
func (m *Module) Name() string { return "submit" }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }
