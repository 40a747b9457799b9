// Package modkit provides module wiring and core deps
package modkit

import (
	"seqrun/internal/platform/config"
	"seqrun/internal/platform/logger"
	"seqrun/internal/platform/sched"
	"seqrun/internal/platform/storage"
)

// Deps holds core dependencies passed to modules
// this is wiring only and does not introduce new abstractions
type Deps struct {
	Log   logger.Logger
	Cfg   config.Conf
	Store *storage.Store
	Sched sched.Scheduler
}

// ZeroOK returns true when deps are safe to use with zero values in tests
// consumers should still nil check for optional collaborators
func (d Deps) ZeroOK() bool { return true }
