// Package domain defines the janitor service's types and ports
package domain

import "context"

// Summary reports what a sweep did
type Summary struct {
	// AlreadyDone means a previous sweep finished and nothing was touched
	AlreadyDone bool `json:"already-done"`
	// Pending means the run has not reached a terminal phase yet and was
	// left alone
	Pending bool `json:"pending"`
	// JobsTorn is how many recorded jobs were handed to teardown
	JobsTorn int `json:"jobs-torn"`
	// BatchesDeleted means the intermediate batch files were removed
	BatchesDeleted bool `json:"batches-deleted"`
}

// JanitorPort is the external port for the cleanup stage
type JanitorPort interface {
	// Sweep checks the run's phase and, once it is terminal, records the
	// result sentinel and tears down the run's compute resources and
	// intermediate data. A run still in flight is a no-op. Safe to call
	// repeatedly: a finished sweep is a no-op too. Force sweeps without
	// consulting the phase.
	Sweep(ctx context.Context, force bool) (Summary, error)
}
