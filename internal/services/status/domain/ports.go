package domain

import "context"

// AggregatorPort is the external port for the status stage
type AggregatorPort interface {
	// Check derives the run's current phase. Terminal phases are pinned with
	// a sentinel so the answer never flips back once given.
	Check(ctx context.Context) (Snapshot, error)
}
