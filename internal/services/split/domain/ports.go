package domain

import "context"

// SplitterPort is the external port for the split stage
type SplitterPort interface {
	// Run splits the inputs, read in order as one concatenated collection,
	// into batches under the run's results space and records the batch
	// manifest and query length in run metadata
	Run(ctx context.Context, inputs []string) (Summary, error)
}
