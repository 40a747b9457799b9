package domain

import "context"

// SubmitterPort is the external port for the submit stage
type SubmitterPort interface {
	// Run renders one job per batch from the template and submits them in
	// bounded groups. What was accepted is recorded in run metadata even
	// when submission fails partway.
	Run(ctx context.Context, template string) (Summary, error)
}
