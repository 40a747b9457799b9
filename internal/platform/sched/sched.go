// Package sched defines the job scheduler collaborator contract used by
// submission, status, and cleanup
package sched

import "context"

// JobDescriptor is one fully rendered job ready for submission
type JobDescriptor struct {
	// Ordinal is the zero-based batch number the job processes
	Ordinal int
	// Name is the scheduler-visible job name
	Name string
	// BatchFQN is the fully qualified location of the input batch
	BatchFQN string
	// Spec is the rendered job specification document
	Spec string
}

// Counts aggregates job states at one observation instant
type Counts struct {
	Pending int `json:"pending"`
	Running int `json:"running"`
	Failed  int `json:"failed"`
	Done    int `json:"done"`
}

// Total returns the number of jobs observed
func (c Counts) Total() int { return c.Pending + c.Running + c.Failed + c.Done }

// Scheduler is the narrow contract a compute backend must satisfy.
// Apply submits one group of jobs and returns their scheduler-assigned ids
// in descriptor order; a partially submitted group returns the ids that were
// accepted alongside the error.
type Scheduler interface {
	Apply(ctx context.Context, group []JobDescriptor) ([]string, error)
	Counts(ctx context.Context, jobIDs []string) (Counts, error)
	Scale(ctx context.Context, nodes int) error
	Teardown(ctx context.Context, jobIDs []string) error
}
