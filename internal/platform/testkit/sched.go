package testkit

import (
	"context"
	"fmt"
	"sync"

	"seqrun/internal/platform/sched"
)

// FakeScheduler is an in-memory sched.Scheduler. ApplyErrs is consumed one
// entry per Apply call; a nil entry means success. FailAfter, when >= 0, caps
// how many jobs of a group are accepted before the error fires, modelling a
// mid-group partial submission.
type FakeScheduler struct {
	mu        sync.Mutex
	next      int
	ApplyErrs []error
	FailAfter int
	CountsVal sched.Counts
	CountsErr error

	Applied   [][]sched.JobDescriptor
	Scaled    []int
	TornDown  [][]string
	ScaleErr  error
	TeardownE error
}

// NewFakeScheduler returns a FakeScheduler that accepts everything
func NewFakeScheduler() *FakeScheduler {
	return &FakeScheduler{FailAfter: -1}
}

// Apply implements sched.Scheduler
func (f *FakeScheduler) Apply(_ context.Context, group []sched.JobDescriptor) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var callErr error
	if len(f.ApplyErrs) > 0 {
		callErr = f.ApplyErrs[0]
		f.ApplyErrs = f.ApplyErrs[1:]
	}
	accepted := group
	if callErr != nil {
		accepted = nil
		if f.FailAfter >= 0 && f.FailAfter < len(group) {
			accepted = group[:f.FailAfter]
		}
	}
	f.Applied = append(f.Applied, accepted)
	ids := make([]string, 0, len(accepted))
	for range accepted {
		ids = append(ids, fmt.Sprintf("job-%04d", f.next))
		f.next++
	}
	return ids, callErr
}

// Counts implements sched.Scheduler
func (f *FakeScheduler) Counts(_ context.Context, _ []string) (sched.Counts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.CountsVal, f.CountsErr
}

// Scale implements sched.Scheduler
func (f *FakeScheduler) Scale(_ context.Context, nodes int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Scaled = append(f.Scaled, nodes)
	return f.ScaleErr
}

// Teardown implements sched.Scheduler
func (f *FakeScheduler) Teardown(_ context.Context, jobIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.TornDown = append(f.TornDown, jobIDs)
	return f.TeardownE
}

// Submitted returns every job id handed out so far
func (f *FakeScheduler) Submitted() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.next
}
