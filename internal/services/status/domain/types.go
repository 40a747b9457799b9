// Package domain defines the status service's types and ports
package domain

import "seqrun/internal/platform/sched"

// Phase is the single word a run's state collapses to
type Phase int

const (
	// PhaseUnknown means the run's state could not be determined
	PhaseUnknown Phase = iota
	// PhaseCreating means batches are still being prepared
	PhaseCreating
	// PhaseSubmitting means submission started but no job ids are recorded yet
	PhaseSubmitting
	// PhaseRunning means jobs are queued or executing
	PhaseRunning
	// PhaseSuccess means every job finished cleanly
	PhaseSuccess
	// PhaseFailure means at least one job failed or submission never landed
	PhaseFailure
	// PhaseDeleting means cleanup has run against this run's resources
	PhaseDeleting
)

var phaseNames = map[Phase]string{
	PhaseUnknown:    "UNKNOWN",
	PhaseCreating:   "CREATING",
	PhaseSubmitting: "SUBMITTING",
	PhaseRunning:    "RUNNING",
	PhaseSuccess:    "SUCCESS",
	PhaseFailure:    "FAILURE",
	PhaseDeleting:   "DELETING",
}

func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return "UNKNOWN"
}

// ExitCode maps a phase onto the status process exit code contract
func (p Phase) ExitCode() int {
	switch p {
	case PhaseSuccess:
		return 0
	case PhaseFailure:
		return 1
	case PhaseCreating:
		return 2
	case PhaseSubmitting:
		return 3
	case PhaseRunning:
		return 4
	case PhaseDeleting:
		return 5
	}
	return 6
}

// Terminal reports whether the phase can no longer change
func (p Phase) Terminal() bool { return p == PhaseSuccess || p == PhaseFailure }

// Snapshot is one observation of a run
type Snapshot struct {
	Phase  Phase        `json:"phase"`
	Counts sched.Counts `json:"counts"`
}
