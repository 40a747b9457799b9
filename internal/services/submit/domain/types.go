// Package domain defines the submit service's types and ports
package domain

// Summary reports what a submission attempt achieved
type Summary struct {
	// Expected is the number of batches the manifest called for
	Expected int `json:"expected"`
	// Submitted is the number of jobs the scheduler accepted
	Submitted int `json:"submitted"`
	// JobIDs are the scheduler-assigned ids, in batch ordinal order
	JobIDs []string `json:"job-ids"`
}

// Complete reports whether every expected job was accepted
func (s Summary) Complete() bool { return s.Submitted == s.Expected }
