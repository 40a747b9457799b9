// Package runcfg holds the per-run configuration document and the layout of
// a run's results space
package runcfg

import (
	"context"
	"encoding/json"
	"fmt"

	"seqrun/internal/platform/config"
	perr "seqrun/internal/platform/errors"
	"seqrun/internal/platform/storage"

	"github.com/go-playground/validator/v10"
)

// Sentinel file names written at the results root
const (
	SentinelSuccess          = "SUCCESS"
	SentinelFailure          = "FAILURE"
	SentinelDone             = "DONE"
	SentinelFailedSubmission = "FAILED_SUBMISSION"
)

// Metadata file names under the metadata directory
const (
	FileBatchList     = "batch_list.txt"
	FileQueryLength   = "query_length.txt"
	FileJobsSubmitted = "num_jobs_submitted.txt"
	FileJobIDs        = "job-ids.json"
	FileRunConfig     = "run-config.json"
)

// BatchNameFmt names batch files so lexical order is ordinal order
const BatchNameFmt = "batch_%03d.fa"

// Config describes one run. It is written once at split time and read back
// by every later stage, so stages agree on the run's shape without re-deriving
// it from flags.
type Config struct {
	Results    string `json:"results" validate:"required"`
	Cluster    string `json:"cluster" validate:"required"`
	Region     string `json:"region"`
	NumNodes   int    `json:"num-nodes" validate:"gte=1"`
	BatchLen   int    `json:"batch-len" validate:"gte=1"`
	NumBatches int    `json:"num-batches" validate:"gte=0"`

	Queue      string `json:"queue"`
	Definition string `json:"job-definition"`
	Stack      string `json:"stack"`
}

var validate = validator.New()

// FromEnv builds a Config from SEQRUN_* variables via the env accessor.
// Required keys panic when missing, the process-boundary convention.
func FromEnv(cfg config.Conf) Config {
	c := cfg.Prefix("SEQRUN_")
	return Config{
		Results:    c.MustString("RESULTS"),
		Cluster:    c.MustString("CLUSTER"),
		Region:     c.MayString("REGION", ""),
		NumNodes:   c.MayInt("NUM_NODES", 1),
		BatchLen:   c.MayInt("BATCH_LEN", 5_000_000),
		NumBatches: c.MayInt("NUM_BATCHES", 0),
		Queue:      c.MayString("QUEUE", ""),
		Definition: c.MayString("JOB_DEFINITION", ""),
		Stack:      c.MayString("STACK", ""),
	}
}

// Validate checks the structural constraints
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return perr.Wrap(err, perr.ErrorCodeInvalid, "invalid run configuration")
	}
	return nil
}

// MetadataDir is the run's metadata directory
func (c Config) MetadataDir() string { return storage.Join(c.Results, "metadata") }

// MetadataFile locates a metadata file by name
func (c Config) MetadataFile(name string) string { return storage.Join(c.MetadataDir(), name) }

// BatchDir is the directory holding split query batches
func (c Config) BatchDir() string { return storage.Join(c.Results, "query_batches") }

// BatchFQN locates the batch with the given ordinal
func (c Config) BatchFQN(ordinal int) string {
	return storage.Join(c.BatchDir(), fmt.Sprintf(BatchNameFmt, ordinal))
}

// Sentinel locates a sentinel file at the results root
func (c Config) Sentinel(name string) string { return storage.Join(c.Results, name) }

// Save writes the configuration document into the run's metadata space
func (c Config) Save(ctx context.Context, st *storage.Store) error {
	if err := c.Validate(); err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnknown, "cannot encode run configuration")
	}
	return st.WriteAll(ctx, c.MetadataFile(FileRunConfig), append(b, '\n'))
}

// Load reads a previously saved configuration from a results location
func Load(ctx context.Context, st *storage.Store, results string) (Config, error) {
	raw := storage.Join(results, "metadata", FileRunConfig)
	b, err := st.ReadAll(ctx, raw)
	if err != nil {
		return Config{}, err
	}
	var c Config
	if err := json.Unmarshal(b, &c); err != nil {
		return Config{}, perr.WithLoc(perr.Wrap(err, perr.ErrorCodeDecode, "corrupt run configuration"), raw)
	}
	if err := c.Validate(); err != nil {
		return Config{}, perr.WithLoc(err, raw)
	}
	return c, nil
}
