// Package service implements the split service
package service

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"

	perr "seqrun/internal/platform/errors"
	"seqrun/internal/platform/logger"
	"seqrun/internal/platform/runcfg"
	"seqrun/internal/platform/storage"
	"seqrun/internal/services/split/domain"
)

// Service implements domain.SplitterPort
type Service struct {
	Store *storage.Store
	Cfg   runcfg.Config
}

// New constructs a new split service
func New(st *storage.Store, cfg runcfg.Config) *Service {
	return &Service{Store: st, Cfg: cfg}
}

// Run splits the inputs, read in order as one concatenated collection, into
// batches. Batches are staged locally and shipped in one flush after the
// split succeeds, so a failed split leaves no partial batch set behind.
func (s *Service) Run(ctx context.Context, inputs []string) (domain.Summary, error) {
	if len(inputs) == 0 {
		return domain.Summary{}, perr.EmptyInputf("no inputs given")
	}

	threshold := int64(s.Cfg.BatchLen)
	step := threshold
	if s.Cfg.NumBatches > 0 {
		total, err := s.totalResidues(ctx, inputs)
		if err != nil {
			return domain.Summary{}, err
		}
		step = int64(math.Round(float64(total) / float64(s.Cfg.NumBatches)))
		if step < 1 {
			step = 1
		}
		threshold = step
	}

	stg := storage.NewStaging()
	defer stg.Discard()

	var (
		cur     []record
		curLen  int64
		sealed  int64
		sum     domain.Summary
		ordinal int
	)
	seal := func() error {
		if len(cur) == 0 {
			return nil
		}
		fqn := s.Cfg.BatchFQN(ordinal)
		if err := s.writeBatch(stg, fqn, cur); err != nil {
			return err
		}
		sum.Batches = append(sum.Batches, fqn)
		sealed += curLen
		cur, curLen = nil, 0
		ordinal++
		return nil
	}

	err := s.eachRecord(ctx, inputs, func(rec record) error {
		over := curLen+rec.residues > int64(s.Cfg.BatchLen)
		if s.Cfg.NumBatches > 0 {
			// proportional mode compares against a cumulative threshold so
			// early oversized batches don't starve the remaining ones
			over = sealed+curLen+rec.residues > threshold
		}
		if curLen > 0 && over {
			if err := seal(); err != nil {
				return err
			}
			if s.Cfg.NumBatches > 0 {
				threshold += step
			}
		}
		cur = append(cur, rec)
		curLen += rec.residues
		sum.QueryLength += rec.residues
		sum.Records++
		return nil
	})
	if err != nil {
		return domain.Summary{}, err
	}
	if err := seal(); err != nil {
		return domain.Summary{}, err
	}

	if sum.Records == 0 {
		joined := strings.Join(inputs, ", ")
		return domain.Summary{}, perr.WithLoc(perr.EmptyInputf("%s holds no sequence records", joined), joined)
	}

	if err := s.writeMetadata(ctx, stg, sum); err != nil {
		return domain.Summary{}, err
	}
	if err := s.Store.Flush(ctx, stg); err != nil {
		return domain.Summary{}, err
	}
	logger.C(ctx).Info().
		Int("batches", len(sum.Batches)).
		Int64("query_length", sum.QueryLength).
		Int("records", sum.Records).
		Msg("split complete")
	return sum, nil
}

// eachRecord streams records from every input in order, presenting the set
// as one concatenated collection
func (s *Service) eachRecord(ctx context.Context, inputs []string, fn func(record) error) error {
	for _, input := range inputs {
		src, err := s.Store.OpenRead(ctx, input)
		if err != nil {
			return err
		}
		rr := newRecordReader(src)
		for {
			rec, err := rr.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				_ = src.Close()
				return err
			}
			if err := fn(rec); err != nil {
				_ = src.Close()
				return err
			}
		}
		_ = src.Close()
	}
	return nil
}

// totalResidues pre-reads the inputs to size proportional batches
func (s *Service) totalResidues(ctx context.Context, inputs []string) (int64, error) {
	var total int64
	err := s.eachRecord(ctx, inputs, func(rec record) error {
		total += rec.residues
		return nil
	})
	return total, err
}

// writeBatch writes one sealed batch. Every batch ends with a line
// terminator even when the source's final line lacked one.
func (s *Service) writeBatch(stg *storage.Staging, fqn string, recs []record) error {
	w, err := s.Store.OpenWrite(stg, fqn)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		for _, line := range rec.lines {
			if _, err := io.WriteString(w, line); err != nil {
				_ = w.Close()
				return perr.WithLoc(perr.Wrap(err, perr.ErrorCodeIO, "batch write failed"), fqn)
			}
		}
		last := rec.lines[len(rec.lines)-1]
		if !strings.HasSuffix(last, "\n") {
			if _, err := io.WriteString(w, "\n"); err != nil {
				_ = w.Close()
				return perr.WithLoc(perr.Wrap(err, perr.ErrorCodeIO, "batch write failed"), fqn)
			}
		}
	}
	if err := w.Close(); err != nil {
		return perr.WithLoc(perr.Wrap(err, perr.ErrorCodeIO, "batch write failed"), fqn)
	}
	return nil
}

// writeMetadata records the batch manifest and query length alongside the
// batches so later stages agree on the run's shape
func (s *Service) writeMetadata(ctx context.Context, stg *storage.Staging, sum domain.Summary) error {
	var manifest strings.Builder
	for _, fqn := range sum.Batches {
		manifest.WriteString(fqn)
		manifest.WriteByte('\n')
	}
	if err := s.Store.WriteAll(ctx, s.Cfg.MetadataFile(runcfg.FileBatchList), []byte(manifest.String())); err != nil {
		return err
	}
	qlen := fmt.Sprintf("%d\n", sum.QueryLength)
	if err := s.Store.WriteAll(ctx, s.Cfg.MetadataFile(runcfg.FileQueryLength), []byte(qlen)); err != nil {
		return err
	}
	return s.Cfg.Save(ctx, s.Store)
}
