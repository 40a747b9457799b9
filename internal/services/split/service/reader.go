package service

import (
	"io"
	"strings"

	perr "seqrun/internal/platform/errors"
	"seqrun/internal/platform/storage"
)

// record is one FASTA sequence: the defline plus its sequence lines.
// Lines keep their terminators; the final line of the input may lack one.
type record struct {
	lines    []string
	residues int64
}

// recordReader frames a line stream into FASTA records. A record is never
// split: the defline and every sequence line up to the next defline travel
// together.
type recordReader struct {
	src    storage.LineSource
	header string // next defline, buffered after overshoot
	primed bool
}

func newRecordReader(src storage.LineSource) *recordReader {
	return &recordReader{src: src}
}

// Next returns the next record or io.EOF. Blank lines between records are
// dropped; non-FASTA content before the first defline fails with Decode.
func (r *recordReader) Next() (record, error) {
	var rec record
	if r.primed {
		rec.lines = append(rec.lines, r.header)
		r.primed = false
	}
	for {
		line, err := r.src.Next()
		if err == io.EOF {
			if len(rec.lines) > 0 {
				return rec, nil
			}
			return record{}, io.EOF
		}
		if err != nil {
			return record{}, err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.HasPrefix(line, ">") {
			if len(rec.lines) > 0 {
				// overshoot: hold the defline for the next record
				r.header = line
				r.primed = true
				return rec, nil
			}
			rec.lines = append(rec.lines, line)
			continue
		}
		if len(rec.lines) == 0 {
			return record{}, perr.Decodef("input is not in FASTA format: %q", strings.TrimRight(line, "\n"))
		}
		rec.lines = append(rec.lines, line)
		rec.residues += int64(len(strings.TrimRight(line, "\r\n")))
	}
}
