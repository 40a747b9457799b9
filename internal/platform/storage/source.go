package storage

import (
	"archive/tar"
	"bufio"
	"compress/bzip2"
	"compress/gzip"
	stderrs "errors"
	"io"

	perr "seqrun/internal/platform/errors"
)

// LineSource is the single reading contract the batcher depends on: one line
// at a time, terminator included when the input had one, io.EOF at the end.
// Implemented once here over any backend byte stream instead of adapting
// foreign stream objects at call sites.
type LineSource interface {
	Next() (string, error)
	Close() error
}

type lineReader struct {
	br  *bufio.Reader
	rc  io.ReadCloser
	loc string
}

// NewLineSource wraps an already-unpacked byte stream as a LineSource
func NewLineSource(rc io.ReadCloser, loc string) LineSource {
	return &lineReader{br: bufio.NewReaderSize(rc, 64*1024), rc: rc, loc: loc}
}

func (l *lineReader) Next() (string, error) {
	line, err := l.br.ReadString('\n')
	if err == nil {
		return line, nil
	}
	if stderrs.Is(err, io.EOF) {
		if line != "" {
			// final line without terminator
			return line, nil
		}
		return "", io.EOF
	}
	return "", perr.WithLoc(classifyReadErr(err), l.loc)
}

func (l *lineReader) Close() error { return l.rc.Close() }

// classifyReadErr maps stream errors onto the input-error taxonomy
func classifyReadErr(err error) error {
	if _, ok := perr.As(err); ok {
		return err
	}
	switch {
	case stderrs.Is(err, gzip.ErrHeader), stderrs.Is(err, gzip.ErrChecksum):
		return perr.Wrap(err, perr.ErrorCodeDecode, "corrupt gzip stream")
	case stderrs.Is(err, tar.ErrHeader), stderrs.Is(err, tar.ErrInsecurePath):
		return perr.Wrap(err, perr.ErrorCodeArchive, "corrupt tar archive")
	}
	return perr.Wrap(err, perr.ErrorCodeIO, "read failed")
}

// unpack composes the decompressor/archive-merge transformers a location's
// suffix calls for on top of the raw byte stream
func unpack(rc io.ReadCloser, loc Location) (io.ReadCloser, error) {
	switch loc.Pack {
	case PackNone:
		return rc, nil
	case PackGzip:
		zr, err := gzip.NewReader(rc)
		if err != nil {
			_ = rc.Close()
			return nil, perr.WithLoc(perr.Wrap(err, perr.ErrorCodeDecode, "corrupt gzip stream"), loc.Raw)
		}
		return &wrappedStream{r: zr, close: rc.Close}, nil
	case PackTar:
		return &wrappedStream{r: newTarMerge(rc), close: rc.Close}, nil
	case PackTarGz:
		zr, err := gzip.NewReader(rc)
		if err != nil {
			_ = rc.Close()
			return nil, perr.WithLoc(perr.Wrap(err, perr.ErrorCodeDecode, "corrupt gzip stream"), loc.Raw)
		}
		return &wrappedStream{r: newTarMerge(zr), close: rc.Close}, nil
	case PackTarBz2:
		return &wrappedStream{r: newTarMerge(bzip2.NewReader(rc)), close: rc.Close}, nil
	}
	return rc, nil
}

// wrappedStream pairs a transformed reader with the underlying closer
type wrappedStream struct {
	r     io.Reader
	close func() error
}

func (w *wrappedStream) Read(p []byte) (int, error) { return w.r.Read(p) }
func (w *wrappedStream) Close() error               { return w.close() }

// tarMerge reads every regular member of a tar archive as one logical stream,
// in archive member order, as if the member contents were concatenated.
// A line terminator is injected between members when the previous member did
// not end with one, so member boundaries never glue two lines together.
type tarMerge struct {
	tr        *tar.Reader
	inMember  bool
	sawBytes  bool
	lastByte  byte
	injectSep bool
}

func newTarMerge(r io.Reader) *tarMerge {
	return &tarMerge{tr: tar.NewReader(r)}
}

func (m *tarMerge) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		if m.injectSep {
			m.injectSep = false
			p[0] = '\n'
			return 1, nil
		}
		if !m.inMember {
			if err := m.advance(); err != nil {
				return 0, err
			}
		}
		n, err := m.tr.Read(p)
		if n > 0 {
			m.sawBytes = true
			m.lastByte = p[n-1]
			return n, nil
		}
		if err == io.EOF {
			m.inMember = false
			if m.sawBytes && m.lastByte != '\n' {
				m.injectSep = true
			}
			continue
		}
		if err != nil {
			return 0, perr.Wrap(err, perr.ErrorCodeArchive, "corrupt tar archive")
		}
	}
}

// advance positions the reader at the next regular member
func (m *tarMerge) advance() error {
	for {
		hdr, err := m.tr.Next()
		if err == io.EOF {
			return io.EOF
		}
		if err != nil {
			return perr.Wrap(err, perr.ErrorCodeArchive, "corrupt tar archive")
		}
		if !hdr.FileInfo().Mode().IsRegular() {
			continue
		}
		m.inMember = true
		m.sawBytes = false
		return nil
	}
}
