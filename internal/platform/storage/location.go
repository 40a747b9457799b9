// Package storage provides uniform byte and line stream access to local
// files, object storage, and HTTP/FTP sources, with transparent
// decompression, archive merge, and staged bulk writes
package storage

import (
	"path"
	"regexp"
	"strings"

	perr "seqrun/internal/platform/errors"
)

// Backend identifies the storage backend a location resolves to
type Backend int

const (
	// BackendLocal is the local filesystem
	BackendLocal Backend = iota
	// BackendS3 is S3-compatible object storage
	BackendS3
	// BackendHTTP is an http(s) URL, GET and HEAD only
	BackendHTTP
	// BackendFTP is an ftp URL, read only
	BackendFTP
)

// Packing identifies compression/archive handling inferred from a suffix
type Packing int

const (
	// PackNone is a plain byte stream
	PackNone Packing = iota
	// PackGzip is single-file gzip compression
	PackGzip
	// PackTar is an uncompressed tar archive, members merged in order
	PackTar
	// PackTarGz is a gzip-compressed tar archive
	PackTarGz
	// PackTarBz2 is a bzip2-compressed tar archive
	PackTarBz2
)

// Location is a resolved source or destination. Immutable once resolved.
type Location struct {
	Raw     string
	Backend Backend
	Pack    Packing
}

const (
	s3Prefix   = "s3://"
	gcsPrefix  = "gs://"
	azPrefix   = "az://"
	ftpPrefix  = "ftp://"
	httpPrefix = "http"
)

var reScheme = regexp.MustCompile(`^[a-z][a-z0-9+.-]*://`)

// Resolve parses a raw path/URI into a Location. Schemes that are known but
// not wired in (gs://, az://) and schemes that are not recognized at all fail
// with an UnsupportedBackend error instead of being silently attempted.
func Resolve(raw string) (Location, error) {
	loc := Location{Raw: raw, Pack: detectPacking(raw)}
	switch {
	case strings.HasPrefix(raw, s3Prefix):
		loc.Backend = BackendS3
	case strings.HasPrefix(raw, httpPrefix) && reScheme.MatchString(raw):
		loc.Backend = BackendHTTP
	case strings.HasPrefix(raw, ftpPrefix):
		loc.Backend = BackendFTP
	case strings.HasPrefix(raw, gcsPrefix), strings.HasPrefix(raw, azPrefix):
		return Location{}, perr.WithLoc(perr.UnsupportedBackendf("storage backend for %q is not wired in", raw), raw)
	case reScheme.MatchString(raw):
		return Location{}, perr.WithLoc(perr.UnsupportedBackendf("unrecognized storage scheme in %q", raw), raw)
	default:
		loc.Backend = BackendLocal
	}
	return loc, nil
}

// detectPacking infers compression/archive handling from the name suffix
func detectPacking(raw string) Packing {
	switch {
	case strings.HasSuffix(raw, ".tar"):
		return PackTar
	case strings.HasSuffix(raw, ".tar.gz"), strings.HasSuffix(raw, ".tgz"):
		return PackTarGz
	case strings.HasSuffix(raw, ".tar.bz2"):
		return PackTarBz2
	case strings.HasSuffix(raw, ".gz"):
		return PackGzip
	}
	return PackNone
}

// IsTar reports whether the packing is any archive variant
func (p Packing) IsTar() bool { return p == PackTar || p == PackTarGz || p == PackTarBz2 }

// Remote reports whether the backend needs network calls
func (b Backend) Remote() bool { return b != BackendLocal }

// ParseBucketKey splits an object-store URI into bucket and key.
// Both "s3://bucket/dir/file" and "bucket/dir/file" forms are accepted.
func ParseBucketKey(raw string) (bucket, key string) {
	bare := strings.TrimPrefix(raw, s3Prefix)
	parts := strings.SplitN(bare, "/", 2)
	bucket = parts[0]
	if len(parts) == 2 {
		key = parts[1]
	}
	return bucket, key
}

// Parent returns the parent path of a location, URI prefixes preserved
func Parent(raw string) string {
	i := strings.LastIndex(raw, "/")
	if i < 0 {
		return ""
	}
	return raw[:i]
}

// Base returns the last path element of a location
func Base(raw string) string { return path.Base(raw) }

// Join joins path elements onto a possibly URI-prefixed base with "/"
func Join(base string, elems ...string) string {
	out := strings.TrimRight(base, "/")
	for _, e := range elems {
		out += "/" + strings.Trim(e, "/")
	}
	return out
}
