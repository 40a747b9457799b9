package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"

	perr "seqrun/internal/platform/errors"
	"seqrun/internal/platform/logger"

	"github.com/google/uuid"
)

// Store routes reads and writes to the backend a location resolves to.
// Obj may be nil when no object store is configured; object-store locations
// then fail with UnsupportedBackend instead of being silently attempted.
type Store struct {
	Obj  ObjectStore
	HTTP *http.Client
	FTP  FTPDialer
}

// New returns a Store over the given object store with default HTTP/FTP clients
func New(obj ObjectStore) *Store {
	return &Store{Obj: obj, HTTP: http.DefaultClient, FTP: dialFTP}
}

// object returns the configured object store or an UnsupportedBackend error
func (s *Store) object(raw string) (ObjectStore, error) {
	if s.Obj == nil {
		return nil, perr.WithLoc(perr.UnsupportedBackendf("object store not configured for %q", raw), raw)
	}
	return s.Obj, nil
}

// OpenRead opens a location as a logical line stream, decompression and
// archive merge composed per the location suffix
func (s *Store) OpenRead(ctx context.Context, raw string) (LineSource, error) {
	loc, err := Resolve(raw)
	if err != nil {
		return nil, err
	}
	rc, err := s.openRaw(ctx, loc)
	if err != nil {
		return nil, err
	}
	rc, err = unpack(rc, loc)
	if err != nil {
		return nil, err
	}
	return NewLineSource(rc, raw), nil
}

// openRaw opens the undecoded byte stream for a resolved location
func (s *Store) openRaw(ctx context.Context, loc Location) (io.ReadCloser, error) {
	switch loc.Backend {
	case BackendLocal:
		f, err := os.Open(loc.Raw)
		if err != nil {
			return nil, perr.WithLoc(classifyFSErr(err, loc.Raw), loc.Raw)
		}
		return f, nil
	case BackendS3:
		obj, err := s.object(loc.Raw)
		if err != nil {
			return nil, err
		}
		bucket, key := ParseBucketKey(loc.Raw)
		rc, err := obj.Get(ctx, bucket, key)
		if err != nil {
			return nil, perr.WithLoc(err, loc.Raw)
		}
		return rc, nil
	case BackendHTTP:
		return s.httpGet(ctx, loc.Raw)
	case BackendFTP:
		return s.ftpGet(ctx, loc.Raw)
	}
	return nil, perr.WithLoc(perr.UnsupportedBackendf("cannot read %q", loc.Raw), loc.Raw)
}

// OpenWrite opens a location for writing. Network-backed destinations are
// staged locally under the destination's parent path and shipped on Flush;
// local destinations are opened directly with parents created as needed.
func (s *Store) OpenWrite(stg *Staging, raw string) (io.WriteCloser, error) {
	loc, err := Resolve(raw)
	if err != nil {
		return nil, err
	}
	switch loc.Backend {
	case BackendLocal:
		if dir := filepath.Dir(raw); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, perr.WithLoc(perr.Wrap(err, perr.ErrorCodeIO, "cannot create output dir"), raw)
			}
		}
		f, err := os.Create(raw)
		if err != nil {
			return nil, perr.WithLoc(classifyFSErr(err, raw), raw)
		}
		return f, nil
	case BackendS3:
		if _, err := s.object(raw); err != nil {
			return nil, err
		}
		return stg.create(Parent(raw), Base(raw))
	}
	return nil, perr.WithLoc(perr.Permissionf("%q is not writable", raw), raw)
}

// Flush uploads everything staged under each destination parent and clears
// the staging context. Files are shipped in name order so batch ordinals
// land in manifest order.
func (s *Store) Flush(ctx context.Context, stg *Staging) error {
	for parent, dir := range stg.snapshot() {
		obj, err := s.object(parent)
		if err != nil {
			return err
		}
		bucket, prefix := ParseBucketKey(parent)
		entries, err := os.ReadDir(dir)
		if err != nil {
			return perr.Wrap(err, perr.ErrorCodeIO, "cannot list staging dir")
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if e.Type().IsRegular() {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)
		for i, name := range names {
			if err := s.putFile(ctx, obj, bucket, joinKey(prefix, name), filepath.Join(dir, name)); err != nil {
				return perr.WithLoc(err, Join(parent, name))
			}
			logger.C(ctx).Debug().
				Str("dest", Join(parent, name)).
				Int("n", i+1).
				Int("of", len(names)).
				Msg("uploaded staged file")
		}
		_ = os.RemoveAll(dir)
	}
	return nil
}

func (s *Store) putFile(ctx context.Context, obj ObjectStore, bucket, key, local string) error {
	f, err := os.Open(local)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeIO, "cannot open staged file")
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeIO, "cannot stat staged file")
	}
	return obj.Put(ctx, bucket, key, f, fi.Size())
}

// CheckReadable probes a location with an existence/metadata call, no full
// read. Returns the size when the backend reports one.
func (s *Store) CheckReadable(ctx context.Context, raw string) (int64, error) {
	loc, err := Resolve(raw)
	if err != nil {
		return 0, err
	}
	switch loc.Backend {
	case BackendLocal:
		fi, err := os.Stat(raw)
		if err != nil {
			return 0, perr.WithLoc(classifyFSErr(err, raw), raw)
		}
		return fi.Size(), nil
	case BackendS3:
		obj, err := s.object(raw)
		if err != nil {
			return 0, err
		}
		bucket, key := ParseBucketKey(raw)
		n, err := obj.Head(ctx, bucket, key)
		if err != nil {
			return 0, perr.WithLoc(err, raw)
		}
		return n, nil
	case BackendHTTP:
		return s.httpHead(ctx, raw)
	case BackendFTP:
		return s.ftpHead(ctx, raw)
	}
	return 0, perr.WithLoc(perr.UnsupportedBackendf("cannot probe %q", raw), raw)
}

// CheckWritable probes a directory for writability. File-based backends do a
// probe write-then-delete; object-store directories are considered writable
// (keys need not pre-exist); read-only backends fail with Permission.
func (s *Store) CheckWritable(ctx context.Context, dir string) error {
	loc, err := Resolve(dir)
	if err != nil {
		return err
	}
	switch loc.Backend {
	case BackendLocal:
		probe := filepath.Join(dir, ".write-probe-"+uuid.NewString()[:10])
		f, err := os.Create(probe)
		if err != nil {
			return perr.WithLoc(perr.Wrap(err, perr.ErrorCodePermission, "directory is not writable"), dir)
		}
		_ = f.Close()
		if err := os.Remove(probe); err != nil {
			return perr.WithLoc(perr.Wrap(err, perr.ErrorCodePermission, "cannot remove write probe"), dir)
		}
		return nil
	case BackendS3:
		_, err := s.object(dir)
		return err
	}
	return perr.WithLoc(perr.Permissionf("%q is not writable", dir), dir)
}

// ReadAll slurps a whole location through the unpack chain
func (s *Store) ReadAll(ctx context.Context, raw string) ([]byte, error) {
	src, err := s.OpenReadRaw(ctx, raw)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	b, err := io.ReadAll(src)
	if err != nil {
		return nil, perr.WithLoc(classifyReadErr(err), raw)
	}
	return b, nil
}

// OpenReadRaw opens the unpacked byte stream without the line framing
func (s *Store) OpenReadRaw(ctx context.Context, raw string) (io.ReadCloser, error) {
	loc, err := Resolve(raw)
	if err != nil {
		return nil, err
	}
	rc, err := s.openRaw(ctx, loc)
	if err != nil {
		return nil, err
	}
	return unpack(rc, loc)
}

// WriteAll writes a small object immediately, bypassing staging. Used for
// metadata and sentinel writes that must be durable on their own.
func (s *Store) WriteAll(ctx context.Context, raw string, b []byte) error {
	loc, err := Resolve(raw)
	if err != nil {
		return err
	}
	switch loc.Backend {
	case BackendLocal:
		if dir := filepath.Dir(raw); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return perr.WithLoc(perr.Wrap(err, perr.ErrorCodeIO, "cannot create output dir"), raw)
			}
		}
		if err := os.WriteFile(raw, b, 0o644); err != nil {
			return perr.WithLoc(classifyFSErr(err, raw), raw)
		}
		return nil
	case BackendS3:
		obj, err := s.object(raw)
		if err != nil {
			return err
		}
		bucket, key := ParseBucketKey(raw)
		if err := obj.Put(ctx, bucket, key, bytes.NewReader(b), int64(len(b))); err != nil {
			return perr.WithLoc(err, raw)
		}
		return nil
	}
	return perr.WithLoc(perr.Permissionf("%q is not writable", raw), raw)
}

// Exists reports whether a location exists; probe errors other than NotFound
// are propagated
func (s *Store) Exists(ctx context.Context, raw string) (bool, error) {
	_, err := s.CheckReadable(ctx, raw)
	if err == nil {
		return true, nil
	}
	if perr.IsCode(err, perr.ErrorCodeNotFound) {
		return false, nil
	}
	return false, err
}

// DeletePrefix removes everything under a location prefix
func (s *Store) DeletePrefix(ctx context.Context, raw string) error {
	loc, err := Resolve(raw)
	if err != nil {
		return err
	}
	switch loc.Backend {
	case BackendLocal:
		if err := os.RemoveAll(raw); err != nil {
			return perr.WithLoc(perr.Wrap(err, perr.ErrorCodeIO, "cannot remove"), raw)
		}
		return nil
	case BackendS3:
		obj, err := s.object(raw)
		if err != nil {
			return err
		}
		bucket, prefix := ParseBucketKey(raw)
		if err := obj.DeletePrefix(ctx, bucket, prefix); err != nil {
			return perr.WithLoc(err, raw)
		}
		return nil
	}
	return perr.WithLoc(perr.Permissionf("cannot delete under %q", raw), raw)
}

// classifyFSErr maps os errors onto the input-error taxonomy
func classifyFSErr(err error, raw string) error {
	switch {
	case os.IsNotExist(err):
		return perr.Wrapf(err, perr.ErrorCodeNotFound, "%s not found", raw)
	case os.IsPermission(err):
		return perr.Wrapf(err, perr.ErrorCodePermission, "permission denied for %s", raw)
	}
	return perr.Wrap(err, perr.ErrorCodeIO, "filesystem error")
}

func joinKey(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
