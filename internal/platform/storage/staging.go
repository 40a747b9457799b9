package storage

import (
	"os"
	"sync"

	perr "seqrun/internal/platform/errors"

	"github.com/google/uuid"
)

// Staging collects files destined for network storage in per-destination
// local directories so that many small writes become one bulk upload.
// It is created at the start of a run and threaded through every write call;
// Flush uploads and clears it, Discard drops leftovers. Its lifetime is the
// run: there is no ambient process-wide state behind it.
type Staging struct {
	mu   sync.Mutex
	dirs map[string]string // destination parent path -> local temp dir
}

// NewStaging returns an empty staging context
func NewStaging() *Staging {
	return &Staging{dirs: map[string]string{}}
}

// create opens a local staging file for a file named base under the given
// destination parent path
func (g *Staging) create(parent, base string) (*os.File, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	dir, ok := g.dirs[parent]
	if !ok {
		d, err := os.MkdirTemp("", "seqrun-stage-"+uuid.NewString()[:8]+"-*")
		if err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeIO, "cannot create staging dir")
		}
		g.dirs[parent] = d
		dir = d
	}
	f, err := os.Create(dir + "/" + base)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeIO, "cannot create staging file")
	}
	return f, nil
}

// snapshot returns a stable copy of the parent->dir map and clears it
func (g *Staging) snapshot() map[string]string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := g.dirs
	g.dirs = map[string]string{}
	return out
}

// Discard removes any staged files without uploading them.
// Safe to call after Flush; a second call is a no-op.
func (g *Staging) Discard() {
	for _, dir := range g.snapshot() {
		_ = os.RemoveAll(dir)
	}
}

// Empty reports whether nothing is currently staged
func (g *Staging) Empty() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.dirs) == 0
}
