package testkit

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"

	perr "seqrun/internal/platform/errors"
	"seqrun/internal/platform/storage"
)

// MemStore is an in-memory storage.ObjectStore for tests. Keys are
// "bucket/key". Fail, when set, is returned by every call, which lets tests
// drive the transient-failure paths without a network.
type MemStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	Fail    error
	Puts    int
}

// NewMemStore returns an empty MemStore
func NewMemStore() *MemStore {
	return &MemStore{objects: map[string][]byte{}}
}

// Seed places an object without counting it as a Put
func (m *MemStore) Seed(bucket, key string, b []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[bucket+"/"+key] = append([]byte(nil), b...)
}

// Bytes returns a stored object's contents and whether it exists
func (m *MemStore) Bytes(bucket, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[bucket+"/"+key]
	return b, ok
}

// Keys returns every stored "bucket/key", sorted
func (m *MemStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.objects))
	for k := range m.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Get implements storage.ObjectStore
func (m *MemStore) Get(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	b, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, perr.NotFoundf("%s/%s not found", bucket, key)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

// Put implements storage.ObjectStore
func (m *MemStore) Put(_ context.Context, bucket, key string, body io.Reader, _ int64) error {
	b, err := io.ReadAll(body)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeIO, "read body")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	m.objects[bucket+"/"+key] = b
	m.Puts++
	return nil
}

// Head implements storage.ObjectStore
func (m *MemStore) Head(_ context.Context, bucket, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return 0, m.Fail
	}
	b, ok := m.objects[bucket+"/"+key]
	if !ok {
		return 0, perr.NotFoundf("%s/%s not found", bucket, key)
	}
	return int64(len(b)), nil
}

// List implements storage.ObjectStore
func (m *MemStore) List(_ context.Context, bucket, prefix string) ([]storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	var out []storage.ObjectInfo
	full := bucket + "/" + prefix
	for k, b := range m.objects {
		if strings.HasPrefix(k, full) {
			out = append(out, storage.ObjectInfo{Key: strings.TrimPrefix(k, bucket+"/"), Size: int64(len(b))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Delete implements storage.ObjectStore
func (m *MemStore) Delete(_ context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	delete(m.objects, bucket+"/"+key)
	return nil
}

// DeletePrefix implements storage.ObjectStore
func (m *MemStore) DeletePrefix(_ context.Context, bucket, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	full := bucket + "/" + prefix
	for k := range m.objects {
		if strings.HasPrefix(k, full) {
			delete(m.objects, k)
		}
	}
	return nil
}
