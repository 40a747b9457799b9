package storage

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	perr "seqrun/internal/platform/errors"
)

func TestResolveBackends(t *testing.T) {
	cases := []struct {
		raw     string
		backend Backend
		pack    Packing
	}{
		{"queries.fa", BackendLocal, PackNone},
		{"/data/queries.fa.gz", BackendLocal, PackGzip},
		{"s3://bucket/dir/queries.fa", BackendS3, PackNone},
		{"s3://bucket/dir/queries.tar.gz", BackendS3, PackTarGz},
		{"https://example.org/q.fa", BackendHTTP, PackNone},
		{"http://example.org/q.tgz", BackendHTTP, PackTarGz},
		{"ftp://ftp.example.org/pub/q.tar", BackendFTP, PackTar},
		{"/data/q.tar.bz2", BackendLocal, PackTarBz2},
	}
	for _, c := range cases {
		loc, err := Resolve(c.raw)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", c.raw, err)
		}
		if loc.Backend != c.backend || loc.Pack != c.pack {
			t.Fatalf("Resolve(%q) = {%v %v}, want {%v %v}", c.raw, loc.Backend, loc.Pack, c.backend, c.pack)
		}
	}
}

func TestResolveUnsupported(t *testing.T) {
	for _, raw := range []string{"gs://bucket/q.fa", "az://bucket/q.fa", "sftp://host/q.fa"} {
		_, err := Resolve(raw)
		if !perr.IsCode(err, perr.ErrorCodeUnsupportedBackend) {
			t.Fatalf("Resolve(%q): want UnsupportedBackend, got %v", raw, err)
		}
		if perr.ExitCode(err) != perr.ExitUnsupportedBackend {
			t.Fatalf("Resolve(%q): exit code %d", raw, perr.ExitCode(err))
		}
	}
}

func TestLineSourceTerminators(t *testing.T) {
	src := NewLineSource(io.NopCloser(bytes.NewBufferString(">a\nACGT\n>b\nTTTT")), "mem")
	defer src.Close()
	want := []string{">a\n", "ACGT\n", ">b\n", "TTTT"}
	for _, w := range want {
		got, err := src.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if got != w {
			t.Fatalf("Next = %q, want %q", got, w)
		}
	}
	if _, err := src.Next(); err != io.EOF {
		t.Fatalf("want io.EOF, got %v", err)
	}
}

func tarball(t *testing.T, members map[string]string, order []string) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, name := range order {
		body := members[name]
		if err := tw.WriteHeader(&tar.Header{Name: name, Mode: 0o644, Size: int64(len(body))}); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestTarMergeInjectsBoundaryNewline(t *testing.T) {
	// first member lacks a trailing newline; the merge must not glue its last
	// line to the second member's first line
	tb := tarball(t, map[string]string{
		"one.fa": ">a\nACGT",
		"two.fa": ">b\nTTTT\n",
	}, []string{"one.fa", "two.fa"})

	rc, err := unpack(io.NopCloser(bytes.NewReader(tb)), Location{Raw: "q.tar", Pack: PackTar})
	if err != nil {
		t.Fatal(err)
	}
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	want := ">a\nACGT\n>b\nTTTT\n"
	if string(got) != want {
		t.Fatalf("merged = %q, want %q", got, want)
	}
}

func TestTarMergeSkipsNonRegular(t *testing.T) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	if err := tw.WriteHeader(&tar.Header{Name: "dir/", Typeflag: tar.TypeDir, Mode: 0o755}); err != nil {
		t.Fatal(err)
	}
	body := ">a\nAC\n"
	if err := tw.WriteHeader(&tar.Header{Name: "dir/one.fa", Mode: 0o644, Size: int64(len(body))}); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write([]byte(body)); err != nil {
		t.Fatal(err)
	}
	_ = tw.Close()

	rc, err := unpack(io.NopCloser(&buf), Location{Raw: "q.tar", Pack: PackTar})
	if err != nil {
		t.Fatal(err)
	}
	got, _ := io.ReadAll(rc)
	if string(got) != body {
		t.Fatalf("merged = %q, want %q", got, body)
	}
}

func TestUnpackGzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, _ = zw.Write([]byte(">a\nACGT\n"))
	_ = zw.Close()

	rc, err := unpack(io.NopCloser(&buf), Location{Raw: "q.fa.gz", Pack: PackGzip})
	if err != nil {
		t.Fatal(err)
	}
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != ">a\nACGT\n" {
		t.Fatalf("got %q", got)
	}
}

func TestUnpackCorruptGzip(t *testing.T) {
	_, err := unpack(io.NopCloser(bytes.NewBufferString("not gzip at all")), Location{Raw: "q.fa.gz", Pack: PackGzip})
	if !perr.IsCode(err, perr.ErrorCodeDecode) {
		t.Fatalf("want Decode, got %v", err)
	}
	if perr.ExitCode(err) != perr.ExitDecode {
		t.Fatalf("exit code %d", perr.ExitCode(err))
	}
}

func TestLocalReadWriteRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	dir := t.TempDir()
	p := filepath.Join(dir, "sub", "out.txt")

	if err := s.WriteAll(ctx, p, []byte("hello\n")); err != nil {
		t.Fatal(err)
	}
	b, err := s.ReadAll(ctx, p)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "hello\n" {
		t.Fatalf("got %q", b)
	}

	n, err := s.CheckReadable(ctx, p)
	if err != nil || n != 6 {
		t.Fatalf("CheckReadable = (%d, %v)", n, err)
	}
	ok, err := s.Exists(ctx, filepath.Join(dir, "missing"))
	if err != nil || ok {
		t.Fatalf("Exists = (%v, %v)", ok, err)
	}
}

func TestLocalMissingFileIsNotFound(t *testing.T) {
	s := New(nil)
	_, err := s.OpenRead(context.Background(), filepath.Join(t.TempDir(), "missing.fa"))
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("want NotFound, got %v", err)
	}
	if perr.ExitCode(err) != perr.ExitNotFound {
		t.Fatalf("exit code %d", perr.ExitCode(err))
	}
}

func TestCheckWritableLocal(t *testing.T) {
	s := New(nil)
	if err := s.CheckWritable(context.Background(), t.TempDir()); err != nil {
		t.Fatal(err)
	}
	err := s.CheckWritable(context.Background(), "https://example.org/out")
	if !perr.IsCode(err, perr.ErrorCodePermission) {
		t.Fatalf("want Permission, got %v", err)
	}
}

func TestStagingDiscard(t *testing.T) {
	stg := NewStaging()
	f, err := stg.create("s3://bucket/run/query_batches", "batch_000.fa")
	if err != nil {
		t.Fatal(err)
	}
	dir := filepath.Dir(f.Name())
	_, _ = f.WriteString(">a\nAC\n")
	_ = f.Close()
	if stg.Empty() {
		t.Fatal("staging should not be empty")
	}

	stg.Discard()
	if !stg.Empty() {
		t.Fatal("staging should be empty after Discard")
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("staging dir %s should be gone", dir)
	}
}

func TestParsePaths(t *testing.T) {
	b, k := ParseBucketKey("s3://bucket/run/metadata/file.txt")
	if b != "bucket" || k != "run/metadata/file.txt" {
		t.Fatalf("ParseBucketKey = (%q, %q)", b, k)
	}
	if got := Parent("s3://bucket/run/file.txt"); got != "s3://bucket/run" {
		t.Fatalf("Parent = %q", got)
	}
	if got := Join("s3://bucket/run/", "metadata", "file.txt"); got != "s3://bucket/run/metadata/file.txt" {
		t.Fatalf("Join = %q", got)
	}
	if got := Base("s3://bucket/run/file.txt"); got != "file.txt" {
		t.Fatalf("Base = %q", got)
	}
}
