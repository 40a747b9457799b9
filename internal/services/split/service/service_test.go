package service

import (
	"archive/tar"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	perr "seqrun/internal/platform/errors"
	"seqrun/internal/platform/runcfg"
	"seqrun/internal/platform/storage"
	"seqrun/internal/platform/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCfg(batchLen, numBatches int) runcfg.Config {
	return runcfg.Config{
		Results:    "s3://bucket/run",
		Cluster:    "seqrun-test",
		NumNodes:   1,
		BatchLen:   batchLen,
		NumBatches: numBatches,
	}
}

func writeInput(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "queries.fa")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

// fasta builds a record with the given id and a sequence of n 'A's
func fasta(id string, n int) string {
	return ">" + id + "\n" + strings.Repeat("A", n) + "\n"
}

func batchContents(t *testing.T, mem *testkit.MemStore, batches []string) []string {
	t.Helper()
	out := make([]string, 0, len(batches))
	for _, fqn := range batches {
		bucket, key := storage.ParseBucketKey(fqn)
		b, ok := mem.Bytes(bucket, key)
		require.True(t, ok, "batch %s not uploaded", fqn)
		out = append(out, string(b))
	}
	return out
}

func TestStrictSplitConservesInput(t *testing.T) {
	mem := testkit.NewMemStore()
	svc := New(storage.New(mem), testCfg(25, 0))

	input := fasta("a", 10) + fasta("b", 10) + fasta("c", 10) + fasta("d", 10)
	sum, err := svc.Run(context.Background(), []string{writeInput(t, input)})
	require.NoError(t, err)

	// 10+10 fits under 25, the third record would overshoot
	assert.Equal(t, []string{
		"s3://bucket/run/query_batches/batch_000.fa",
		"s3://bucket/run/query_batches/batch_001.fa",
	}, sum.Batches)
	assert.Equal(t, int64(40), sum.QueryLength)
	assert.Equal(t, 4, sum.Records)

	got := batchContents(t, mem, sum.Batches)
	assert.Equal(t, input, strings.Join(got, ""))
	assert.Equal(t, fasta("a", 10)+fasta("b", 10), got[0])
	assert.Equal(t, fasta("c", 10)+fasta("d", 10), got[1])
}

func TestStrictSplitNeverSplitsARecord(t *testing.T) {
	mem := testkit.NewMemStore()
	svc := New(storage.New(mem), testCfg(5, 0))

	// every record is larger than the batch length: one batch per record
	input := fasta("a", 12) + fasta("b", 9)
	sum, err := svc.Run(context.Background(), []string{writeInput(t, input)})
	require.NoError(t, err)
	require.Len(t, sum.Batches, 2)

	got := batchContents(t, mem, sum.Batches)
	assert.Equal(t, fasta("a", 12), got[0])
	assert.Equal(t, fasta("b", 9), got[1])
}

func TestProportionalSplitTargetsBatchCount(t *testing.T) {
	mem := testkit.NewMemStore()
	svc := New(storage.New(mem), testCfg(1, 3))

	input := fasta("a", 10) + fasta("b", 10) + fasta("c", 10) +
		fasta("d", 10) + fasta("e", 10) + fasta("f", 10)
	sum, err := svc.Run(context.Background(), []string{writeInput(t, input)})
	require.NoError(t, err)

	// T=60, N=3, threshold steps of 20: two records per batch
	require.Len(t, sum.Batches, 3)
	got := batchContents(t, mem, sum.Batches)
	assert.Equal(t, input, strings.Join(got, ""))
	for _, b := range got {
		assert.Equal(t, 2, strings.Count(b, ">"))
	}
}

func TestProportionalSplitAbsorbsOversizedEarlyBatch(t *testing.T) {
	mem := testkit.NewMemStore()
	svc := New(storage.New(mem), testCfg(1, 3))

	// T=60, steps of 20. The first record alone overshoots its threshold, so
	// the cumulative rule packs the remainder against absolute marks instead
	// of compounding the overshoot.
	input := fasta("a", 30) + fasta("b", 10) + fasta("c", 10) + fasta("d", 10)
	sum, err := svc.Run(context.Background(), []string{writeInput(t, input)})
	require.NoError(t, err)
	require.Len(t, sum.Batches, 3)

	got := batchContents(t, mem, sum.Batches)
	assert.Equal(t, fasta("a", 30), got[0])
	assert.Equal(t, fasta("b", 10), got[1])
	assert.Equal(t, fasta("c", 10)+fasta("d", 10), got[2])
}

func TestSplitConcatenatesMultipleInputs(t *testing.T) {
	mem := testkit.NewMemStore()
	svc := New(storage.New(mem), testCfg(25, 0))

	// batches form across the input boundary as if it were one stream
	one := fasta("a", 10) + fasta("b", 10)
	two := fasta("c", 10) + fasta("d", 10)
	sum, err := svc.Run(context.Background(), []string{writeInput(t, one), writeInput(t, two)})
	require.NoError(t, err)
	assert.Equal(t, 4, sum.Records)
	assert.Equal(t, int64(40), sum.QueryLength)

	require.Len(t, sum.Batches, 2)
	got := batchContents(t, mem, sum.Batches)
	assert.Equal(t, one+two, strings.Join(got, ""))
}

func TestSplitProportionalAcrossInputs(t *testing.T) {
	mem := testkit.NewMemStore()
	svc := New(storage.New(mem), testCfg(1, 2))

	// the pre-pass totals every input, so T=40 and the seam lands mid-file
	sum, err := svc.Run(context.Background(), []string{
		writeInput(t, fasta("a", 10)+fasta("b", 10)+fasta("c", 10)),
		writeInput(t, fasta("d", 10)),
	})
	require.NoError(t, err)
	require.Len(t, sum.Batches, 2)

	got := batchContents(t, mem, sum.Batches)
	assert.Equal(t, fasta("a", 10)+fasta("b", 10), got[0])
	assert.Equal(t, fasta("c", 10)+fasta("d", 10), got[1])
}

func TestSplitEmptyAcrossAllInputs(t *testing.T) {
	svc := New(storage.New(testkit.NewMemStore()), testCfg(100, 0))
	_, err := svc.Run(context.Background(), []string{writeInput(t, "\n"), writeInput(t, "  \n")})
	require.True(t, perr.IsCode(err, perr.ErrorCodeEmptyInput), "got %v", err)
}

func TestSplitAddsTrailingTerminator(t *testing.T) {
	mem := testkit.NewMemStore()
	svc := New(storage.New(mem), testCfg(100, 0))

	sum, err := svc.Run(context.Background(), []string{writeInput(t, ">a\nACGT")}) // no final newline
	require.NoError(t, err)
	got := batchContents(t, mem, sum.Batches)
	assert.Equal(t, ">a\nACGT\n", got[0])
}

func TestSplitEmptyInput(t *testing.T) {
	svc := New(storage.New(testkit.NewMemStore()), testCfg(100, 0))
	_, err := svc.Run(context.Background(), []string{writeInput(t, "\n  \n")})
	require.True(t, perr.IsCode(err, perr.ErrorCodeEmptyInput), "got %v", err)
	assert.Equal(t, perr.ExitOther, perr.ExitCode(err))
}

func TestSplitRejectsNonFASTA(t *testing.T) {
	svc := New(storage.New(testkit.NewMemStore()), testCfg(100, 0))
	_, err := svc.Run(context.Background(), []string{writeInput(t, "ACGT\n>a\nACGT\n")})
	require.True(t, perr.IsCode(err, perr.ErrorCodeDecode), "got %v", err)
}

func TestSplitWritesMetadata(t *testing.T) {
	mem := testkit.NewMemStore()
	st := storage.New(mem)
	cfg := testCfg(25, 0)
	svc := New(st, cfg)

	sum, err := svc.Run(context.Background(), []string{writeInput(t, fasta("a", 10)+fasta("b", 10)+fasta("c", 10))})
	require.NoError(t, err)

	b, err := st.ReadAll(context.Background(), cfg.MetadataFile(runcfg.FileBatchList))
	require.NoError(t, err)
	assert.Equal(t, strings.Join(sum.Batches, "\n")+"\n", string(b))

	b, err = st.ReadAll(context.Background(), cfg.MetadataFile(runcfg.FileQueryLength))
	require.NoError(t, err)
	assert.Equal(t, "30\n", string(b))

	loaded, err := runcfg.Load(context.Background(), st, cfg.Results)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSplitReadsAcrossArchiveMembers(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "queries.tar")
	f, err := os.Create(p)
	require.NoError(t, err)
	tw := tar.NewWriter(f)
	// first member ends without a terminator; the merge must keep records intact
	members := []struct{ name, body string }{
		{"one.fa", ">a\n" + strings.Repeat("A", 10)},
		{"two.fa", fasta("b", 10)},
	}
	for _, m := range members {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: m.name, Mode: 0o644, Size: int64(len(m.body))}))
		_, err = tw.Write([]byte(m.body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, f.Close())

	mem := testkit.NewMemStore()
	svc := New(storage.New(mem), testCfg(100, 0))
	sum, err := svc.Run(context.Background(), []string{p})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Records)
	assert.Equal(t, int64(20), sum.QueryLength)

	got := batchContents(t, mem, sum.Batches)
	assert.Equal(t, fasta("a", 10)+fasta("b", 10), strings.Join(got, ""))
}
