package service

import (
	"context"
	"testing"

	perr "seqrun/internal/platform/errors"
	"seqrun/internal/platform/runcfg"
	"seqrun/internal/platform/sched"
	"seqrun/internal/platform/storage"
	"seqrun/internal/platform/testkit"
	"seqrun/internal/services/status/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRun() runcfg.Config {
	return runcfg.Config{
		Results:  "s3://bucket/run",
		Cluster:  "seqrun-test",
		NumNodes: 1,
		BatchLen: 100,
	}
}

func seedJobIDs(mem *testkit.MemStore) {
	mem.Seed("bucket", "run/metadata/num_jobs_submitted.txt", []byte("2\n"))
	mem.Seed("bucket", "run/metadata/job-ids.json", []byte(`["job-0000","job-0001"]`))
}

func TestCheckPhaseBeforeSubmission(t *testing.T) {
	mem := testkit.NewMemStore()
	svc := New(storage.New(mem), testkit.NewFakeScheduler(), testRun())

	snap, err := svc.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseCreating, snap.Phase)

	mem.Seed("bucket", "run/metadata/num_jobs_submitted.txt", []byte("2\n"))
	snap, err = svc.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseSubmitting, snap.Phase)
}

func TestCheckDerivesFromCounts(t *testing.T) {
	cases := []struct {
		name   string
		counts sched.Counts
		phase  domain.Phase
	}{
		{"running", sched.Counts{Pending: 1, Running: 1}, domain.PhaseRunning},
		{"queued counts as running", sched.Counts{Pending: 2}, domain.PhaseRunning},
		{"all done", sched.Counts{Done: 2}, domain.PhaseSuccess},
		{"any failure wins", sched.Counts{Running: 1, Failed: 1}, domain.PhaseFailure},
		{"failed after done", sched.Counts{Done: 1, Failed: 1}, domain.PhaseFailure},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			mem := testkit.NewMemStore()
			seedJobIDs(mem)
			fake := testkit.NewFakeScheduler()
			fake.CountsVal = c.counts
			svc := New(storage.New(mem), fake, testRun())

			snap, err := svc.Check(context.Background())
			require.NoError(t, err)
			assert.Equal(t, c.phase, snap.Phase)
			assert.Equal(t, c.counts, snap.Counts)
		})
	}
}

func TestCheckSentinelShortCircuits(t *testing.T) {
	mem := testkit.NewMemStore()
	seedJobIDs(mem)
	mem.Seed("bucket", "run/FAILURE", []byte("pinned\n"))
	fake := testkit.NewFakeScheduler()
	fake.CountsErr = perr.Unavailablef("should not be called")
	svc := New(storage.New(mem), fake, testRun())

	snap, err := svc.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseFailure, snap.Phase)
}

func TestCheckFailedSubmissionIsFailure(t *testing.T) {
	mem := testkit.NewMemStore()
	mem.Seed("bucket", "run/FAILED_SUBMISSION", []byte("no jobs accepted\n"))
	svc := New(storage.New(mem), testkit.NewFakeScheduler(), testRun())

	snap, err := svc.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseFailure, snap.Phase)
	assert.Equal(t, 1, snap.Phase.ExitCode())
}

func TestCheckFailureIsSticky(t *testing.T) {
	mem := testkit.NewMemStore()
	seedJobIDs(mem)
	fake := testkit.NewFakeScheduler()
	fake.CountsVal = sched.Counts{Failed: 1, Done: 1}
	svc := New(storage.New(mem), fake, testRun())

	snap, err := svc.Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, domain.PhaseFailure, snap.Phase)

	// the scheduler later forgets the jobs; expired records count as done
	fake.CountsVal = sched.Counts{Done: 2}
	snap, err = svc.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseFailure, snap.Phase, "failure must not flip back")
}

func TestCheckSuccessIsPinned(t *testing.T) {
	mem := testkit.NewMemStore()
	seedJobIDs(mem)
	fake := testkit.NewFakeScheduler()
	fake.CountsVal = sched.Counts{Done: 2}
	svc := New(storage.New(mem), fake, testRun())

	snap, err := svc.Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, domain.PhaseSuccess, snap.Phase)
	_, ok := mem.Bytes("bucket", "run/SUCCESS")
	assert.True(t, ok, "expected the success sentinel")
}

func TestCheckSchedulerOutagePropagates(t *testing.T) {
	mem := testkit.NewMemStore()
	seedJobIDs(mem)
	fake := testkit.NewFakeScheduler()
	fake.CountsErr = perr.Unavailablef("api outage")
	svc := New(storage.New(mem), fake, testRun())

	_, err := svc.Check(context.Background())
	require.True(t, perr.IsCode(err, perr.ErrorCodeUnavailable), "got %v", err)
}

func TestCheckDoneSentinelMeansDeleting(t *testing.T) {
	mem := testkit.NewMemStore()
	mem.Seed("bucket", "run/DONE", []byte("cleaned\n"))
	svc := New(storage.New(mem), testkit.NewFakeScheduler(), testRun())

	snap, err := svc.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseDeleting, snap.Phase)
	assert.Equal(t, 5, snap.Phase.ExitCode())
}

func TestCheckCorruptJobRecord(t *testing.T) {
	mem := testkit.NewMemStore()
	mem.Seed("bucket", "run/metadata/job-ids.json", []byte("{nope"))
	svc := New(storage.New(mem), testkit.NewFakeScheduler(), testRun())

	_, err := svc.Check(context.Background())
	require.True(t, perr.IsCode(err, perr.ErrorCodeDecode), "got %v", err)
}
