package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inspirehep/inspire-crawler/internal/crawler"
)

func TestCreateRejectsDuplicateJobID(t *testing.T) {
	t.Parallel()

	store := NewJobStore()
	ctx := context.Background()

	_, err := store.Create(ctx, "job-1", "APS", "article")
	require.NoError(t, err)

	_, err = store.Create(ctx, "job-1", "APS", "article")
	var dup *crawler.DuplicateJobError
	require.ErrorAs(t, err, &dup)
	require.Equal(t, "job-1", dup.JobID)
}

func TestSaveAndGetRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewJobStore()
	ctx := context.Background()

	job, err := store.Create(ctx, "job-1", "APS", "article")
	require.NoError(t, err)
	require.Equal(t, crawler.JobStatusPending, job.Status)

	job.Status = crawler.JobStatusFinished
	job.Logs = "file:///logs/job-1.log"
	require.NoError(t, store.Save(ctx, job))

	got, err := store.GetByJobID(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, crawler.JobStatusFinished, got.Status)
	require.Equal(t, "file:///logs/job-1.log", got.Logs)
}

func TestGetByJobIDMiss(t *testing.T) {
	t.Parallel()

	store := NewJobStore()
	_, err := store.GetByJobID(context.Background(), "nope")
	var notFound *crawler.JobNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestListNewestFirstWithTail(t *testing.T) {
	t.Parallel()

	store := NewJobStore()
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		_, err := store.Create(ctx, id, "APS", "article")
		require.NoError(t, err)
	}

	jobs, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	require.Equal(t, "c", jobs[0].JobID)
	require.Equal(t, "b", jobs[1].JobID)
}

func TestLinksAndJobLookupByObject(t *testing.T) {
	t.Parallel()

	store := NewJobStore()
	ctx := context.Background()

	_, err := store.Create(ctx, "job-1", "APS", "article")
	require.NoError(t, err)
	require.NoError(t, store.CreateLink(ctx, crawler.WorkflowObjectLink{JobID: "job-1", ObjectID: 11}))

	job, err := store.GetJobByObjectID(ctx, 11)
	require.NoError(t, err)
	require.Equal(t, "job-1", job.JobID)

	_, err = store.GetJobByObjectID(ctx, 12)
	var notFound *crawler.WorkflowObjectNotFoundError
	require.ErrorAs(t, err, &notFound)

	links, err := store.ListLinks(ctx, 0)
	require.NoError(t, err)
	require.Len(t, links, 1)
}
