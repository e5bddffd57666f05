package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/inspirehep/inspire-crawler/internal/crawler"
)

func newMockStore(t *testing.T) (*JobStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewJobStoreWithPool(mock)
	require.NoError(t, err)
	return store, mock
}

func TestCreateInsertsPendingJob(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	scheduled := time.Unix(1700000000, 0).UTC()

	mock.ExpectQuery("INSERT INTO crawler_job").
		WithArgs("1dd8", "APS", "article", "pending").
		WillReturnRows(pgxmock.NewRows([]string{"id", "scheduled"}).AddRow(int64(7), scheduled))

	job, err := store.Create(context.Background(), "1dd8", "APS", "article")
	require.NoError(t, err)
	require.Equal(t, int64(7), job.ID)
	require.Equal(t, "1dd8", job.JobID)
	require.Equal(t, crawler.JobStatusPending, job.Status)
	require.Equal(t, scheduled, job.Scheduled)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDuplicateJobID(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO crawler_job").
		WithArgs("1dd8", "APS", "article", "pending").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := store.Create(context.Background(), "1dd8", "APS", "article")
	var dup *crawler.DuplicateJobError
	require.ErrorAs(t, err, &dup)
	require.Equal(t, "1dd8", dup.JobID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByJobIDMiss(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT .+ FROM crawler_job WHERE job_id").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "job_id", "spider", "workflow", "status", "logs", "results", "scheduled",
		}))

	_, err := store.GetByJobID(context.Background(), "missing")
	var notFound *crawler.JobNotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, "missing", notFound.JobID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSavePersistsMutableFields(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE crawler_job").
		WithArgs("1dd8", "finished", "file:///logs/1dd8.log", "file:///results/1dd8.jl").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := store.Save(context.Background(), crawler.Job{
		JobID:   "1dd8",
		Status:  crawler.JobStatusFinished,
		Logs:    "file:///logs/1dd8.log",
		Results: "file:///results/1dd8.jl",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveUnknownJob(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE crawler_job").
		WithArgs("ghost", "error", "", "").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := store.Save(context.Background(), crawler.Job{JobID: "ghost", Status: crawler.JobStatusError})
	var notFound *crawler.JobNotFoundError
	require.ErrorAs(t, err, &notFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateLink(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO crawler_workflows_object").
		WithArgs("1dd8", int64(42)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.CreateLink(context.Background(), crawler.WorkflowObjectLink{JobID: "1dd8", ObjectID: 42})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetJobByObjectIDMiss(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectQuery("JOIN crawler_workflows_object o").
		WithArgs(int64(99)).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "job_id", "spider", "workflow", "status", "logs", "results", "scheduled",
		}))

	_, err := store.GetJobByObjectID(context.Background(), 99)
	var notFound *crawler.WorkflowObjectNotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, int64(99), notFound.ObjectID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListLimitsToTail(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	scheduled := time.Unix(1700000000, 0).UTC()

	mock.ExpectQuery("SELECT .+ FROM crawler_job ORDER BY id DESC LIMIT").
		WithArgs(2).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "job_id", "spider", "workflow", "status", "logs", "results", "scheduled",
		}).
			AddRow(int64(2), "b", "APS", "article", "finished", "", "", scheduled).
			AddRow(int64(1), "a", "APS", "article", "pending", "", "", scheduled))

	jobs, err := store.List(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	require.Equal(t, "b", jobs[0].JobID)
	require.Equal(t, crawler.JobStatusFinished, jobs[0].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}
