package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/inspirehep/inspire-crawler/internal/config"
	"github.com/inspirehep/inspire-crawler/internal/crawler"
	storememory "github.com/inspirehep/inspire-crawler/internal/store/memory"
)

type fakeSubmitter struct {
	jobID string
	err   error

	gotProject  string
	gotSpider   string
	gotSettings map[string]any
	gotArgs     map[string]string
}

func (f *fakeSubmitter) Schedule(_ context.Context, project, spider string, settings map[string]any, args map[string]string) (string, error) {
	f.gotProject = project
	f.gotSpider = spider
	f.gotSettings = settings
	f.gotArgs = args
	return f.jobID, f.err
}

func (f *fakeSubmitter) ListSpiders(context.Context, string) ([]string, error) {
	return nil, nil
}

func testConfig() config.CrawlerConfig {
	return config.CrawlerConfig{
		HostURL:  "http://localhost:6800",
		Project:  "hepcrawl",
		DataType: "hep",
		Settings: map[string]any{"PIPELINE_URL": "http://flower:5555"},
		SpiderArguments: map[string]map[string]string{
			"APS": {"from_date": "2016-01-01"},
		},
	}
}

func TestSchedulePersistsPendingJob(t *testing.T) {
	t.Parallel()

	submitter := &fakeSubmitter{jobID: "1dd852b0363c11e6a4b4525400b91153"}
	jobs := storememory.NewJobStore()
	s := New(submitter, jobs, testConfig(), zap.NewNop())

	job, err := s.Schedule(context.Background(), "APS", "article", nil, nil)
	require.NoError(t, err)
	require.Equal(t, "1dd852b0363c11e6a4b4525400b91153", job.JobID)
	require.Equal(t, "APS", job.Spider)
	require.Equal(t, "article", job.Workflow)
	require.Equal(t, crawler.JobStatusPending, job.Status)

	stored, err := jobs.GetByJobID(context.Background(), job.JobID)
	require.NoError(t, err)
	require.Equal(t, crawler.JobStatusPending, stored.Status)
	require.Equal(t, "hepcrawl", submitter.gotProject)
}

func TestScheduleMergePrecedence(t *testing.T) {
	t.Parallel()

	submitter := &fakeSubmitter{jobID: "abc"}
	s := New(submitter, storememory.NewJobStore(), testConfig(), zap.NewNop())

	_, err := s.Schedule(
		context.Background(),
		"APS",
		"article",
		map[string]any{"PIPELINE_URL": "http://override:5555", "LOG_LEVEL": "DEBUG"},
		map[string]string{"from_date": "2020-06-01", "source_file": "file:///tmp/b.xml"},
	)
	require.NoError(t, err)

	// Caller overrides win over configured defaults on both maps.
	require.Equal(t, map[string]any{
		"PIPELINE_URL": "http://override:5555",
		"LOG_LEVEL":    "DEBUG",
	}, submitter.gotSettings)
	require.Equal(t, map[string]string{
		"from_date":   "2020-06-01",
		"source_file": "file:///tmp/b.xml",
	}, submitter.gotArgs)
}

func TestScheduleEmptyJobIDLeavesNoJob(t *testing.T) {
	t.Parallel()

	submitter := &fakeSubmitter{jobID: ""}
	jobs := storememory.NewJobStore()
	s := New(submitter, jobs, testConfig(), zap.NewNop())

	_, err := s.Schedule(context.Background(), "APS", "article", nil, nil)
	var scheduleErr *crawler.ScheduleError
	require.ErrorAs(t, err, &scheduleErr)
	require.Equal(t, "APS", scheduleErr.Spider)
	require.Equal(t, "hepcrawl", scheduleErr.Project)

	stored, listErr := jobs.List(context.Background(), 0)
	require.NoError(t, listErr)
	require.Empty(t, stored)
}

func TestScheduleUnknownSpiderPropagates(t *testing.T) {
	t.Parallel()

	unknown := &crawler.UnknownSpiderError{
		Spider:    "XX",
		Project:   "hepcrawl",
		Available: []string{"APS", "BASE", "CDS"},
	}
	submitter := &fakeSubmitter{err: unknown}
	jobs := storememory.NewJobStore()
	s := New(submitter, jobs, testConfig(), zap.NewNop())

	_, err := s.Schedule(context.Background(), "XX", "article", nil, nil)
	var got *crawler.UnknownSpiderError
	require.ErrorAs(t, err, &got)
	require.Equal(t, []string{"APS", "BASE", "CDS"}, got.Available)

	stored, listErr := jobs.List(context.Background(), 0)
	require.NoError(t, listErr)
	require.Empty(t, stored)
}
