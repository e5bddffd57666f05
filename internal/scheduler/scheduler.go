// Package scheduler submits crawls to the external crawl service and records
// the resulting jobs.
package scheduler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/inspirehep/inspire-crawler/internal/config"
	"github.com/inspirehep/inspire-crawler/internal/crawler"
	"github.com/inspirehep/inspire-crawler/internal/metrics"
)

// Scheduler merges configured crawl defaults with caller overrides, submits
// the crawl, and persists the job only after the external side confirms
// acceptance. A failed submission never produces an orphan job row.
type Scheduler struct {
	submitter crawler.Submitter
	jobs      crawler.JobStore
	cfg       config.CrawlerConfig
	logger    *zap.Logger
}

// New constructs a Scheduler.
func New(submitter crawler.Submitter, jobs crawler.JobStore, cfg config.CrawlerConfig, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		submitter: submitter,
		jobs:      jobs,
		cfg:       cfg,
		logger:    logger,
	}
}

// Schedule submits one crawl and returns the recorded pending job.
// settingsOverrides win over configured crawl settings; extraArgs win over
// per-spider configured arguments. Unknown-spider and transport failures
// from the crawl service propagate unchanged.
func (s *Scheduler) Schedule(
	ctx context.Context,
	spider, workflowName string,
	settingsOverrides map[string]any,
	extraArgs map[string]string,
) (crawler.Job, error) {
	settings := make(map[string]any, len(s.cfg.Settings)+len(settingsOverrides))
	for k, v := range s.cfg.Settings {
		settings[k] = v
	}
	for k, v := range settingsOverrides {
		settings[k] = v
	}

	args := make(map[string]string, len(extraArgs))
	for k, v := range s.cfg.SpiderArguments[spider] {
		args[k] = v
	}
	for k, v := range extraArgs {
		args[k] = v
	}

	jobID, err := s.submitter.Schedule(ctx, s.cfg.Project, spider, settings, args)
	if err != nil {
		metrics.JobScheduled(spider, "error")
		return crawler.Job{}, err
	}
	if jobID == "" {
		metrics.JobScheduled(spider, "rejected")
		return crawler.Job{}, &crawler.ScheduleError{Spider: spider, Project: s.cfg.Project}
	}

	job, err := s.jobs.Create(ctx, jobID, spider, workflowName)
	if err != nil {
		return crawler.Job{}, fmt.Errorf("record scheduled job %q: %w", jobID, err)
	}

	metrics.JobScheduled(spider, "ok")
	s.logger.Info("scheduled crawl job",
		zap.String("job_id", job.JobID),
		zap.Int64("id", job.ID),
		zap.String("spider", spider),
		zap.String("workflow", workflowName),
	)
	return job, nil
}
