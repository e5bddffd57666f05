// Package ingest implements the result ingestion pipeline: it receives the
// outcome of a finished crawl, spawns one workflow object per result record,
// and drives the job to its terminal status.
package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/inspirehep/inspire-crawler/internal/config"
	"github.com/inspirehep/inspire-crawler/internal/crawler"
	"github.com/inspirehep/inspire-crawler/internal/metrics"
	"github.com/inspirehep/inspire-crawler/internal/results"
	"github.com/inspirehep/inspire-crawler/internal/workflow"
)

// Pipeline turns the results of one crawl job into tracked downstream work
// units. Record processing within a batch is sequential: object creation and
// queue dispatch must keep record order, and persistence happens per record
// so a crash leaves a durable prefix that external retry logic can reconcile.
type Pipeline struct {
	jobs     crawler.JobStore
	engine   workflow.Engine
	local    results.Reader
	remote   results.Reader
	dataType string
	dispatch config.DispatchConfig
	logger   *zap.Logger
}

// New constructs a Pipeline. The remote reader is optional; without one only
// local result files can be ingested.
func New(
	jobs crawler.JobStore,
	engine workflow.Engine,
	local results.Reader,
	remote results.Reader,
	dataType string,
	dispatch config.DispatchConfig,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		jobs:     jobs,
		engine:   engine,
		local:    local,
		remote:   remote,
		dataType: dataType,
		dispatch: dispatch,
		logger:   logger,
	}
}

// SubmitResults receives the submission of the results of a crawl job.
//
// batchErrors is the batch-level failure payload reported by the crawl
// service, if any. resultsData optionally carries the record list inline,
// skipping retrieval from resultsURI; useful for slow or unreliable result
// storage. The log and results locations are recorded on the job
// unconditionally, even when the batch failed.
//
// A call for a job already in a terminal state is a no-op: result delivery
// is at-least-once, and status never regresses.
func (p *Pipeline) SubmitResults(
	ctx context.Context,
	jobID string,
	batchErrors []map[string]any,
	logFile, resultsURI string,
	resultsData []map[string]any,
) error {
	job, err := p.jobs.GetByJobID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		p.logger.Warn("ignoring results for job in terminal state",
			zap.String("job_id", jobID),
			zap.String("status", string(job.Status)),
		)
		return nil
	}

	job.Logs = logFile
	job.Results = resultsURI
	if err := p.jobs.Save(ctx, job); err != nil {
		return fmt.Errorf("record result locations: %w", err)
	}

	if len(batchErrors) > 0 {
		job.Status = crawler.JobStatusError
		if err := p.jobs.Save(ctx, job); err != nil {
			return fmt.Errorf("mark job errored: %w", err)
		}
		metrics.BatchIngested("error", 0)
		return &crawler.JobError{JobID: jobID, Errors: batchErrors}
	}

	records := resultsData
	resolvedPath := results.ResolvePath(resultsURI)
	if records == nil {
		records, resolvedPath, err = p.fetch(ctx, resultsURI)
		if err != nil {
			metrics.BatchIngested("unreadable", 0)
			return err
		}
	}

	p.logger.Info("ingesting crawl results",
		zap.String("job_id", jobID),
		zap.Int("records", len(records)),
		zap.String("results_path", resolvedPath),
	)

	for _, res := range records {
		if err := p.processResult(ctx, job, res, resolvedPath); err != nil {
			return err
		}
	}

	job.Status = crawler.JobStatusFinished
	if err := p.jobs.Save(ctx, job); err != nil {
		return fmt.Errorf("mark job finished: %w", err)
	}
	metrics.BatchIngested("finished", len(records))
	return nil
}

func (p *Pipeline) fetch(ctx context.Context, resultsURI string) ([]map[string]any, string, error) {
	if results.SupportsGCS(resultsURI) && p.remote != nil {
		return p.remote.Fetch(ctx, resultsURI)
	}
	return p.local.Fetch(ctx, resultsURI)
}

// processResult handles one crawl result independently of the rest of the
// batch. A malformed envelope is downgraded to a synthesized error record; it
// never aborts the batch. Each record commits its object and link before the
// next record starts.
func (p *Pipeline) processResult(
	ctx context.Context,
	job crawler.Job,
	res map[string]any,
	resolvedPath string,
) error {
	// Copy on read so stored provenance never aliases the caller's batch.
	res = crawler.DeepCopy(res)
	if missing, ok := crawler.MissingResultKey(res); !ok {
		res = crawler.ResultFromMissingKey(missing, res)
	}

	record, _ := res["record"].(map[string]any)
	if record == nil {
		record = map[string]any{}
	}
	delete(res, "record")
	crawlErrors, _ := res["errors"].([]any)

	obj := workflow.NewObject(record)
	if len(crawlErrors) > 0 {
		obj.Status = workflow.ObjectStatusError
		obj.ExtraData["crawl_errors"] = res
	} else {
		extraData := map[string]any{
			"crawler_job_id":       job.JobID,
			"crawler_results_path": resolvedPath,
		}
		recordExtra := record["extra_data"]
		delete(record, "extra_data")
		if hasContent(recordExtra) {
			extraData["record_extra"] = recordExtra
		}
		obj.ExtraData["source_data"] = map[string]any{
			"data":       crawler.DeepCopy(record),
			"extra_data": crawler.DeepCopy(extraData),
		}
		for k, v := range extraData {
			obj.ExtraData[k] = v
		}
	}
	obj.DataType = p.dataType

	if err := p.engine.Save(ctx, obj); err != nil {
		return fmt.Errorf("save workflow object: %w", err)
	}
	metrics.ObjectCreated()

	link := crawler.WorkflowObjectLink{JobID: job.JobID, ObjectID: obj.ID}
	if err := p.jobs.CreateLink(ctx, link); err != nil {
		return fmt.Errorf("link workflow object %d: %w", obj.ID, err)
	}

	if len(crawlErrors) > 0 {
		// Errored records are kept for inspection, never dispatched.
		metrics.RecordProcessed("error")
		return nil
	}

	queue := p.dispatch.QueueFor(job.Spider)
	if err := p.engine.Start(ctx, job.Workflow, obj.ID, queue); err != nil {
		return fmt.Errorf("start workflow for object %d: %w", obj.ID, err)
	}
	metrics.RecordProcessed("ok")
	return nil
}

func hasContent(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case map[string]any:
		return len(val) > 0
	case []any:
		return len(val) > 0
	case string:
		return val != ""
	default:
		return true
	}
}
