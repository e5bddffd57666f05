package harvest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/inspirehep/inspire-crawler/internal/config"
	"github.com/inspirehep/inspire-crawler/internal/crawler"
)

// CrawlScheduler schedules one crawl job. Satisfied by scheduler.Scheduler.
type CrawlScheduler interface {
	Schedule(
		ctx context.Context,
		spider, workflowName string,
		settingsOverrides map[string]any,
		extraArgs map[string]string,
	) (crawler.Job, error)
}

// Bridge connects harvest-finished notifications to the crawl scheduler.
type Bridge struct {
	scheduler CrawlScheduler
	cfg       config.HarvestConfig
	logger    *zap.Logger
}

// NewBridge constructs a Bridge.
func NewBridge(scheduler CrawlScheduler, cfg config.HarvestConfig, logger *zap.Logger) *Bridge {
	return &Bridge{
		scheduler: scheduler,
		cfg:       cfg,
		logger:    logger,
	}
}

// OnHarvestFinished batches the harvested records to disk and schedules one
// crawl per created file. A harvest with no spider or workflow configured is
// not meant to trigger a crawl and is skipped. Schedule failures propagate
// unchanged.
func (b *Bridge) OnHarvestFinished(ctx context.Context, records []Record, spider, workflowName string) error {
	if spider == "" || workflowName == "" {
		b.logger.Debug("harvest batch without spider/workflow pairing, nothing to crawl")
		return nil
	}

	files, total, err := WriteToDir(records, b.cfg.OutputDir, b.cfg.MaxRecords)
	if err != nil {
		return fmt.Errorf("write harvest batch: %w", err)
	}
	b.logger.Info("harvest batch written",
		zap.Int("records", total),
		zap.Int("files", len(files)),
		zap.String("spider", spider),
		zap.String("workflow", workflowName),
	)

	for _, sourceFile := range files {
		// The crawl service expects a URI, not a bare path.
		args := map[string]string{"source_file": "file://" + sourceFile}
		if _, err := b.scheduler.Schedule(ctx, spider, workflowName, nil, args); err != nil {
			return err
		}
	}
	return nil
}
