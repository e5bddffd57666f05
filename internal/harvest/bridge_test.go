package harvest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/inspirehep/inspire-crawler/internal/config"
	"github.com/inspirehep/inspire-crawler/internal/crawler"
)

type scheduleCall struct {
	spider   string
	workflow string
	args     map[string]string
}

type fakeScheduler struct {
	calls []scheduleCall
	err   error
}

func (f *fakeScheduler) Schedule(
	_ context.Context,
	spider, workflowName string,
	_ map[string]any,
	extraArgs map[string]string,
) (crawler.Job, error) {
	f.calls = append(f.calls, scheduleCall{spider: spider, workflow: workflowName, args: extraArgs})
	if f.err != nil {
		return crawler.Job{}, f.err
	}
	return crawler.Job{JobID: "job"}, nil
}

func TestOnHarvestFinishedSkipsWithoutPairing(t *testing.T) {
	t.Parallel()

	sched := &fakeScheduler{}
	bridge := NewBridge(sched, config.HarvestConfig{OutputDir: t.TempDir(), MaxRecords: 10}, zap.NewNop())

	require.NoError(t, bridge.OnHarvestFinished(context.Background(), makeRecords(3), "", "article"))
	require.NoError(t, bridge.OnHarvestFinished(context.Background(), makeRecords(3), "APS", ""))
	require.Empty(t, sched.calls)
}

func TestOnHarvestFinishedSchedulesOneCrawlPerFile(t *testing.T) {
	t.Parallel()

	sched := &fakeScheduler{}
	bridge := NewBridge(sched, config.HarvestConfig{OutputDir: t.TempDir(), MaxRecords: 10}, zap.NewNop())

	require.NoError(t, bridge.OnHarvestFinished(context.Background(), makeRecords(25), "APS", "article"))
	require.Len(t, sched.calls, 3)
	for _, call := range sched.calls {
		require.Equal(t, "APS", call.spider)
		require.Equal(t, "article", call.workflow)
		require.True(t, strings.HasPrefix(call.args["source_file"], "file://"))
		require.True(t, strings.HasSuffix(call.args["source_file"], ".xml"))
	}
}

func TestOnHarvestFinishedPropagatesScheduleError(t *testing.T) {
	t.Parallel()

	sched := &fakeScheduler{err: &crawler.ScheduleError{Spider: "APS", Project: "hepcrawl"}}
	bridge := NewBridge(sched, config.HarvestConfig{OutputDir: t.TempDir(), MaxRecords: 10}, zap.NewNop())

	err := bridge.OnHarvestFinished(context.Background(), makeRecords(3), "APS", "article")
	var scheduleErr *crawler.ScheduleError
	require.ErrorAs(t, err, &scheduleErr)
}
