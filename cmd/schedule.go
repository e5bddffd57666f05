package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inspirehep/inspire-crawler/internal/crawler"
)

func newScheduleCmd() *cobra.Command {
	var settingFlags, argFlags []string

	cmd := &cobra.Command{
		Use:   "schedule <spider> <workflow>",
		Short: "Schedule a crawl job",
		Long: `Submits a crawl for the given spider to the external crawl service and
records the pending job. Settings and spider arguments can be overridden
with repeatable KEY=VALUE flags.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			settings, err := parseKeyValues(settingFlags)
			if err != nil {
				return err
			}
			extraArgs, err := parseKeyValues(argFlags)
			if err != nil {
				return err
			}

			settingsAny := make(map[string]any, len(settings))
			for k, v := range settings {
				settingsAny[k] = v
			}

			job, err := appInstance.Scheduler.Schedule(cmd.Context(), args[0], args[1], settingsAny, extraArgs)
			if err != nil {
				var unknownSpider *crawler.UnknownSpiderError
				if errors.As(err, &unknownSpider) {
					warnExit(
						"Spider %q not found. Available spiders: %s",
						unknownSpider.Spider,
						strings.Join(unknownSpider.Available, ", "),
					)
				}
				return err
			}
			cmd.Printf("Scheduled crawl job with id: %s\n", job.JobID)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&settingFlags, "setting", nil, "crawl setting override KEY=VALUE (repeatable)")
	cmd.Flags().StringArrayVar(&argFlags, "arg", nil, "spider argument KEY=VALUE (repeatable)")
	return cmd
}

func parseKeyValues(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid KEY=VALUE pair %q", pair)
		}
		out[key] = value
	}
	return out, nil
}
