package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/inspirehep/inspire-crawler/internal/crawler"
)

// jobColumns is the explicit projection shown by `job list`.
var jobColumns = []string{"id", "job_id", "spider", "workflow", "status", "logs", "results", "scheduled"}

func newJobCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Crawl job commands",
	}
	cmd.AddCommand(newJobListCmd())
	cmd.AddCommand(newJobFileCmd("logs", "Show the crawl log file of a job", func(job crawler.Job) string {
		return job.Logs
	}))
	cmd.AddCommand(newJobFileCmd("results", "Show the crawl results file of a job", func(job crawler.Job) string {
		return job.Results
	}))
	return cmd
}

func newJobListCmd() *cobra.Command {
	var tail int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show info about the existing crawl jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			jobs, err := appInstance.Jobs.List(cmd.Context(), tail)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 4, ' ', 0)
			fmt.Fprintln(w, strings.Join(jobColumns, "\t"))
			for _, job := range jobs {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					job.ID,
					job.JobID,
					job.Spider,
					job.Workflow,
					job.Status,
					job.Logs,
					job.Results,
					job.Scheduled.Format(time.RFC3339),
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&tail, "tail", 0, "number of entries to show")
	return cmd
}

func newJobFileCmd(use, short string, field func(crawler.Job) string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <job_id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			job, err := appInstance.Jobs.GetByJobID(cmd.Context(), args[0])
			if err != nil {
				var notFound *crawler.JobNotFoundError
				if errors.As(err, &notFound) {
					warnExit("Job %s was not found", args[0])
				}
				return err
			}
			return showFile(cmd, field(job))
		},
	}
}

// showFile dumps a log or results file referenced by a job, accepting both
// file:// URIs and bare paths.
func showFile(cmd *cobra.Command, location string) error {
	path := strings.TrimPrefix(location, "file://")
	if path == "" {
		warnExit("The job has no file recorded")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			warnExit("The file does not exist: %s", path)
		}
		return fmt.Errorf("read file %s: %w", path, err)
	}
	cmd.Println(string(content))
	return nil
}
