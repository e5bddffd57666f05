package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/inspirehep/inspire-crawler/internal/crawler"
)

// linkColumns is the explicit projection shown by `workflow list`.
var linkColumns = []string{"job_id", "object_id"}

func newWorkflowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Workflow object commands",
	}
	cmd.AddCommand(newWorkflowListCmd())
	cmd.AddCommand(newWorkflowFileCmd("job-logs", "Show the crawl log file of the job that spawned a workflow object", func(job crawler.Job) string {
		return job.Logs
	}))
	cmd.AddCommand(newWorkflowFileCmd("job-results", "Show the crawl results file of the job that spawned a workflow object", func(job crawler.Job) string {
		return job.Results
	}))
	return cmd
}

func newWorkflowListCmd() *cobra.Command {
	var tail int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the links between crawl jobs and workflow objects",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			links, err := appInstance.Jobs.ListLinks(cmd.Context(), tail)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 4, ' ', 0)
			fmt.Fprintln(w, strings.Join(linkColumns, "\t"))
			for _, link := range links {
				fmt.Fprintf(w, "%s\t%d\n", link.JobID, link.ObjectID)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&tail, "tail", 0, "number of entries to show")
	return cmd
}

func newWorkflowFileCmd(use, short string, field func(crawler.Job) string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <object_id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			objectID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid object id %q", args[0])
			}
			job, err := appInstance.Jobs.GetJobByObjectID(cmd.Context(), objectID)
			if err != nil {
				var notFound *crawler.WorkflowObjectNotFoundError
				if errors.As(err, &notFound) {
					warnExit("Workflow %d was not found, maybe it's not a crawl workflow?", objectID)
				}
				return err
			}
			return showFile(cmd, field(job))
		},
	}
}
