package cmd

import (
	"github.com/spf13/cobra"
)

func newSpidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "spiders",
		Short: "List the spiders available in the configured project",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			spiders, err := appInstance.Submitter.ListSpiders(cmd.Context(), appInstance.Config.Crawler.Project)
			if err != nil {
				return err
			}
			if len(spiders) == 0 {
				warnExit("No spiders found in project %q", appInstance.Config.Crawler.Project)
			}
			for _, spider := range spiders {
				cmd.Println(spider)
			}
			return nil
		},
	}
}
