package cmd

import (
	"github.com/spf13/cobra"
)

func newIndexCmd(g *globalOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Update the index from the documents directory",
		Long: `Scan the documents directory and bring the index up to date.

New and modified files are chunked and embedded; deleted files are
removed. Unchanged files are skipped, so repeated runs are cheap.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, _, cleanup, err := g.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			summary, err := a.Reindex(cmd.Context())
			if err != nil {
				return err
			}

			out := newPrinter(cmd.OutOrStdout())
			if jsonOutput {
				return out.json(summary)
			}
			out.summary(summary)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the summary as JSON")
	return cmd
}
