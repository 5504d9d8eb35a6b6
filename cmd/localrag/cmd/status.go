package cmd

import (
	"github.com/spf13/cobra"
)

func newStatusCmd(g *globalOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, _, cleanup, err := g.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			st, err := a.Status(cmd.Context())
			if err != nil {
				return err
			}

			out := newPrinter(cmd.OutOrStdout())
			if jsonOutput {
				return out.json(st)
			}
			out.status(st, a.Config().VectorStore.Backend)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output status as JSON")
	return cmd
}
