package cmd

import (
	"strings"

	"github.com/spf13/cobra"
)

func newSearchCmd(g *globalOptions) *cobra.Command {
	var (
		topK       int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed documents",
		Long: `Search the indexed documents by meaning.

The index is built first if it is empty.

Examples:
  localrag search -d ./docs "how do I configure retries"
  localrag search -d ./docs -k 10 deployment checklist --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, cleanup, err := g.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			k := a.DefaultTopK()
			if cmd.Flags().Changed("top-k") {
				k = topK
			}

			resp, err := a.Search(cmd.Context(), strings.Join(args, " "), k)
			if err != nil {
				return err
			}

			out := newPrinter(cmd.OutOrStdout())
			if jsonOutput {
				return out.json(resp)
			}
			out.searchResults(resp)
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of results, 1 to search.max_top_k (default from config)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	return cmd
}
