package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	queryText string
	queryTopK int
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Search stored propositions",
	Long: `Embed a natural-language query and print the closest stored
propositions ranked by similarity.

Examples:
  queryvault query -q "what temperature does water boil at"
  queryvault query -q "sky color" -k 10`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "search query (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.MarkFlagRequired("query")
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	p, err := newPipeline(ctx)
	if err != nil {
		return err
	}

	topK := cfg.Retrieve.TopK
	if queryTopK > 0 {
		topK = queryTopK
	}

	results, err := p.Search(ctx, queryText, topK)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("No results")
		return nil
	}

	for i, result := range results {
		fmt.Printf("%d. [%.4f] %s\n   %s\n", i+1, result.Score, result.ID, result.Text)
	}

	return nil
}
