package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parchment-labs/extractd/internal/core/domain"
)

var (
	searchLimit  int
	searchOffset int
	searchMIME   []string
	searchJSON   bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search extracted content",
	Long: `Runs a ranked full-text search over all extracted documents in the
local store and prints snippets with the matched terms.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", domain.DefaultSearchLimit, "maximum number of results")
	searchCmd.Flags().IntVar(&searchOffset, "offset", 0, "number of results to skip")
	searchCmd.Flags().StringSliceVar(&searchMIME, "mime", nil, "restrict to MIME types")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	opts := domain.SearchOptions{
		Limit:     searchLimit,
		Offset:    searchOffset,
		MIMETypes: searchMIME,
	}

	page, err := a.search.Search(cmd.Context(), args[0], opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, page)
	}
	return outputSearchTable(cmd, page)
}

func outputSearchJSON(cmd *cobra.Command, page *domain.SearchPage) error {
	data, err := json.MarshalIndent(page, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, page *domain.SearchPage) error {
	if len(page.Results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Printf("%d results for %q:\n", page.Total, page.Query)
	cmd.Println()
	for i, result := range page.Results {
		cmd.Printf("  [%d] %s (%.2f)\n", page.Offset+i+1, result.FileName, result.Score)
		if result.Snippet != "" {
			cmd.Printf("      %s\n", result.Snippet)
		}
		cmd.Println()
	}
	return nil
}
