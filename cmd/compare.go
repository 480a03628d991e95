package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/naka-gawa/repo-compare/internal/domain"
	"github.com/naka-gawa/repo-compare/internal/usecase"
	"github.com/spf13/cobra"
)

var compareCmd = &cobra.Command{
	Use:   "compare OWNER/REPO...",
	Short: "Compares repositories and outputs one row per repository",
	Long: `Fetches the stats of every given repository and lays them out in one table
keyed by repository name, in the order given on the command line.

By default the first failing repository aborts the comparison. With
--partial-ok the repositories that succeeded are still printed, each
failure is reported on standard error, and the exit status is 0 as long
as at least one repository succeeded.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		logger := newLogger(cmd)

		output, _ := cmd.Flags().GetString("output")
		describe, _ := cmd.Flags().GetBool("describe")
		partialOK, _ := cmd.Flags().GetBool("partial-ok")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		render, err := rendererFor(output)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		// Inject dependencies and run the main business logic.
		githubGateway, err := newGateway(cmd, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create GitHub gateway: %v\n", err)
			os.Exit(1)
		}
		collector := usecase.NewCollector(githubGateway, logger)
		comparer := usecase.NewComparer(collector, usecase.Options{
			PartialOK:   partialOK,
			Concurrency: concurrency,
		}, logger)

		table, err := comparer.Compare(ctx, args)
		if err != nil {
			reportError(os.Stderr, err)
			if !hasRows(table) {
				os.Exit(1)
			}
		}

		if err := render(os.Stdout, table, describe); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render results: %v\n", err)
			os.Exit(1)
		}
	},
}

// hasRows reports whether a comparison produced anything worth printing.
func hasRows(table *domain.Table) bool {
	return table != nil && table.Len() > 0
}

func init() {
	rootCmd.AddCommand(compareCmd)
	compareCmd.Flags().StringP("output", "o", "table", "Output format: table, json or csv")
	compareCmd.Flags().Bool("describe", false, "Append summary statistics of the numeric columns")
	compareCmd.Flags().Bool("partial-ok", false, "Keep the repositories that succeeded when others fail")
	compareCmd.Flags().IntP("concurrency", "c", 1, "Number of repositories fetched at once")
}
