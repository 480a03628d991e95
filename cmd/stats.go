package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/naka-gawa/repo-compare/internal/usecase"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats OWNER/REPO",
	Short: "Fetches the stats of one repository and outputs them as JSON",
	Long:  `Fetches stars, forks, contributors, commits, open/closed issues, creation and last commit dates and the license of a single repository, and outputs the result in JSON format.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		logger := newLogger(cmd)

		githubGateway, err := newGateway(cmd, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create GitHub gateway: %v\n", err)
			os.Exit(1)
		}
		collector := usecase.NewCollector(githubGateway, logger)

		stats, err := collector.Collect(ctx, args[0])
		if err != nil {
			reportError(os.Stderr, err)
			os.Exit(1)
		}

		jsonData, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to marshal results to JSON: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(jsonData))
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
