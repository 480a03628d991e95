// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/naka-gawa/repo-compare/internal/domain"
	"github.com/naka-gawa/repo-compare/internal/gateway"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "repo-compare",
	Short: "A CLI tool to compare GitHub repositories side by side.",
	Long: `repo-compare fetches repository metadata (stars, forks, contributors,
commits, open/closed issues, creation and last commit dates, license)
from the GitHub API and lays several repositories out in one table,
one row per repository.

The GITHUB_TOKEN (or GH_TOKEN) environment variable must hold a token.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Add a persistent flag for verbose output, available to all commands.
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().String("base-url", "", "GitHub Enterprise REST API URL (e.g. https://ghe.example.com/api/v3/)")
	rootCmd.PersistentFlags().String("graphql-url", "", "GitHub Enterprise GraphQL API URL (e.g. https://ghe.example.com/api/graphql)")
	rootCmd.PersistentFlags().Bool("wait-on-rate-limit", false, "Sleep through secondary rate limits instead of failing")
	rootCmd.PersistentFlags().Duration("timeout", 30*time.Second, "Timeout for each HTTP request")
}

// newLogger discards all logs unless --verbose is set.
func newLogger(cmd *cobra.Command) *log.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := log.New(io.Discard, "", log.LstdFlags)
	if verbose {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

// tokenFromEnv reads the API token, preferring GITHUB_TOKEN over GH_TOKEN.
func tokenFromEnv() string {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return token
	}
	return os.Getenv("GH_TOKEN")
}

// newGateway builds the GitHub gateway from the persistent flags and the environment.
func newGateway(cmd *cobra.Command, logger *log.Logger) (*gateway.GitHubGateway, error) {
	token := tokenFromEnv()
	if token == "" {
		return nil, errors.New("GITHUB_TOKEN environment variable is not set")
	}
	flags := cmd.Flags()
	baseURL, _ := flags.GetString("base-url")
	graphqlURL, _ := flags.GetString("graphql-url")
	wait, _ := flags.GetBool("wait-on-rate-limit")
	timeout, _ := flags.GetDuration("timeout")

	return gateway.NewGitHubGateway(gateway.Config{
		Token:           token,
		BaseURL:         baseURL,
		GraphQLURL:      graphqlURL,
		WaitOnRateLimit: wait,
		Timeout:         timeout,
	}, logger)
}

// reportError prints err with the failing repository and the error kind,
// one line per failure when err joins several.
func reportError(w io.Writer, err error) {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			reportError(w, e)
		}
		return
	}
	var fetchErr *domain.FetchError
	if errors.As(err, &fetchErr) {
		fmt.Fprintf(w, "Error: %s failed (%s): %v\n", fetchErr.Repo, domain.KindOf(err), fetchErr.Err)
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}
