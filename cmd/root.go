// Package cmd implements the sitewatch command-line interface.
package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sitewatch/sitewatch/cmd/crawl"
	"github.com/sitewatch/sitewatch/cmd/httpd"
	"github.com/sitewatch/sitewatch/cmd/jobs"
)

// cfgFile holds the path to the configuration file.
var cfgFile string

// rootCmd is the root command for the sitewatch CLI.
var rootCmd = &cobra.Command{
	Use:   "sitewatch",
	Short: "A site crawler with change detection",
	Long: `sitewatch crawls configured websites on a schedule, versions their
content, and records what changed between runs.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is ./config.yaml or ./config/config.yaml)",
	)

	rootCmd.AddCommand(httpd.Command(&cfgFile))
	rootCmd.AddCommand(crawl.Command())
	rootCmd.AddCommand(jobs.Command(&cfgFile))
}
