package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	gridCmd.Flags().StringVarP(&journalSlug, "journal", "j", "", "Journal slug on the portal (required)")
	gridCmd.MarkFlagRequired("journal")
	rootCmd.AddCommand(gridCmd)
}

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Show the journal's year/volume/issue index",
	Long: `Load the journal grid (from the local snapshot, crawling the portal
when none exists) and print it.

Example:
  scielo-sync grid -j csp`,
	RunE: runGrid,
}

func runGrid(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	client, err := buildClient(cfg, "")
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	idx, err := client.GridIndex(context.Background())
	if err != nil {
		exitWithError(ExitError, "loading grid: %v", err)
	}

	for _, year := range idx.Years() {
		for _, volume := range idx.Volumes(year) {
			issues := idx.IssueNames(year, volume)
			fmt.Printf("%s  v%s  %s\n", year, volume, strings.Join(issues, ", "))
		}
	}
	fmt.Printf("%d issues\n", idx.CountIssues())
	return nil
}
