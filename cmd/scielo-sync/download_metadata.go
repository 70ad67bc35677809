package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/htorres/scielo-sync/internal/portal"
)

var (
	metadataLanguage string
	metadataArticle  string
)

func init() {
	addCrawlFlags(downloadMetadataCmd)
	downloadMetadataCmd.Flags().StringVarP(&metadataLanguage, "language", "l", "", "Crawl locale (pt_BR, es_ES or en_US)")
	downloadMetadataCmd.Flags().StringVarP(&metadataArticle, "article", "a", "", "Restrict to one article id")
	rootCmd.AddCommand(downloadMetadataCmd)
}

var downloadMetadataCmd = &cobra.Command{
	Use:   "download-metadata",
	Short: "Crawl issue listings into per-article metadata records",
	Long: `Crawl the journal grid and the selected issue listings, writing one
metadata JSON file per article. Listings are cached per locale, so
running the command once per locale accumulates localized titles and
abstracts in the same records.

Example:
  scielo-sync download-metadata -j csp -y 2020 -l pt_BR`,
	RunE: runDownloadMetadata,
}

func runDownloadMetadata(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	client, err := buildClient(cfg, metadataLanguage)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	return crawlMetadata(context.Background(), client, metadataArticle)
}

// crawlMetadata walks the validated selection and crawls each issue.
func crawlMetadata(ctx context.Context, client *portal.Client, articleID string) error {
	idx, err := client.GridIndex(ctx)
	if err != nil {
		exitWithError(ExitError, "loading grid: %v", err)
	}
	sel := mustSelect(idx)

	for _, year := range sel.Years {
		for _, volume := range idx.Volumes(year) {
			if !containsString(sel.Volumes, volume) {
				continue
			}
			for _, issueName := range idx.IssueNames(year, volume) {
				if !sel.Contains(issueName) {
					continue
				}
				if err := client.Issue(ctx, year, volume, issueName, articleID); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
