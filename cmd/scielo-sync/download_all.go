package main

import (
	"context"

	"github.com/spf13/cobra"
)

// crawlLanguages is the locale order of a full crawl. The first locale
// fills each record, later passes add their localized fields.
var crawlLanguages = []string{"pt_BR", "en_US", "es_ES"}

func init() {
	addCrawlFlags(downloadAllCmd)
	rootCmd.AddCommand(downloadAllCmd)
}

var downloadAllCmd = &cobra.Command{
	Use:   "download-all",
	Short: "Crawl metadata in every locale, then download all binaries",
	Long: `Run the metadata crawl once per portal locale and then download the
binaries of every crawled article. Equivalent to three
download-metadata runs followed by download-binaries.

Example:
  scielo-sync download-all -j csp -y 2020`,
	RunE: runDownloadAll,
}

func runDownloadAll(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	ctx := context.Background()
	for _, lang := range crawlLanguages {
		client, err := buildClient(cfg, lang)
		if err != nil {
			exitWithError(ExitConfigError, "%v", err)
		}
		if err := crawlMetadata(ctx, client, ""); err != nil {
			return err
		}
	}

	client, err := buildClient(cfg, "")
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	return client.DownloadAllBinaries(ctx, "", "", "", "")
}
