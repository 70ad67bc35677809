package main

import (
	"context"

	"github.com/spf13/cobra"
)

var (
	binariesYear    string
	binariesVolume  string
	binariesIssue   string
	binariesArticle string
)

func init() {
	downloadBinariesCmd.Flags().StringVarP(&journalSlug, "journal", "j", "", "Journal slug on the portal (required)")
	downloadBinariesCmd.Flags().StringVarP(&binariesYear, "year", "y", "", "Restrict to one year")
	downloadBinariesCmd.Flags().StringVarP(&binariesVolume, "volume", "V", "", "Restrict to one volume")
	downloadBinariesCmd.Flags().StringVarP(&binariesIssue, "issue", "i", "", "Restrict to one issue")
	downloadBinariesCmd.Flags().StringVarP(&binariesArticle, "article", "a", "", "Restrict to one article id")
	downloadBinariesCmd.MarkFlagRequired("journal")
	rootCmd.AddCommand(downloadBinariesCmd)
}

var downloadBinariesCmd = &cobra.Command{
	Use:   "download-binaries",
	Short: "Download pages, PDFs and assets for crawled articles",
	Long: `Walk the archive for article records matching the filters and download
every format/locale variant each record lists: full text pages reduced
to their body and wrapped in the assets template, PDFs verbatim, and
embedded images. Files already on disk are not fetched again.

Example:
  scielo-sync download-binaries -j csp -y 2020`,
	RunE: runDownloadBinaries,
}

func runDownloadBinaries(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	client, err := buildClient(cfg, "")
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	return client.DownloadAllBinaries(context.Background(), binariesYear, binariesVolume, binariesIssue, binariesArticle)
}
