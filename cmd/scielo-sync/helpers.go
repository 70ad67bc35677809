package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/htorres/scielo-sync/internal/grid"
	"github.com/htorres/scielo-sync/internal/portal"
	"github.com/htorres/scielo-sync/internal/sciconfig"
)

// crawl flags shared by the download commands.
var (
	journalSlug string
	crawlYears  []string
	crawlVols   []string
	crawlIssues []string
)

func addCrawlFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&journalSlug, "journal", "j", "", "Journal slug on the portal (required)")
	cmd.Flags().StringSliceVarP(&crawlYears, "years", "y", nil, "Restrict to these years")
	cmd.Flags().StringSliceVarP(&crawlVols, "volumes", "V", nil, "Restrict to these volumes")
	cmd.Flags().StringSliceVarP(&crawlIssues, "issues", "i", nil, "Restrict to these issues")
	cmd.MarkFlagRequired("journal")
}

// buildClient assembles a portal client from config and flags.
func buildClient(cfg *sciconfig.Config, language string) (*portal.Client, error) {
	if language == "" {
		language = cfg.DefaultLanguage
	}
	return portal.NewClient(portal.Options{
		JournalSlug:   journalSlug,
		BaseDirectory: cfg.Output,
		AssetsDir:     cfg.Assets,
		Host:          cfg.Host,
		HTTPS:         cfg.HTTPS,
		Language:      language,
		RateLimit:     cfg.RateLimit,
		Logger:        newLogger(),
	})
}

// mustSelect validates the crawl filters against the grid, exiting with
// the enumerated invalid values on rejection.
func mustSelect(idx *grid.Index) *grid.Selection {
	sel, err := idx.Select(crawlYears, crawlVols, crawlIssues)
	if err != nil {
		var selErr *grid.SelectionError
		if errors.As(err, &selErr) {
			exitWithError(ExitDataError, "%s", selErr)
		}
		exitWithError(ExitError, "%v", err)
	}
	return sel
}
