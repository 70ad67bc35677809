package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/htorres/scielo-sync/internal/grid"
	"github.com/htorres/scielo-sync/internal/importer"
	"github.com/htorres/scielo-sync/internal/ojs"
)

var (
	importJournalPath     string
	importGenre           string
	importInsertCategory  bool
	importCategorySection bool
	importWithoutKeywords bool
	importWithoutBinaries bool
)

func init() {
	importCmd.Flags().StringVar(&importJournalPath, "journal-path", "", "Destination journal path (required when several journals exist)")
	importCmd.Flags().StringVar(&importGenre, "genre", "OTHER", "Genre key attached to imported files")
	importCmd.Flags().BoolVar(&importInsertCategory, "insert-category", false, "Link each publication to a category named after its article category")
	importCmd.Flags().BoolVar(&importCategorySection, "category-as-section", false, "Place each publication in a section named after its article category")
	importCmd.Flags().BoolVar(&importWithoutKeywords, "without-keywords", false, "Import articles even when no locale has keywords")
	importCmd.Flags().BoolVar(&importWithoutBinaries, "without-binaries", false, "Skip galley creation and the downloaded-binaries requirement")
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import the archive into the destination publishing system",
	Long: `Sync the crawled archive into an OJS database: issues first (matched
or created, then annotated in the grid), then one submission and one
publication per eligible article, with galleys for every downloaded
format/locale variant. Both phases are idempotent, so an interrupted
import can simply be repeated.

Example:
  scielo-sync import --journal-path csp --genre OTHER`,
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	if cfg.OJSDB == "" {
		exitWithError(ExitConfigError, "no destination database configured (ojs_db or OJS_DB_PATH)")
	}
	if cfg.OJSFiles == "" {
		exitWithError(ExitConfigError, "no destination file store configured (ojs_files or OJS_FILES_DIR)")
	}
	log := newLogger()

	idx, err := grid.Load(grid.Path(cfg.Output), nil, log)
	if err != nil {
		exitWithError(ExitDataError, "loading grid: %v", err)
	}

	store, err := ojs.Open(cfg.OJSDB, cfg.OJSFiles, log)
	if err != nil {
		exitWithError(ExitError, "opening destination: %v", err)
	}
	defer store.Close()

	im, err := importer.New(importer.Options{
		OutputDir:             cfg.Output,
		Backend:               store,
		Grid:                  idx,
		Logger:                log,
		JournalPath:           importJournalPath,
		DefaultGenre:          importGenre,
		InsertCategory:        importInsertCategory,
		CopyCategoryToSection: importCategorySection,
		WithoutKeywords:       importWithoutKeywords,
		WithoutBinaries:       importWithoutBinaries,
	})
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	if err := im.Run(); err != nil {
		return err
	}

	stats := im.Stats()
	fmt.Printf("issues: %d created, %d adopted\n", stats.IssuesCreated, stats.IssuesAdopted)
	fmt.Printf("articles: %d submissions, %d publications, %d already imported\n",
		stats.Submissions, stats.Publications, stats.AlreadyImported)
	fmt.Printf("skipped: %d without binaries, %d without keywords\n",
		stats.SkippedNoBinaries, stats.SkippedNoKeywords)
	return nil
}
