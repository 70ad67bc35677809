// Package main provides the scielo-sync CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/htorres/scielo-sync/internal/sciconfig"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	configPath string
	outputDir  string
	assetsDir  string
	verbose    bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "scielo-sync",
	Short: "Journal archive crawler and publishing-system importer",
	Long: `scielo-sync maintains a local archive of a SciELO journal and imports
it into an OJS installation.

Core features:
  - Grid discovery: the journal's year/volume/issue index
  - Metadata crawl: one JSON record per article, per locale
  - Binary download: article pages, PDFs and embedded assets
  - Import: idempotent sync of issues and articles into OJS

Every step caches on disk, so interrupted runs resume where they left off.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file (default "+sciconfig.FileName+")")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "Archive root directory (default output)")
	rootCmd.PersistentFlags().StringVar(&assetsDir, "assets", "", "Assets directory holding template.html (default assets)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.Version = Version
}

// newLogger builds the run logger honoring the verbose flag.
func newLogger() *logrus.Logger {
	log := logrus.New()
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

// loadConfig reads the configuration and applies command-line overrides.
func loadConfig() (*sciconfig.Config, error) {
	cfg, err := sciconfig.Load(configPath)
	if err != nil {
		return nil, err
	}
	if outputDir != "" {
		cfg.Output = outputDir
	}
	if assetsDir != "" {
		cfg.Assets = assetsDir
	}
	if cfg.Output == "" {
		cfg.Output = "output"
	}
	return cfg, nil
}
