// Package sciconfig loads the tool configuration: a YAML file with
// environment overrides layered on top.
package sciconfig

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the default configuration file looked up in the working
// directory.
const FileName = "scielo-sync.yaml"

// Config holds everything the commands need. Zero values fall back to
// the portal and archive defaults at the point of use.
type Config struct {
	// Host is the portal host, e.g. www.scielosp.org.
	Host string `yaml:"host"`

	// HTTPS selects the scheme used against Host.
	HTTPS bool `yaml:"https"`

	// Output is the archive root directory.
	Output string `yaml:"output"`

	// Assets is the directory holding template.html.
	Assets string `yaml:"assets"`

	// DefaultLanguage is the crawl locale used when none is requested.
	DefaultLanguage string `yaml:"default_language"`

	// RateLimit caps portal requests per second.
	RateLimit float64 `yaml:"rate_limit"`

	// OJSDB is the destination SQLite database path.
	OJSDB string `yaml:"ojs_db"`

	// OJSFiles is the destination file store directory.
	OJSFiles string `yaml:"ojs_files"`
}

// Load reads the configuration file at path (FileName when empty) and
// applies environment overrides. A missing file is fine, the zero
// config plus environment is returned.
func Load(path string) (*Config, error) {
	// .env is optional, same as a missing config file
	_ = godotenv.Load()

	if path == "" {
		path = FileName
	}
	cfg := &Config{HTTPS: true}
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("SCIELO_HTTP_HOST"); v != "" {
		c.Host = v
	}
	if v := os.Getenv("SCIELO_OUTPUT_DIR"); v != "" {
		c.Output = v
	}
	if v := os.Getenv("SCIELO_ASSETS_DIR"); v != "" {
		c.Assets = v
	}
	if v := os.Getenv("SCIELO_DEFAULT_LANGUAGE"); v != "" {
		c.DefaultLanguage = v
	}
	if v := os.Getenv("SCIELO_RATE_LIMIT"); v != "" {
		limit, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid SCIELO_RATE_LIMIT %q: %w", v, err)
		}
		c.RateLimit = limit
	}
	if v := os.Getenv("OJS_DB_PATH"); v != "" {
		c.OJSDB = v
	}
	if v := os.Getenv("OJS_FILES_DIR"); v != "" {
		c.OJSFiles = v
	}
	return nil
}
