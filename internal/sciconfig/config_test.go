package sciconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.HTTPS {
		t.Error("https should default to true")
	}
	if cfg.Host != "" || cfg.Output != "" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scielo-sync.yaml")
	content := `host: portal.example.org
https: false
output: /srv/archive
assets: /srv/assets
default_language: es_ES
rate_limit: 2.5
ojs_db: /srv/ojs.db
ojs_files: /srv/files
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Host != "portal.example.org" || cfg.HTTPS {
		t.Errorf("host/https = %q/%v", cfg.Host, cfg.HTTPS)
	}
	if cfg.Output != "/srv/archive" || cfg.Assets != "/srv/assets" {
		t.Errorf("paths = %q/%q", cfg.Output, cfg.Assets)
	}
	if cfg.DefaultLanguage != "es_ES" || cfg.RateLimit != 2.5 {
		t.Errorf("language/rate = %q/%v", cfg.DefaultLanguage, cfg.RateLimit)
	}
	if cfg.OJSDB != "/srv/ojs.db" || cfg.OJSFiles != "/srv/files" {
		t.Errorf("ojs paths = %q/%q", cfg.OJSDB, cfg.OJSFiles)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scielo-sync.yaml")
	if err := os.WriteFile(path, []byte(":\n  - ["), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scielo-sync.yaml")
	if err := os.WriteFile(path, []byte("host: from-file\noutput: file-output\n"), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SCIELO_HTTP_HOST", "from-env")
	t.Setenv("SCIELO_OUTPUT_DIR", "env-output")
	t.Setenv("SCIELO_RATE_LIMIT", "8")
	t.Setenv("OJS_DB_PATH", "/env/ojs.db")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Host != "from-env" {
		t.Errorf("host = %q", cfg.Host)
	}
	if cfg.Output != "env-output" {
		t.Errorf("output = %q", cfg.Output)
	}
	if cfg.RateLimit != 8 {
		t.Errorf("rate limit = %v", cfg.RateLimit)
	}
	if cfg.OJSDB != "/env/ojs.db" {
		t.Errorf("ojs db = %q", cfg.OJSDB)
	}
}

func TestEnvInvalidRateLimit(t *testing.T) {
	t.Setenv("SCIELO_RATE_LIMIT", "fast")
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for unparsable rate limit")
	}
}
