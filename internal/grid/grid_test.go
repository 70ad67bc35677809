package grid

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testYears() map[string]map[string]map[string]*Entry {
	return map[string]map[string]map[string]*Entry{
		"2019": {
			"35": {
				"1": {Text: "n.1", URL: "https://portal/j/csp/i/2019.v35n1/"},
				"2": {Text: "n.2", URL: "https://portal/j/csp/i/2019.v35n2/"},
			},
		},
		"2020": {
			"36": {
				"1":     {Text: "n.1", URL: "https://portal/j/csp/i/2020.v36n1/"},
				"suppl": {Text: "suppl.", URL: "https://portal/j/csp/i/2020.v36suppl/"},
			},
		},
	}
}

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.ErrorLevel)
	return log
}

func TestLoadDiscoversAndPersists(t *testing.T) {
	path := Path(t.TempDir())
	calls := 0
	discover := func() (map[string]map[string]map[string]*Entry, error) {
		calls++
		return testYears(), nil
	}

	idx, err := Load(path, discover, testLogger())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one discovery call, got %d", calls)
	}
	if got := idx.CountIssues(); got != 4 {
		t.Errorf("CountIssues = %d, want 4", got)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("snapshot not written: %v", err)
	}

	// The snapshot must satisfy later loads without discovery.
	again, err := Load(path, func() (map[string]map[string]map[string]*Entry, error) {
		t.Fatal("discoverer called despite existing snapshot")
		return nil, nil
	}, testLogger())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	entry, err := again.Lookup("2020", "36", "suppl")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if entry.Text != "suppl." {
		t.Errorf("entry text = %q, want %q", entry.Text, "suppl.")
	}
}

func TestLoadWithoutSnapshotOrDiscoverer(t *testing.T) {
	if _, err := Load(Path(t.TempDir()), nil, testLogger()); err == nil {
		t.Fatal("expected error for missing snapshot without discoverer")
	}
}

func TestLoadCorruptSnapshot(t *testing.T) {
	path := Path(t.TempDir())
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path, nil, testLogger())
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestLookupNotFound(t *testing.T) {
	idx := &Index{years: testYears(), log: testLogger()}
	if _, err := idx.Lookup("1999", "1", "1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAnnotateAndFlush(t *testing.T) {
	dir := t.TempDir()
	path := Path(dir)
	idx, err := Load(path, func() (map[string]map[string]map[string]*Entry, error) {
		return testYears(), nil
	}, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	// A clean index must not rewrite the snapshot.
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}
	if err := idx.Flush(); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.ModTime().After(old.Add(time.Minute)) {
		t.Error("Flush rewrote an unchanged snapshot")
	}

	if err := idx.Annotate("2020", "36", "1", 42); err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	if err := idx.Flush(); err != nil {
		t.Fatal(err)
	}
	reloaded, err := Load(path, nil, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	entry, err := reloaded.Lookup("2020", "36", "1")
	if err != nil {
		t.Fatal(err)
	}
	if entry.IssueID != 42 {
		t.Errorf("IssueID = %d, want 42", entry.IssueID)
	}

	// Annotating again with a different id must not overwrite.
	if err := reloaded.Annotate("2020", "36", "1", 99); err != nil {
		t.Fatal(err)
	}
	entry, _ = reloaded.Lookup("2020", "36", "1")
	if entry.IssueID != 42 {
		t.Errorf("IssueID overwritten to %d", entry.IssueID)
	}
}

func TestSelect(t *testing.T) {
	idx := &Index{years: testYears(), log: testLogger()}

	sel, err := idx.Select(nil, nil, nil)
	if err != nil {
		t.Fatalf("Select all: %v", err)
	}
	if len(sel.Years) != 2 {
		t.Errorf("years = %v", sel.Years)
	}
	if !sel.Contains("suppl") {
		t.Error("selection should contain every issue")
	}

	sel, err = idx.Select([]string{"2019"}, nil, nil)
	if err != nil {
		t.Fatalf("Select 2019: %v", err)
	}
	if len(sel.Volumes) != 1 || sel.Volumes[0] != "35" {
		t.Errorf("volumes = %v, want [35]", sel.Volumes)
	}

	_, err = idx.Select([]string{"2019", "1870", "1871"}, nil, nil)
	var selErr *SelectionError
	if !errors.As(err, &selErr) {
		t.Fatalf("expected SelectionError, got %v", err)
	}
	if selErr.Kind != "years" || len(selErr.Invalid) != 2 {
		t.Errorf("unexpected rejection %+v", selErr)
	}

	if _, err := idx.Select(nil, []string{"99"}, nil); err == nil {
		t.Error("expected rejection of unknown volume")
	}
	if _, err := idx.Select(nil, nil, []string{"nope"}); err == nil {
		t.Error("expected rejection of unknown issue")
	}
}
