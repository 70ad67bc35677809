package article

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

func sampleRecord(base string) *Record {
	rec := New(base, testLogger())
	rec.ID = "gJv4Z87hK3tGh9qBzrFnPzc"
	rec.DOI = "10.1590/0102-311X00123419"
	rec.Year = "2020"
	rec.Volume = "36"
	rec.IssueName = "4"
	rec.Category = "article"
	rec.Published = "2020-04-06 00:00:00"
	rec.Updated = "2020-04-06 00:00:00"
	rec.Title["pt_BR"] = "Um título"
	rec.Resume["pt_BR"] = "Um resumo."
	rec.Keywords["pt_BR"] = []string{"saúde", "política"}
	rec.SetFormat(FormatText, "pt_BR", "/article/csp/2020.v36n4/x/pt/")
	rec.SetFormat(FormatPDF, "pt_BR", "/pdf/csp/2020.v36n4/x/pt/")
	rec.Authors = []Author{{Name: "Maria Silva"}}
	return rec
}

func TestDOISuffix(t *testing.T) {
	rec := New(t.TempDir(), testLogger())
	rec.DOI = "10.1590/0102-311X00123419"
	suffix, err := rec.DOISuffix()
	if err != nil {
		t.Fatal(err)
	}
	if suffix != "0102-311X00123419" {
		t.Errorf("suffix = %q", suffix)
	}

	name, err := rec.MetadataFilename()
	if err != nil {
		t.Fatal(err)
	}
	if name != "metadata_0102-311X00123419.json" {
		t.Errorf("filename = %q", name)
	}
}

func TestDOISuffixIncomplete(t *testing.T) {
	rec := New(t.TempDir(), testLogger())
	rec.DOI = "0102-311X00123419"
	suffix, err := rec.DOISuffix()
	if err != nil {
		t.Fatal(err)
	}
	if suffix != "0102-311X00123419" {
		t.Errorf("incomplete DOI should be used whole, got %q", suffix)
	}
}

func TestDOISuffixMissing(t *testing.T) {
	rec := New(t.TempDir(), testLogger())
	if _, err := rec.DOISuffix(); !errors.Is(err, ErrMissingDOI) {
		t.Fatalf("expected ErrMissingDOI, got %v", err)
	}
}

func TestBaseDirRequiresKey(t *testing.T) {
	rec := New(t.TempDir(), testLogger())
	rec.Year = "2020"
	if _, err := rec.BaseDir(); !errors.Is(err, ErrIncompleteKey) {
		t.Fatalf("expected ErrIncompleteKey, got %v", err)
	}
}

func TestSaveAndLoadRoundtrip(t *testing.T) {
	base := t.TempDir()
	rec := sampleRecord(base)
	if err := rec.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := New(base, testLogger())
	found, err := loaded.Load("2020", "36", "4", rec.ID, rec.DOI)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !found {
		t.Fatal("expected persisted record to be found")
	}
	if loaded.Title["pt_BR"] != "Um título" {
		t.Errorf("title = %q", loaded.Title["pt_BR"])
	}
	if loaded.Formats[FormatPDF]["pt_BR"] == "" {
		t.Error("pdf format lost in roundtrip")
	}
	if len(loaded.Authors) != 1 || loaded.Authors[0].Name != "Maria Silva" {
		t.Errorf("authors = %+v", loaded.Authors)
	}
}

func TestLoadMissingFile(t *testing.T) {
	rec := New(t.TempDir(), testLogger())
	found, err := rec.Load("2020", "36", "4", "abc", "10.1590/xyz")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if found {
		t.Error("missing file reported as found")
	}
}

func TestLoadCorruptFile(t *testing.T) {
	base := t.TempDir()
	rec := sampleRecord(base)
	path, err := rec.MetadataPath()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{broken"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := rec.LoadFromFile(path); !errors.Is(err, ErrCorruptMetadata) {
		t.Fatalf("expected ErrCorruptMetadata, got %v", err)
	}
}

func TestSaveSkipsUnchanged(t *testing.T) {
	base := t.TempDir()
	rec := sampleRecord(base)
	if err := rec.Save(); err != nil {
		t.Fatal(err)
	}
	path, err := rec.MetadataPath()
	if err != nil {
		t.Fatal(err)
	}

	loaded := New(base, testLogger())
	if _, err := loaded.Load("2020", "36", "4", rec.ID, rec.DOI); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}
	if err := loaded.Save(); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.ModTime().After(old.Add(time.Minute)) {
		t.Error("unchanged record was rewritten")
	}

	// A real change must write.
	loaded.Title["en_US"] = "A title"
	if err := loaded.Save(); err != nil {
		t.Fatal(err)
	}
	info, _ = os.Stat(path)
	if !info.ModTime().After(old.Add(time.Minute)) {
		t.Error("changed record was not rewritten")
	}
}

func TestMergeKeepsExistingOJSIds(t *testing.T) {
	base := t.TempDir()
	rec := sampleRecord(base)
	rec.OJS.SubmissionID = 7
	rec.OJS.PublicationID = 8
	if err := rec.Save(); err != nil {
		t.Fatal(err)
	}

	// A fresh crawl pass knows nothing of the destination ids.
	again := New(base, testLogger())
	if _, err := again.Load("2020", "36", "4", rec.ID, rec.DOI); err != nil {
		t.Fatal(err)
	}
	if again.OJS.SubmissionID != 7 || again.OJS.PublicationID != 8 {
		t.Errorf("ojs ids lost: %+v", again.OJS)
	}
}

func TestLocaleHelpers(t *testing.T) {
	rec := New(t.TempDir(), testLogger())
	rec.Title["pt_BR"] = "a"
	rec.Title["en_US"] = "b"
	rec.SetFormat(FormatText, "pt_BR", "u")

	locales := rec.TitleLocales()
	if len(locales) != 2 || locales[0] != "en_US" {
		t.Errorf("TitleLocales = %v", locales)
	}
	if rec.FirstLanguage() != "en_US" {
		t.Errorf("FirstLanguage = %q", rec.FirstLanguage())
	}
	if rec.HasKeywords() {
		t.Error("HasKeywords on empty record")
	}
	rec.Keywords["pt_BR"] = []string{}
	if rec.HasKeywords() {
		t.Error("empty keyword list counts as keywords")
	}
	rec.Keywords["pt_BR"] = []string{"x"}
	if !rec.HasKeywords() {
		t.Error("HasKeywords missed a keyword")
	}
}
