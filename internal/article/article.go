// Package article defines the per-article metadata record persisted in
// the local archive, one JSON file per article.
package article

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// Format kinds found on an issue listing page.
const (
	FormatText = "text"
	FormatPDF  = "pdf"
)

// ErrMissingDOI is returned by filename-dependent operations when the
// record has no DOI yet.
var ErrMissingDOI = errors.New("article has no DOI")

// ErrIncompleteKey is returned when year/volume/issueName/id are not all
// set and a storage path is requested.
var ErrIncompleteKey = errors.New("article key incomplete (year, volume, issue and id are required)")

// ErrCorruptMetadata indicates a metadata file that exists but does not
// parse. Local corruption is never expected, so callers treat this as fatal.
var ErrCorruptMetadata = errors.New("invalid metadata content")

// Author is one entry of an article's ordered author list.
//
// The JSON keys "foundation" and "decreased" are kept as-is for
// compatibility with archives written by earlier versions of the tool.
type Author struct {
	Name        string `json:"name"`
	ORCID       string `json:"orcid,omitempty"`
	Affiliation string `json:"foundation,omitempty"`
	Deceased    string `json:"decreased,omitempty"`
	Email       string `json:"email,omitempty"`
}

// OJSLinks holds the destination-system ids written back after import.
// A non-zero id is the idempotency marker for its phase.
type OJSLinks struct {
	SubmissionID  int64 `json:"submissionId,omitempty"`
	PublicationID int64 `json:"publicationId,omitempty"`
}

// Record is the persisted per-article aggregate. Field order matches
// the JSON layout of existing archives, so re-saving an untouched
// record is a byte-identical no-op.
type Record struct {
	ID        string                       `json:"id"`
	DOI       string                       `json:"doi"`
	Year      string                       `json:"year"`
	Volume    string                       `json:"volume"`
	IssueName string                       `json:"issueName"`
	Category  string                       `json:"category"`
	Updated   string                       `json:"updated"`
	Published string                       `json:"published"`
	Keywords  map[string][]string          `json:"keywords"`
	Resume    map[string]string            `json:"resume"`
	Title     map[string]string            `json:"title"`
	Formats   map[string]map[string]string `json:"formats"`
	Authors   []Author                     `json:"authors"`
	OJS       OJSLinks                     `json:"ojs"`

	baseDirectory string
	originalRaw   []byte
	log           logrus.FieldLogger
}

// New creates an empty record rooted at the given archive directory.
func New(baseDirectory string, log logrus.FieldLogger) *Record {
	r := &Record{
		Keywords:      map[string][]string{},
		Resume:        map[string]string{},
		Title:         map[string]string{},
		Formats:       map[string]map[string]string{},
		baseDirectory: baseDirectory,
		log:           log,
	}
	return r
}

// BaseDir returns the storage directory for this record:
// <base>/<year>/<volume>/<issueName>/<id>.
func (r *Record) BaseDir() (string, error) {
	if r.Year == "" || r.Volume == "" || r.IssueName == "" || r.ID == "" {
		r.log.WithFields(logrus.Fields{
			"method": "Record.BaseDir",
			"id":     r.ID,
			"year":   r.Year,
		}).Error("required elements to generate path not found")
		return "", ErrIncompleteKey
	}
	return filepath.Join(r.baseDirectory, r.Year, r.Volume, r.IssueName, r.ID), nil
}

// DOISuffix returns the portion of the DOI after its first slash, the
// stable key used for the metadata filename and the binary directory.
// A DOI without a slash is logged as incomplete and used whole.
func (r *Record) DOISuffix() (string, error) {
	if r.DOI == "" {
		r.log.WithFields(logrus.Fields{
			"method": "Record.DOISuffix",
			"id":     r.ID,
		}).Error("DOI is required")
		return "", ErrMissingDOI
	}
	prefix, suffix, found := strings.Cut(r.DOI, "/")
	if !found {
		r.log.WithFields(logrus.Fields{
			"method": "Record.DOISuffix",
			"doi":    r.DOI,
		}).Warn("DOI incomplete")
		return prefix, nil
	}
	return suffix, nil
}

// MetadataFilename returns metadata_<doiSuffix>.json.
func (r *Record) MetadataFilename() (string, error) {
	suffix, err := r.DOISuffix()
	if err != nil {
		return "", err
	}
	return "metadata_" + suffix + ".json", nil
}

// BinaryDir returns the directory holding the article's cached pages,
// binaries and assets: <baseDir>/<doiSuffix>.
func (r *Record) BinaryDir() (string, error) {
	base, err := r.BaseDir()
	if err != nil {
		return "", err
	}
	suffix, err := r.DOISuffix()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, suffix), nil
}

// MetadataPath returns the full path of the metadata file.
func (r *Record) MetadataPath() (string, error) {
	base, err := r.BaseDir()
	if err != nil {
		return "", err
	}
	name, err := r.MetadataFilename()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, name), nil
}

// Load sets the record's storage key and DOI, then reads the metadata
// file if one exists. It reports whether a persisted file was loaded.
func (r *Record) Load(year, volume, issueName, id, doi string) (bool, error) {
	if doi == "" {
		r.log.WithFields(logrus.Fields{
			"method":    "Record.Load",
			"year":      year,
			"volume":    volume,
			"issueName": issueName,
			"articleId": id,
		}).Error("DOI not found")
		return false, ErrMissingDOI
	}
	r.Year = year
	r.Volume = volume
	r.IssueName = issueName
	r.ID = id
	r.DOI = doi
	path, err := r.MetadataPath()
	if err != nil {
		return false, err
	}
	return r.LoadFromFile(path)
}

// LoadFromFile reads a metadata file into the record. A missing file is
// not an error and reports false; a file that fails to parse is local
// corruption and returns ErrCorruptMetadata.
func (r *Record) LoadFromFile(path string) (bool, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading metadata: %w", err)
	}
	if len(raw) == 0 {
		return false, nil
	}
	loaded := New(r.baseDirectory, r.log)
	if err := json.Unmarshal(raw, loaded); err != nil {
		r.log.WithFields(logrus.Fields{
			"method":   "Record.LoadFromFile",
			"filename": path,
		}).Error("invalid metadata content")
		return false, fmt.Errorf("%w: %s", ErrCorruptMetadata, path)
	}
	r.merge(loaded)
	r.originalRaw = raw
	return true, nil
}

// merge copies every populated field of other into r. Used when a crawl
// pass rediscovers an article that already has a file on disk.
func (r *Record) merge(other *Record) {
	if other.ID != "" {
		r.ID = other.ID
	}
	if other.DOI != "" {
		r.DOI = other.DOI
	}
	if other.Year != "" {
		r.Year = other.Year
	}
	if other.Volume != "" {
		r.Volume = other.Volume
	}
	if other.IssueName != "" {
		r.IssueName = other.IssueName
	}
	if other.Category != "" {
		r.Category = other.Category
	}
	if other.Updated != "" {
		r.Updated = other.Updated
	}
	if other.Published != "" {
		r.Published = other.Published
	}
	for lang, words := range other.Keywords {
		r.Keywords[lang] = words
	}
	for lang, text := range other.Resume {
		r.Resume[lang] = text
	}
	for lang, title := range other.Title {
		r.Title[lang] = title
	}
	for format, langs := range other.Formats {
		if r.Formats[format] == nil {
			r.Formats[format] = map[string]string{}
		}
		for lang, url := range langs {
			r.Formats[format][lang] = url
		}
	}
	if len(other.Authors) > 0 {
		r.Authors = other.Authors
	}
	if other.OJS.SubmissionID != 0 {
		r.OJS.SubmissionID = other.OJS.SubmissionID
	}
	if other.OJS.PublicationID != 0 {
		r.OJS.PublicationID = other.OJS.PublicationID
	}
}

// Save writes the record to its metadata file. The write is skipped when
// the marshaled content is byte-identical to what was loaded.
func (r *Record) Save() error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	if r.originalRaw != nil && bytes.Equal(r.originalRaw, data) {
		return nil
	}
	dir, err := r.BaseDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating article directory: %w", err)
	}
	path, err := r.MetadataPath()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}
	r.originalRaw = data
	return nil
}

// SetFormat records the source URL of one format/locale pair.
func (r *Record) SetFormat(format, locale, url string) {
	if r.Formats[format] == nil {
		r.Formats[format] = map[string]string{}
	}
	r.Formats[format][locale] = url
}

// FormatLocales returns the sorted locales available for a format kind.
func (r *Record) FormatLocales(format string) []string {
	return sortedKeys(r.Formats[format])
}

// TitleLocales returns the sorted locales with a title.
func (r *Record) TitleLocales() []string {
	return sortedKeys(r.Title)
}

// KeywordLocales returns the sorted locales with keywords.
func (r *Record) KeywordLocales() []string {
	keys := make([]string, 0, len(r.Keywords))
	for k := range r.Keywords {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FirstLanguage returns the first title locale in sorted order, or ""
// when no title is present. Used as the submission locale.
func (r *Record) FirstLanguage() string {
	locales := r.TitleLocales()
	if len(locales) == 0 {
		return ""
	}
	return locales[0]
}

// HasKeywords reports whether any locale carries at least one keyword.
func (r *Record) HasKeywords() bool {
	for _, words := range r.Keywords {
		if len(words) > 0 {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
