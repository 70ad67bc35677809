// Package grid maintains the hierarchical year→volume→issue index of a
// journal, persisted as a single grid.json snapshot.
package grid

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// FileName is the snapshot file stored at the root of the archive.
const FileName = "grid.json"

// ErrCorrupt indicates a snapshot that exists but does not parse.
var ErrCorrupt = errors.New("invalid content in grid.json")

// ErrNotFound is returned by Lookup for an unknown year/volume/issue.
var ErrNotFound = errors.New("issue not found in grid")

// Entry describes one issue of the journal. IssueID is the destination
// system's id, zero until the issue has been matched or created there.
// Once set it is never changed by a re-run.
type Entry struct {
	Text    string `json:"text"`
	URL     string `json:"url"`
	IssueID int64  `json:"issueId,omitempty"`
}

// Discoverer builds the index from the remote portal when no snapshot
// exists yet.
type Discoverer func() (map[string]map[string]map[string]*Entry, error)

// Index is the in-memory grid with dirty-flag gated persistence.
type Index struct {
	years map[string]map[string]map[string]*Entry
	path  string
	dirty bool
	log   logrus.FieldLogger
}

// Path returns the grid.json path inside an output directory.
func Path(outputDir string) string {
	return filepath.Join(outputDir, FileName)
}

// Load reads the snapshot at path, or, when the file is absent and a
// discoverer is given, builds the index remotely and persists it.
func Load(path string, discover Discoverer, log logrus.FieldLogger) (*Index, error) {
	idx := &Index{path: path, log: log}
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(raw, &idx.years); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		return idx, nil
	case os.IsNotExist(err):
		if discover == nil {
			return nil, fmt.Errorf("grid.json not found: %s", path)
		}
	default:
		return nil, fmt.Errorf("reading grid: %w", err)
	}

	years, err := discover()
	if err != nil {
		return nil, fmt.Errorf("fetching grid: %w", err)
	}
	idx.years = years
	idx.dirty = true
	if err := idx.Flush(); err != nil {
		return nil, err
	}
	return idx, nil
}

// Lookup returns the entry for a year/volume/issue label.
func (x *Index) Lookup(year, volume, issue string) (*Entry, error) {
	entry := x.years[year][volume][issue]
	if entry == nil {
		return nil, fmt.Errorf("%w: %s/%s/%s", ErrNotFound, year, volume, issue)
	}
	return entry, nil
}

// Annotate records the destination issue id for an entry and marks the
// index dirty. An id already present is left untouched.
func (x *Index) Annotate(year, volume, issue string, issueID int64) error {
	entry, err := x.Lookup(year, volume, issue)
	if err != nil {
		return err
	}
	if entry.IssueID != 0 {
		return nil
	}
	entry.IssueID = issueID
	x.dirty = true
	return nil
}

// Flush writes the snapshot back to disk, only when something changed.
func (x *Index) Flush() error {
	if !x.dirty {
		return nil
	}
	data, err := json.Marshal(x.years)
	if err != nil {
		return fmt.Errorf("encoding grid: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(x.path), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(x.path, data, 0644); err != nil {
		return fmt.Errorf("writing grid: %w", err)
	}
	x.dirty = false
	return nil
}

// Years returns all years in sorted order.
func (x *Index) Years() []string {
	return sortedKeys(x.years)
}

// Volumes returns the volumes of a year in sorted order.
func (x *Index) Volumes(year string) []string {
	return sortedKeys(x.years[year])
}

// IssueNames returns the issue labels of a year/volume in sorted order.
func (x *Index) IssueNames(year, volume string) []string {
	return sortedKeys(x.years[year][volume])
}

// CountIssues returns the total number of issues in the index.
func (x *Index) CountIssues() int {
	total := 0
	for _, volumes := range x.years {
		for _, issues := range volumes {
			total += len(issues)
		}
	}
	return total
}

// SelectionError enumerates requested keys that are not present in the
// index. The request is rejected as a whole, nothing is partial-matched.
type SelectionError struct {
	Kind    string // "years", "volumes" or "issues"
	Invalid []string
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Kind, strings.Join(e.Invalid, ", "))
}

// Selection is a validated subset of the grid to operate on.
type Selection struct {
	Years   []string
	Volumes []string
	Issues  []string
}

// Select validates the requested years/volumes/issues against the index
// and fills empty filters with every known value. Any requested value
// absent from the index fails validation.
func (x *Index) Select(years, volumes, issues []string) (*Selection, error) {
	if invalid := difference(years, x.Years()); len(invalid) > 0 {
		return nil, &SelectionError{Kind: "years", Invalid: invalid}
	}
	if len(years) == 0 {
		years = x.Years()
	}

	var validVolumes []string
	for _, year := range years {
		validVolumes = append(validVolumes, x.Volumes(year)...)
	}
	if invalid := difference(volumes, validVolumes); len(invalid) > 0 {
		return nil, &SelectionError{Kind: "volumes", Invalid: invalid}
	}
	if len(volumes) == 0 {
		volumes = validVolumes
	}

	var validIssues []string
	for _, year := range years {
		for _, volume := range volumes {
			validIssues = append(validIssues, x.IssueNames(year, volume)...)
		}
	}
	if invalid := difference(issues, validIssues); len(invalid) > 0 {
		return nil, &SelectionError{Kind: "issues", Invalid: invalid}
	}
	if len(issues) == 0 {
		issues = validIssues
	}

	return &Selection{Years: years, Volumes: volumes, Issues: issues}, nil
}

// Contains reports whether the selection includes an issue label.
func (s *Selection) Contains(issue string) bool {
	for _, name := range s.Issues {
		if name == issue {
			return true
		}
	}
	return false
}

// difference returns the members of want missing from have.
func difference(want, have []string) []string {
	known := make(map[string]bool, len(have))
	for _, v := range have {
		known[v] = true
	}
	var missing []string
	for _, v := range want {
		if !known[v] {
			missing = append(missing, v)
		}
	}
	return missing
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
