package ojs

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// schema is the subset of the OJS 3.x tables the importer touches.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS journals (
  journal_id INTEGER PRIMARY KEY AUTOINCREMENT,
  path TEXT NOT NULL UNIQUE,
  primary_locale TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS journal_settings (
  journal_id INTEGER NOT NULL,
  locale TEXT NOT NULL DEFAULT '',
  setting_name TEXT NOT NULL,
  setting_value TEXT
)`,
	`CREATE TABLE IF NOT EXISTS user_groups (
  user_group_id INTEGER PRIMARY KEY AUTOINCREMENT,
  context_id INTEGER NOT NULL,
  role_id INTEGER NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS genres (
  genre_id INTEGER PRIMARY KEY AUTOINCREMENT,
  entry_key TEXT NOT NULL,
  supplementary INTEGER NOT NULL DEFAULT 0,
  enabled INTEGER NOT NULL DEFAULT 1
)`,
	`CREATE TABLE IF NOT EXISTS issues (
  issue_id INTEGER PRIMARY KEY AUTOINCREMENT,
  journal_id INTEGER NOT NULL,
  volume INTEGER,
  number TEXT,
  year INTEGER,
  published INTEGER NOT NULL DEFAULT 0,
  show_volume INTEGER NOT NULL DEFAULT 0,
  show_number INTEGER NOT NULL DEFAULT 0,
  show_year INTEGER NOT NULL DEFAULT 0,
  show_title INTEGER NOT NULL DEFAULT 0
)`,
	`CREATE TABLE IF NOT EXISTS issue_settings (
  issue_id INTEGER NOT NULL,
  locale TEXT NOT NULL DEFAULT '',
  setting_name TEXT NOT NULL,
  setting_value TEXT
)`,
	`CREATE TABLE IF NOT EXISTS submissions (
  submission_id INTEGER PRIMARY KEY AUTOINCREMENT,
  context_id INTEGER NOT NULL,
  current_publication_id INTEGER,
  status INTEGER NOT NULL,
  stage_id INTEGER NOT NULL,
  locale TEXT,
  date_submitted TEXT,
  date_last_activity TEXT,
  last_modified TEXT,
  submission_progress INTEGER NOT NULL DEFAULT 0
)`,
	`CREATE TABLE IF NOT EXISTS publications (
  publication_id INTEGER PRIMARY KEY AUTOINCREMENT,
  submission_id INTEGER NOT NULL,
  issue_id INTEGER,
  section_id INTEGER,
  primary_contact_id INTEGER,
  status INTEGER NOT NULL,
  locale TEXT,
  version INTEGER NOT NULL DEFAULT 1,
  date_published TEXT,
  last_modified TEXT
)`,
	`CREATE TABLE IF NOT EXISTS publication_settings (
  publication_id INTEGER NOT NULL,
  locale TEXT NOT NULL DEFAULT '',
  setting_name TEXT NOT NULL,
  setting_value TEXT
)`,
	`CREATE TABLE IF NOT EXISTS authors (
  author_id INTEGER PRIMARY KEY AUTOINCREMENT,
  publication_id INTEGER NOT NULL,
  seq INTEGER NOT NULL,
  email TEXT,
  user_group_id INTEGER,
  include_in_browse INTEGER NOT NULL DEFAULT 1,
  primary_contact INTEGER NOT NULL DEFAULT 0
)`,
	`CREATE TABLE IF NOT EXISTS author_settings (
  author_id INTEGER NOT NULL,
  locale TEXT NOT NULL DEFAULT '',
  setting_name TEXT NOT NULL,
  setting_value TEXT
)`,
	`CREATE TABLE IF NOT EXISTS sections (
  section_id INTEGER PRIMARY KEY AUTOINCREMENT,
  journal_id INTEGER NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS section_settings (
  section_id INTEGER NOT NULL,
  locale TEXT NOT NULL DEFAULT '',
  setting_name TEXT NOT NULL,
  setting_value TEXT
)`,
	`CREATE TABLE IF NOT EXISTS categories (
  category_id INTEGER PRIMARY KEY AUTOINCREMENT,
  context_id INTEGER NOT NULL,
  path TEXT
)`,
	`CREATE TABLE IF NOT EXISTS category_settings (
  category_id INTEGER NOT NULL,
  locale TEXT NOT NULL DEFAULT '',
  setting_name TEXT NOT NULL,
  setting_value TEXT
)`,
	`CREATE TABLE IF NOT EXISTS publication_categories (
  publication_id INTEGER NOT NULL,
  category_id INTEGER NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS files (
  file_id INTEGER PRIMARY KEY AUTOINCREMENT,
  path TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS submission_files (
  submission_file_id INTEGER PRIMARY KEY AUTOINCREMENT,
  submission_id INTEGER NOT NULL,
  file_id INTEGER NOT NULL,
  genre_id INTEGER,
  file_stage INTEGER NOT NULL,
  assoc_type INTEGER,
  assoc_id INTEGER,
  created_at TEXT,
  updated_at TEXT
)`,
	`CREATE TABLE IF NOT EXISTS submission_file_settings (
  submission_file_id INTEGER NOT NULL,
  locale TEXT NOT NULL DEFAULT '',
  setting_name TEXT NOT NULL,
  setting_value TEXT
)`,
	`CREATE TABLE IF NOT EXISTS publication_galleys (
  galley_id INTEGER PRIMARY KEY AUTOINCREMENT,
  publication_id INTEGER NOT NULL,
  label TEXT,
  locale TEXT,
  submission_file_id INTEGER,
  seq INTEGER NOT NULL DEFAULT 0
)`,
	`CREATE TABLE IF NOT EXISTS submission_search_index (
  submission_id INTEGER PRIMARY KEY,
  last_indexed TEXT NOT NULL
)`,
}

// Store implements Backend against a SQLite database plus a files
// directory for stored binaries.
type Store struct {
	db       *sql.DB
	filesDir string
	log      logrus.FieldLogger
}

// Open opens (creating if needed) the destination database and file
// store.
func Open(dbPath, filesDir string, log logrus.FieldLogger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	for _, ddl := range schema {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("initializing schema: %w", err)
		}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Store{db: db, filesDir: filesDir, log: log}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Journal resolves the destination journal by path, or the sole journal
// when no path is given.
func (s *Store) Journal(pathHint string) (*Journal, error) {
	rows, err := s.db.Query(`SELECT journal_id, path, primary_locale FROM journals ORDER BY journal_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var journals []*Journal
	for rows.Next() {
		j := &Journal{}
		if err := rows.Scan(&j.ID, &j.Path, &j.PrimaryLocale); err != nil {
			return nil, err
		}
		journals = append(journals, j)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var journal *Journal
	switch {
	case len(journals) == 0:
		return nil, ErrNoJournal
	case pathHint != "":
		for _, j := range journals {
			if j.Path == pathHint {
				journal = j
				break
			}
		}
		if journal == nil {
			return nil, fmt.Errorf("%w: %s", ErrJournalNotFound, pathHint)
		}
	case len(journals) > 1:
		return nil, ErrAmbiguousJournal
	default:
		journal = journals[0]
	}

	journal.ContactEmail, _ = s.journalSetting(journal.ID, "contactEmail")
	if raw, ok := s.journalSetting(journal.ID, "supportedLocales"); ok {
		if err := json.Unmarshal([]byte(raw), &journal.SupportedLocales); err != nil {
			return nil, fmt.Errorf("parsing supportedLocales: %w", err)
		}
	}
	if len(journal.SupportedLocales) == 0 && journal.PrimaryLocale != "" {
		journal.SupportedLocales = []string{journal.PrimaryLocale}
	}
	return journal, nil
}

func (s *Store) journalSetting(journalID int64, name string) (string, bool) {
	var value sql.NullString
	err := s.db.QueryRow(
		`SELECT setting_value FROM journal_settings WHERE journal_id = ? AND setting_name = ?`,
		journalID, name).Scan(&value)
	if err != nil || !value.Valid {
		return "", false
	}
	return value.String, true
}

// GenreByKey resolves a genre by its key.
func (s *Store) GenreByKey(key string) (*Genre, error) {
	g := &Genre{}
	var supplementary, enabled int
	err := s.db.QueryRow(
		`SELECT genre_id, entry_key, supplementary, enabled FROM genres WHERE entry_key = ?`,
		key).Scan(&g.ID, &g.Key, &supplementary, &enabled)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrGenreNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	g.Supplementary = supplementary != 0
	g.Enabled = enabled != 0
	return g, nil
}

// AuthorUserGroup returns the default author group of a journal.
func (s *Store) AuthorUserGroup(journalID int64) (int64, error) {
	var id int64
	err := s.db.QueryRow(
		`SELECT user_group_id FROM user_groups WHERE context_id = ? AND role_id = ?`,
		journalID, RoleIDAuthor).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("no author user group for journal %d", journalID)
	}
	return id, err
}

// FindIssue fuzzy-matches an existing issue: volume and year exact,
// title hint matched case-insensitively against the issue number and
// the localized title with "." widened to a LIKE wildcard.
func (s *Store) FindIssue(journalID int64, volume, year int, titleHint string) (*Issue, error) {
	pattern := strings.ReplaceAll(strings.ToLower(titleHint), ".", "%")
	row := s.db.QueryRow(
		`SELECT i.issue_id, i.volume, i.number, i.year
FROM issues i
LEFT JOIN issue_settings iss1 ON (i.issue_id = iss1.issue_id AND iss1.setting_name = 'title')
WHERE i.journal_id = ?
AND i.volume = ?
AND i.year = ?
AND (LOWER(i.number) LIKE ? OR LOWER(iss1.setting_value) LIKE ?)`,
		journalID, volume, year, pattern, pattern)

	issue := &Issue{JournalID: journalID}
	err := row.Scan(&issue.ID, &issue.Volume, &issue.Number, &issue.Year)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return issue, nil
}

// CreateIssue inserts a published issue with its localized titles.
func (s *Store) CreateIssue(issue *Issue) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO issues (journal_id, volume, number, year, published, show_volume, show_number, show_year, show_title)
VALUES (?, ?, ?, ?, 1, 1, 1, 1, 1)`,
		issue.JournalID, issue.Volume, issue.Number, issue.Year)
	if err != nil {
		return 0, fmt.Errorf("inserting issue: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for locale, title := range issue.Title {
		if _, err := s.db.Exec(
			`INSERT INTO issue_settings (issue_id, locale, setting_name, setting_value) VALUES (?, ?, 'title', ?)`,
			id, locale, title); err != nil {
			return 0, fmt.Errorf("inserting issue title: %w", err)
		}
	}
	issue.ID = id
	return id, nil
}

// CreateSubmission inserts a submission record.
func (s *Store) CreateSubmission(sub *Submission) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO submissions (context_id, status, stage_id, locale, date_submitted, date_last_activity, last_modified, submission_progress)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ContextID, sub.Status, sub.StageID, sub.Locale,
		sub.DateSubmitted, sub.DateLastActivity, sub.LastModified, sub.SubmissionProgress)
	if err != nil {
		return 0, fmt.Errorf("inserting submission: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	sub.ID = id
	return id, nil
}

// Submission loads a submission by id.
func (s *Store) Submission(id int64) (*Submission, error) {
	sub := &Submission{}
	var currentPublication sql.NullInt64
	var locale, submitted, activity, modified sql.NullString
	err := s.db.QueryRow(
		`SELECT submission_id, context_id, current_publication_id, status, stage_id, locale, date_submitted, date_last_activity, last_modified, submission_progress
FROM submissions WHERE submission_id = ?`, id).Scan(
		&sub.ID, &sub.ContextID, &currentPublication, &sub.Status, &sub.StageID,
		&locale, &submitted, &activity, &modified, &sub.SubmissionProgress)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("submission %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	sub.CurrentPublicationID = currentPublication.Int64
	sub.Locale = locale.String
	sub.DateSubmitted = submitted.String
	sub.DateLastActivity = activity.String
	sub.LastModified = modified.String
	return sub, nil
}

// UpdateSubmissionCurrentPublication points a submission at its
// published version.
func (s *Store) UpdateSubmissionCurrentPublication(submissionID, publicationID int64) error {
	_, err := s.db.Exec(
		`UPDATE submissions SET current_publication_id = ? WHERE submission_id = ?`,
		publicationID, submissionID)
	return err
}

// CreatePublication inserts a publication with its localized settings.
func (s *Store) CreatePublication(p *Publication) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO publications (submission_id, issue_id, section_id, primary_contact_id, status, locale, version, date_published, last_modified)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.SubmissionID, nullable(p.IssueID), nullable(p.SectionID), nullable(p.PrimaryContactID),
		p.Status, p.Locale, p.Version, p.DatePublished, p.LastModified)
	if err != nil {
		return 0, fmt.Errorf("inserting publication: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if p.DOI != "" {
		if err := s.publicationSetting(id, "", "pub-id::doi", p.DOI); err != nil {
			return 0, err
		}
	}
	if p.CopyrightYear != "" {
		if err := s.publicationSetting(id, "", "copyrightYear", p.CopyrightYear); err != nil {
			return 0, err
		}
	}
	for locale, title := range p.Title {
		if err := s.publicationSetting(id, locale, "title", title); err != nil {
			return 0, err
		}
	}
	for locale, abstract := range p.Abstract {
		if err := s.publicationSetting(id, locale, "abstract", abstract); err != nil {
			return 0, err
		}
	}
	for locale, keywords := range p.Keywords {
		raw, err := json.Marshal(keywords)
		if err != nil {
			return 0, fmt.Errorf("encoding keywords: %w", err)
		}
		if err := s.publicationSetting(id, locale, "keywords", string(raw)); err != nil {
			return 0, err
		}
	}
	p.ID = id
	return id, nil
}

func (s *Store) publicationSetting(publicationID int64, locale, name, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO publication_settings (publication_id, locale, setting_name, setting_value) VALUES (?, ?, ?, ?)`,
		publicationID, locale, name, value)
	if err != nil {
		return fmt.Errorf("inserting publication setting %s: %w", name, err)
	}
	return nil
}

// SetPublicationPrimaryContact wires the first author back into the
// publication.
func (s *Store) SetPublicationPrimaryContact(publicationID, authorID int64) error {
	_, err := s.db.Exec(
		`UPDATE publications SET primary_contact_id = ? WHERE publication_id = ?`,
		authorID, publicationID)
	return err
}

// CreateAuthor inserts one contributor row with its localized settings.
func (s *Store) CreateAuthor(a *Author) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO authors (publication_id, seq, email, user_group_id, include_in_browse, primary_contact)
VALUES (?, ?, ?, ?, ?, ?)`,
		a.PublicationID, a.Seq, a.Email, a.UserGroupID, boolInt(a.IncludeInBrowse), boolInt(a.PrimaryContact))
	if err != nil {
		return 0, fmt.Errorf("inserting author: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	set := func(locale, name, value string) error {
		_, err := s.db.Exec(
			`INSERT INTO author_settings (author_id, locale, setting_name, setting_value) VALUES (?, ?, ?, ?)`,
			id, locale, name, value)
		return err
	}
	for locale, name := range a.GivenName {
		if err := set(locale, "givenName", name); err != nil {
			return 0, err
		}
	}
	for locale, affiliation := range a.Affiliation {
		if err := set(locale, "affiliation", affiliation); err != nil {
			return 0, err
		}
	}
	if a.ORCID != "" {
		if err := set("", "orcid", a.ORCID); err != nil {
			return 0, err
		}
	}
	if a.Contribution != "" {
		if err := set("", "authorContribution", a.Contribution); err != nil {
			return 0, err
		}
	}
	a.ID = id
	return id, nil
}

// GetOrCreateSection returns the section with the given title, creating
// it localized into every locale when absent.
func (s *Store) GetOrCreateSection(journalID int64, title string, locales []string) (int64, error) {
	var id int64
	err := s.db.QueryRow(
		`SELECT s.section_id FROM sections s
JOIN section_settings ss ON (s.section_id = ss.section_id AND ss.setting_name = 'title')
WHERE s.journal_id = ? AND ss.setting_value = ?`,
		journalID, title).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	res, err := s.db.Exec(`INSERT INTO sections (journal_id) VALUES (?)`, journalID)
	if err != nil {
		return 0, fmt.Errorf("inserting section: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, locale := range locales {
		if _, err := s.db.Exec(
			`INSERT INTO section_settings (section_id, locale, setting_name, setting_value) VALUES (?, ?, 'title', ?)`,
			id, locale, title); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// GetOrCreateCategory returns the category with the given title,
// creating it when absent.
func (s *Store) GetOrCreateCategory(journalID int64, title string, locales []string) (int64, error) {
	var id int64
	err := s.db.QueryRow(
		`SELECT c.category_id FROM categories c
JOIN category_settings cs ON (c.category_id = cs.category_id AND cs.setting_name = 'title')
WHERE c.context_id = ? AND cs.setting_value = ?`,
		journalID, title).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	res, err := s.db.Exec(`INSERT INTO categories (context_id, path) VALUES (?, ?)`, journalID, title)
	if err != nil {
		return 0, fmt.Errorf("inserting category: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, locale := range locales {
		if _, err := s.db.Exec(
			`INSERT INTO category_settings (category_id, locale, setting_name, setting_value) VALUES (?, ?, 'title', ?)`,
			id, locale, title); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// AssignCategory links a publication to a category.
func (s *Store) AssignCategory(categoryID, publicationID int64) error {
	_, err := s.db.Exec(
		`INSERT INTO publication_categories (publication_id, category_id) VALUES (?, ?)`,
		publicationID, categoryID)
	return err
}

// AddFile copies a local binary into the destination file store under
// journals/<journal>/articles/<submission>/ with a fresh unique name.
func (s *Store) AddFile(sourcePath string, journalID, submissionID int64) (*FileInfo, error) {
	ext := strings.TrimPrefix(filepath.Ext(sourcePath), ".")
	dir := filepath.Join(s.filesDir, "journals", fmt.Sprint(journalID), "articles", fmt.Sprint(submissionID))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating submission dir: %w", err)
	}
	name := uuid.NewString()
	if ext != "" {
		name += "." + ext
	}
	dest := filepath.Join(dir, name)

	if err := copyFile(sourcePath, dest); err != nil {
		return nil, err
	}

	res, err := s.db.Exec(`INSERT INTO files (path) VALUES (?)`, dest)
	if err != nil {
		return nil, fmt.Errorf("inserting file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &FileInfo{ID: id, Path: dest, Extension: ext}, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return out.Close()
}

// CreateSubmissionFile inserts a submission file row with its
// localized name.
func (s *Store) CreateSubmissionFile(f *SubmissionFile) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO submission_files (submission_id, file_id, genre_id, file_stage, assoc_type, assoc_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.SubmissionID, f.FileID, f.GenreID, f.FileStage, f.AssocType, nullable(f.AssocID), f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("inserting submission file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for locale, name := range f.Name {
		if _, err := s.db.Exec(
			`INSERT INTO submission_file_settings (submission_file_id, locale, setting_name, setting_value) VALUES (?, ?, 'name', ?)`,
			id, locale, name); err != nil {
			return 0, err
		}
	}
	f.ID = id
	return id, nil
}

// CreateGalley inserts a galley for a publication.
func (s *Store) CreateGalley(g *Galley) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO publication_galleys (publication_id, label, locale, submission_file_id)
VALUES (?, ?, ?, ?)`,
		g.PublicationID, g.Label, g.Locale, nullable(g.SubmissionFileID))
	if err != nil {
		return 0, fmt.Errorf("inserting galley: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	g.ID = id
	return id, nil
}

// SetGalleyFile points a galley at its submission file.
func (s *Store) SetGalleyFile(galleyID, submissionFileID int64) error {
	_, err := s.db.Exec(
		`UPDATE publication_galleys SET submission_file_id = ? WHERE galley_id = ?`,
		submissionFileID, galleyID)
	return err
}

// RefreshSearchIndex records that a submission needs reindexing. The
// SQLite backend has no external indexer, so this only stamps the row.
func (s *Store) RefreshSearchIndex(submissionID int64) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO submission_search_index (submission_id, last_indexed) VALUES (?, datetime('now'))`,
		submissionID)
	return err
}

// CreateJournal provisions a journal. Used by setup and tests, not by
// the import engine.
func (s *Store) CreateJournal(path, primaryLocale, contactEmail string, supportedLocales []string) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO journals (path, primary_locale) VALUES (?, ?)`, path, primaryLocale)
	if err != nil {
		return 0, fmt.Errorf("inserting journal: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if contactEmail != "" {
		if _, err := s.db.Exec(
			`INSERT INTO journal_settings (journal_id, setting_name, setting_value) VALUES (?, 'contactEmail', ?)`,
			id, contactEmail); err != nil {
			return 0, err
		}
	}
	if len(supportedLocales) > 0 {
		raw, err := json.Marshal(supportedLocales)
		if err != nil {
			return 0, err
		}
		if _, err := s.db.Exec(
			`INSERT INTO journal_settings (journal_id, setting_name, setting_value) VALUES (?, 'supportedLocales', ?)`,
			id, string(raw)); err != nil {
			return 0, err
		}
	}
	if _, err := s.db.Exec(
		`INSERT INTO user_groups (context_id, role_id) VALUES (?, ?)`, id, RoleIDAuthor); err != nil {
		return 0, err
	}
	return id, nil
}

// CreateGenre provisions a genre. Used by setup and tests.
func (s *Store) CreateGenre(key string, supplementary, enabled bool) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO genres (entry_key, supplementary, enabled) VALUES (?, ?, ?)`,
		key, boolInt(supplementary), boolInt(enabled))
	if err != nil {
		return 0, fmt.Errorf("inserting genre: %w", err)
	}
	return res.LastInsertId()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullable(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
