// Package ojs is the boundary to the destination publishing system. The
// import engine only talks to the Backend contract; the SQLite store in
// this package implements it against an OJS-shaped database.
package ojs

import "errors"

// Destination-system constants, matching OJS 3.x.
const (
	StatusPublished         = 3
	WorkflowStageProduction = 5
	FileStageProof          = 10
	FileStageDependent      = 17
	AssocTypeSubmissionFile = 515
	AssocTypeRepresentation = 516
	RoleIDAuthor            = 65536
)

// Errors surfaced by Backend implementations.
var (
	// ErrNoJournal indicates no destination journal exists yet.
	ErrNoJournal = errors.New("no journal configured in destination system")

	// ErrJournalNotFound indicates the requested journal path does not exist.
	ErrJournalNotFound = errors.New("journal path not found in destination system")

	// ErrAmbiguousJournal indicates several journals exist and no path was given.
	ErrAmbiguousJournal = errors.New("several journals exist, a journal path is required")

	// ErrGenreNotFound indicates the requested genre key does not exist.
	ErrGenreNotFound = errors.New("genre key not found in destination system")
)

// Journal is the destination journal articles are imported into.
type Journal struct {
	ID               int64
	Path             string
	PrimaryLocale    string
	ContactEmail     string
	SupportedLocales []string
}

// Genre is the destination file-classification tag used for imported
// binaries.
type Genre struct {
	ID            int64
	Key           string
	Supplementary bool
	Enabled       bool
}

// Issue is a destination issue record.
type Issue struct {
	ID        int64
	JournalID int64
	Volume    int
	Number    string
	Year      int
	Title     map[string]string // locale → title
}

// Submission is a destination editorial workflow record.
type Submission struct {
	ID                   int64
	ContextID            int64
	CurrentPublicationID int64
	Status               int
	StageID              int
	Locale               string
	DateSubmitted        string
	DateLastActivity     string
	LastModified         string
	SubmissionProgress   int
}

// Publication is the published version of a submission.
type Publication struct {
	ID               int64
	SubmissionID     int64
	IssueID          int64
	SectionID        int64
	PrimaryContactID int64
	Status           int
	Locale           string
	Version          int
	DOI              string
	CopyrightYear    string
	DatePublished    string
	LastModified     string
	Title            map[string]string
	Abstract         map[string]string
	Keywords         map[string][]string
}

// Author is one contributor row of a publication.
type Author struct {
	ID              int64
	PublicationID   int64
	Seq             int
	Email           string
	UserGroupID     int64
	IncludeInBrowse bool
	PrimaryContact  bool
	ORCID           string
	Contribution    string
	GivenName       map[string]string
	Affiliation     map[string]string
}

// FileInfo describes a binary copied into the destination file store.
type FileInfo struct {
	ID        int64
	Path      string // absolute path of the stored copy
	Extension string
}

// SubmissionFile links a stored file to a submission.
type SubmissionFile struct {
	ID           int64
	SubmissionID int64
	FileID       int64
	GenreID      int64
	FileStage    int
	AssocType    int
	AssocID      int64
	CreatedAt    string
	UpdatedAt    string
	Locale       string
	Name         map[string]string
}

// Galley is one renderable format/locale variant of a publication.
type Galley struct {
	ID               int64
	PublicationID    int64
	Label            string
	Locale           string
	SubmissionFileID int64
}

// Backend is the narrow contract the import engine drives. Create calls
// return the new record's id; the engine persists those ids locally and
// never calls create twice for the same key.
type Backend interface {
	// Journal resolves the destination journal. An empty pathHint is
	// allowed only when exactly one journal exists.
	Journal(pathHint string) (*Journal, error)

	// GenreByKey resolves a genre by its key (e.g. "OTHER").
	GenreByKey(key string) (*Genre, error)

	// AuthorUserGroup returns the default author user group of a journal.
	AuthorUserGroup(journalID int64) (int64, error)

	// FindIssue fuzzy-matches an existing issue on volume, year and
	// title hint ("." acts as a wildcard). Returns nil when absent.
	FindIssue(journalID int64, volume, year int, titleHint string) (*Issue, error)

	CreateIssue(issue *Issue) (int64, error)

	CreateSubmission(s *Submission) (int64, error)
	Submission(id int64) (*Submission, error)
	UpdateSubmissionCurrentPublication(submissionID, publicationID int64) error

	CreatePublication(p *Publication) (int64, error)
	SetPublicationPrimaryContact(publicationID, authorID int64) error

	CreateAuthor(a *Author) (int64, error)

	// GetOrCreateSection and GetOrCreateCategory match by title within
	// the journal and create with the title localized into every locale.
	GetOrCreateSection(journalID int64, title string, locales []string) (int64, error)
	GetOrCreateCategory(journalID int64, title string, locales []string) (int64, error)
	AssignCategory(categoryID, publicationID int64) error

	// AddFile copies a local binary into the destination file store.
	AddFile(sourcePath string, journalID, submissionID int64) (*FileInfo, error)
	CreateSubmissionFile(f *SubmissionFile) (int64, error)

	CreateGalley(g *Galley) (int64, error)
	SetGalleyFile(galleyID, submissionFileID int64) error

	// RefreshSearchIndex signals that a submission's metadata and files
	// changed. Fire-and-forget: failures are logged, never retried.
	RefreshSearchIndex(submissionID int64) error
}
