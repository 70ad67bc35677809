// Package importer drives the one-way sync from the local article
// archive into the destination publishing system. Both phases are
// idempotent: issues already annotated in the grid and articles whose
// records already carry destination ids are skipped, so an interrupted
// run can simply be repeated.
package importer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/htorres/scielo-sync/internal/article"
	"github.com/htorres/scielo-sync/internal/grid"
	"github.com/htorres/scielo-sync/internal/ojs"
)

// Options configures an import run.
type Options struct {
	// OutputDir is the root of the local archive.
	OutputDir string

	// Backend is the destination system.
	Backend ojs.Backend

	// Grid is the loaded issue index of the archive.
	Grid *grid.Index

	// Logger defaults to the logrus standard logger.
	Logger logrus.FieldLogger

	// JournalPath selects the destination journal. Required only when
	// the destination hosts more than one journal.
	JournalPath string

	// DefaultGenre is the genre key attached to imported files.
	DefaultGenre string

	// InsertCategory links each publication to a category named after
	// the article's category.
	InsertCategory bool

	// CopyCategoryToSection places each publication in a section named
	// after the article's category.
	CopyCategoryToSection bool

	// WithoutKeywords imports articles even when no locale has keywords.
	WithoutKeywords bool

	// WithoutBinaries skips galley and file creation and lifts the
	// downloaded-binaries requirement.
	WithoutBinaries bool
}

// Stats counts what one run did.
type Stats struct {
	IssuesAdopted     int
	IssuesCreated     int
	Submissions       int
	Publications      int
	AlreadyImported   int
	SkippedNoBinaries int
	SkippedNoKeywords int
}

// Importer is a configured import engine bound to one journal and one
// genre. Construction fails fast on a misconfigured destination so no
// partial work happens.
type Importer struct {
	opts        Options
	log         logrus.FieldLogger
	journal     *ojs.Journal
	genre       *ojs.Genre
	authorGroup int64
	stats       Stats
}

// New resolves and validates the destination journal and genre.
func New(opts Options) (*Importer, error) {
	if opts.Backend == nil {
		return nil, errors.New("a destination backend is required")
	}
	if opts.Grid == nil {
		return nil, errors.New("a grid index is required")
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	journal, err := opts.Backend.Journal(opts.JournalPath)
	if err != nil {
		return nil, err
	}
	if journal.ContactEmail == "" {
		return nil, fmt.Errorf("journal %q has no contact email configured", journal.Path)
	}

	genre, err := opts.Backend.GenreByKey(opts.DefaultGenre)
	if err != nil {
		return nil, err
	}
	if !genre.Supplementary {
		return nil, fmt.Errorf("genre %q must be supplementary to hold imported files", genre.Key)
	}
	if !genre.Enabled {
		return nil, fmt.Errorf("genre %q is disabled", genre.Key)
	}

	authorGroup, err := opts.Backend.AuthorUserGroup(journal.ID)
	if err != nil {
		return nil, err
	}

	return &Importer{
		opts:        opts,
		log:         log,
		journal:     journal,
		genre:       genre,
		authorGroup: authorGroup,
	}, nil
}

// Stats returns the counters of the last Run.
func (im *Importer) Stats() Stats {
	return im.stats
}

// Run syncs issues, then articles, and flushes the grid annotations.
// An archive with nothing to import is a configuration error, not a
// silent no-op.
func (im *Importer) Run() error {
	im.stats = Stats{}
	if im.opts.Grid.CountIssues() == 0 {
		return errors.New("grid index holds no issues")
	}
	if err := im.SyncIssues(); err != nil {
		return err
	}
	if err := im.SyncArticles(); err != nil {
		return err
	}
	return im.opts.Grid.Flush()
}

// SyncIssues makes sure every grid issue has a destination id: entries
// already annotated are left alone, existing destination issues are
// adopted by fuzzy match, the rest are created.
func (im *Importer) SyncIssues() error {
	idx := im.opts.Grid
	for _, year := range idx.Years() {
		for _, volume := range idx.Volumes(year) {
			for _, issueName := range idx.IssueNames(year, volume) {
				entry, err := idx.Lookup(year, volume, issueName)
				if err != nil {
					return err
				}
				if entry.IssueID != 0 {
					continue
				}
				id, err := im.syncIssue(entry, year, volume, issueName)
				if err != nil {
					return err
				}
				if err := idx.Annotate(year, volume, issueName, id); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (im *Importer) syncIssue(entry *grid.Entry, year, volume, issueName string) (int64, error) {
	yearNum, err := strconv.Atoi(year)
	if err != nil {
		return 0, fmt.Errorf("non-numeric year %q in grid", year)
	}
	volumeNum, err := strconv.Atoi(volume)
	if err != nil {
		return 0, fmt.Errorf("non-numeric volume %q in grid", volume)
	}

	existing, err := im.opts.Backend.FindIssue(im.journal.ID, volumeNum, yearNum, entry.Text)
	if err != nil {
		return 0, fmt.Errorf("matching issue %s/%s/%s: %w", year, volume, issueName, err)
	}
	if existing != nil {
		im.log.WithFields(logrus.Fields{
			"method":  "Importer.syncIssue",
			"issue":   issueName,
			"issueId": existing.ID,
		}).Info("adopted existing issue")
		im.stats.IssuesAdopted++
		return existing.ID, nil
	}

	titles := map[string]string{}
	for _, locale := range im.journal.SupportedLocales {
		titles[locale] = entry.Text
	}
	id, err := im.opts.Backend.CreateIssue(&ojs.Issue{
		JournalID: im.journal.ID,
		Volume:    volumeNum,
		Number:    issueName,
		Year:      yearNum,
		Title:     titles,
	})
	if err != nil {
		return 0, fmt.Errorf("creating issue %s/%s/%s: %w", year, volume, issueName, err)
	}
	im.log.WithFields(logrus.Fields{
		"method":  "Importer.syncIssue",
		"issue":   issueName,
		"issueId": id,
	}).Info("created issue")
	im.stats.IssuesCreated++
	return id, nil
}

// SyncArticles walks the archive and imports every eligible article
// record. A record failing an eligibility gate is skipped with a log
// line; a destination error aborts the run.
func (im *Importer) SyncArticles() error {
	seen := 0
	err := filepath.WalkDir(im.opts.OutputDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasPrefix(d.Name(), "metadata_") || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		rel, err := filepath.Rel(im.opts.OutputDir, p)
		if err != nil {
			return err
		}
		if len(strings.Split(filepath.ToSlash(rel), "/")) != 5 {
			return nil
		}
		seen++

		rec := article.New(im.opts.OutputDir, im.log)
		if _, err := rec.LoadFromFile(p); err != nil {
			return err
		}
		return im.syncArticle(rec)
	})
	if err != nil {
		return err
	}
	if seen == 0 {
		return errors.New("no article metadata files found in the archive")
	}
	return nil
}

func (im *Importer) syncArticle(rec *article.Record) error {
	recLog := im.log.WithFields(logrus.Fields{
		"method":    "Importer.syncArticle",
		"articleId": rec.ID,
		"doi":       rec.DOI,
	})

	if rec.OJS.SubmissionID != 0 && rec.OJS.PublicationID != 0 {
		im.stats.AlreadyImported++
		return nil
	}
	if !im.opts.WithoutBinaries && !im.hasBinaries(rec) {
		recLog.Warn("skipping article without downloaded binaries")
		im.stats.SkippedNoBinaries++
		return nil
	}
	if !im.opts.WithoutKeywords && !rec.HasKeywords() {
		recLog.Warn("skipping article without keywords")
		im.stats.SkippedNoKeywords++
		return nil
	}

	if rec.OJS.SubmissionID == 0 {
		if err := im.createSubmission(rec); err != nil {
			return err
		}
		recLog.WithField("submissionId", rec.OJS.SubmissionID).Info("created submission")
		im.stats.Submissions++
	}
	if rec.OJS.PublicationID == 0 {
		if err := im.createPublication(rec); err != nil {
			return err
		}
		recLog.WithField("publicationId", rec.OJS.PublicationID).Info("created publication")
		im.stats.Publications++
	}

	if err := im.opts.Backend.RefreshSearchIndex(rec.OJS.SubmissionID); err != nil {
		recLog.WithError(err).Warn("search index refresh failed")
	}
	return nil
}

// hasBinaries reports whether the article's binary directory holds at
// least one page or PDF.
func (im *Importer) hasBinaries(rec *article.Record) bool {
	binDir, err := rec.BinaryDir()
	if err != nil {
		return false
	}
	entries, err := os.ReadDir(binDir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		name := e.Name()
		if strings.HasSuffix(name, ".pdf") ||
			(strings.HasSuffix(name, ".html") && !strings.HasSuffix(name, ".raw.html")) {
			return true
		}
	}
	return false
}

func (im *Importer) createSubmission(rec *article.Record) error {
	submitted := padDate(rec.Published)
	modified := padDate(rec.Updated)
	sub := &ojs.Submission{
		ContextID:        im.journal.ID,
		Status:           ojs.StatusPublished,
		StageID:          ojs.WorkflowStageProduction,
		Locale:           rec.FirstLanguage(),
		DateSubmitted:    submitted,
		DateLastActivity: modified,
		LastModified:     modified,
	}
	id, err := im.opts.Backend.CreateSubmission(sub)
	if err != nil {
		return fmt.Errorf("creating submission for %s: %w", rec.DOI, err)
	}
	rec.OJS.SubmissionID = id
	return rec.Save()
}

func (im *Importer) createPublication(rec *article.Record) error {
	entry, err := im.opts.Grid.Lookup(rec.Year, rec.Volume, rec.IssueName)
	if err != nil {
		return err
	}
	if entry.IssueID == 0 {
		return fmt.Errorf("issue %s/%s/%s has no destination id", rec.Year, rec.Volume, rec.IssueName)
	}

	var sectionID int64
	if im.opts.CopyCategoryToSection && rec.Category != "" {
		sectionID, err = im.opts.Backend.GetOrCreateSection(im.journal.ID, rec.Category, im.journal.SupportedLocales)
		if err != nil {
			return fmt.Errorf("resolving section %q: %w", rec.Category, err)
		}
	}

	published := padDate(rec.Published)
	pub := &ojs.Publication{
		SubmissionID:  rec.OJS.SubmissionID,
		IssueID:       entry.IssueID,
		SectionID:     sectionID,
		Status:        ojs.StatusPublished,
		Locale:        IdentifyPrimaryLanguage(rec),
		Version:       1,
		DOI:           rec.DOI,
		DatePublished: published,
		LastModified:  padDate(rec.Updated),
		Title:         rec.Title,
		Abstract:      rec.Resume,
		Keywords:      rec.Keywords,
	}
	if len(published) >= 4 {
		pub.CopyrightYear = published[:4]
	}
	pubID, err := im.opts.Backend.CreatePublication(pub)
	if err != nil {
		return fmt.Errorf("creating publication for %s: %w", rec.DOI, err)
	}

	if err := im.createAuthors(rec, pubID); err != nil {
		return err
	}

	if im.opts.InsertCategory && rec.Category != "" {
		categoryID, err := im.opts.Backend.GetOrCreateCategory(im.journal.ID, rec.Category, im.journal.SupportedLocales)
		if err != nil {
			return fmt.Errorf("resolving category %q: %w", rec.Category, err)
		}
		if err := im.opts.Backend.AssignCategory(categoryID, pubID); err != nil {
			return fmt.Errorf("assigning category: %w", err)
		}
	}

	if !im.opts.WithoutBinaries {
		if err := im.attachFiles(rec, pubID); err != nil {
			return err
		}
	}

	if err := im.opts.Backend.UpdateSubmissionCurrentPublication(rec.OJS.SubmissionID, pubID); err != nil {
		return fmt.Errorf("linking publication: %w", err)
	}
	rec.OJS.PublicationID = pubID
	return rec.Save()
}

// createAuthors inserts the contributor list in archive order. Authors
// without a name are logged and skipped; authors without an email
// inherit the journal's contact address; the first inserted author
// becomes the publication's primary contact.
func (im *Importer) createAuthors(rec *article.Record, publicationID int64) error {
	inserted := 0
	for _, a := range rec.Authors {
		if a.Name == "" {
			im.log.WithFields(logrus.Fields{
				"method": "Importer.createAuthors",
				"doi":    rec.DOI,
			}).Warn("author without name skipped")
			continue
		}
		email := a.Email
		if email == "" {
			email = im.journal.ContactEmail
		}
		names := map[string]string{}
		affiliations := map[string]string{}
		for _, locale := range im.journal.SupportedLocales {
			names[locale] = a.Name
			if a.Affiliation != "" {
				affiliations[locale] = a.Affiliation
			}
		}
		author := &ojs.Author{
			PublicationID:   publicationID,
			Seq:             inserted,
			Email:           email,
			UserGroupID:     im.authorGroup,
			IncludeInBrowse: true,
			PrimaryContact:  inserted == 0,
			ORCID:           a.ORCID,
			Contribution:    a.Deceased,
			GivenName:       names,
			Affiliation:     affiliations,
		}
		id, err := im.opts.Backend.CreateAuthor(author)
		if err != nil {
			return fmt.Errorf("creating author %q: %w", a.Name, err)
		}
		if inserted == 0 {
			if err := im.opts.Backend.SetPublicationPrimaryContact(publicationID, id); err != nil {
				return fmt.Errorf("setting primary contact: %w", err)
			}
		}
		inserted++
	}
	return nil
}

// attachFiles creates one galley per downloaded format/locale variant.
// An HTML galley also carries its sibling assets as dependent files,
// with the stored page rewritten to reference them by destination id.
func (im *Importer) attachFiles(rec *article.Record, publicationID int64) error {
	binDir, err := rec.BinaryDir()
	if err != nil {
		return err
	}
	for _, format := range []string{article.FormatText, article.FormatPDF} {
		for _, lang := range rec.FormatLocales(format) {
			var source string
			switch format {
			case article.FormatText:
				source = filepath.Join(binDir, lang+".html")
			case article.FormatPDF:
				source = filepath.Join(binDir, lang+".pdf")
			}
			if _, err := os.Stat(source); err != nil {
				im.log.WithFields(logrus.Fields{
					"method": "Importer.attachFiles",
					"file":   source,
				}).Warn("variant listed but not downloaded, no galley created")
				continue
			}
			if err := im.attachGalley(rec, publicationID, format, lang, source, binDir); err != nil {
				return err
			}
		}
	}
	return nil
}

func (im *Importer) attachGalley(rec *article.Record, publicationID int64, format, lang, source, binDir string) error {
	label := "PDF"
	if format == article.FormatText {
		label = "HTML"
	}
	galleyID, err := im.opts.Backend.CreateGalley(&ojs.Galley{
		PublicationID: publicationID,
		Label:         label,
		Locale:        lang,
	})
	if err != nil {
		return fmt.Errorf("creating galley: %w", err)
	}

	proof, err := im.storeFile(rec, source, ojs.FileStageProof, ojs.AssocTypeRepresentation, galleyID, lang)
	if err != nil {
		return err
	}

	if format == article.FormatText {
		if err := im.attachDependents(rec, binDir, lang, proof); err != nil {
			return err
		}
	}

	if err := im.opts.Backend.SetGalleyFile(galleyID, proof.fileRowID); err != nil {
		return fmt.Errorf("linking galley file: %w", err)
	}
	return nil
}

type storedFile struct {
	fileRowID int64 // submission file id
	fileID    int64 // underlying file id
	path      string
}

func (im *Importer) storeFile(rec *article.Record, source string, stage, assocType int, assocID int64, lang string) (*storedFile, error) {
	info, err := im.opts.Backend.AddFile(source, im.journal.ID, rec.OJS.SubmissionID)
	if err != nil {
		return nil, fmt.Errorf("storing %s: %w", source, err)
	}
	now := time.Now().Format("2006-01-02 15:04:05")
	names := map[string]string{}
	for _, locale := range im.journal.SupportedLocales {
		names[locale] = filepath.Base(source)
	}
	id, err := im.opts.Backend.CreateSubmissionFile(&ojs.SubmissionFile{
		SubmissionID: rec.OJS.SubmissionID,
		FileID:       info.ID,
		GenreID:      im.genre.ID,
		FileStage:    stage,
		AssocType:    assocType,
		AssocID:      assocID,
		CreatedAt:    now,
		UpdatedAt:    now,
		Locale:       lang,
		Name:         names,
	})
	if err != nil {
		return nil, fmt.Errorf("registering %s: %w", source, err)
	}
	return &storedFile{fileRowID: id, fileID: info.ID, path: info.Path}, nil
}

// attachDependents stores every asset sibling of an HTML page as a
// dependent file and rewrites the stored page to reference the assets
// the way the destination serves them.
func (im *Importer) attachDependents(rec *article.Record, binDir, lang string, proof *storedFile) error {
	entries, err := os.ReadDir(binDir)
	if err != nil {
		return fmt.Errorf("listing binaries: %w", err)
	}

	page, err := os.ReadFile(proof.path)
	if err != nil {
		return fmt.Errorf("reading stored page: %w", err)
	}
	rewritten := false

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasSuffix(name, ".pdf") || strings.HasSuffix(name, ".html") {
			continue
		}
		dep, err := im.storeFile(rec, filepath.Join(binDir, name), ojs.FileStageDependent, ojs.AssocTypeSubmissionFile, proof.fileRowID, lang)
		if err != nil {
			return err
		}
		// Quote-anchored so one asset name being a substring of
		// another cannot corrupt the other's reference.
		quoted := `"` + name + `"`
		ref := `"` + fmt.Sprintf("%d/%d", proof.fileRowID, dep.fileID) + `"`
		if updated := strings.ReplaceAll(string(page), quoted, ref); updated != string(page) {
			page = []byte(updated)
			rewritten = true
		}
	}

	if rewritten {
		if err := os.WriteFile(proof.path, page, 0644); err != nil {
			return fmt.Errorf("rewriting stored page: %w", err)
		}
	}
	return nil
}

// padDate widens a partial date to a full one: "2020" becomes
// "2020-01-01" and "2020-05" becomes "2020-05-01". Values already ten
// characters or longer pass through unchanged.
func padDate(value string) string {
	if value == "" {
		return ""
	}
	for len(value) < 10 {
		value += "-01"
	}
	return value
}
