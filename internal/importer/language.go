package importer

import "github.com/htorres/scielo-sync/internal/article"

// IdentifyPrimaryLanguage picks the publication locale of a record. The
// candidates are consulted from strongest to weakest signal: full-text
// locales, then PDF locales, then title locales, then keyword locales.
// A candidate set with exactly one locale decides immediately; when
// every set is ambiguous the first locale of the first non-empty set
// wins. Records with no localized data at all yield "".
func IdentifyPrimaryLanguage(rec *article.Record) string {
	candidates := [][]string{
		rec.FormatLocales(article.FormatText),
		rec.FormatLocales(article.FormatPDF),
		rec.TitleLocales(),
		rec.KeywordLocales(),
	}
	for _, locales := range candidates {
		if len(locales) == 1 {
			return locales[0]
		}
	}
	for _, locales := range candidates {
		if len(locales) > 0 {
			return locales[0]
		}
	}
	return ""
}
