package portal

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/htorres/scielo-sync/internal/article"
)

// bodySelector isolates the article body on the detail page.
const bodySelector = "#standalonearticle"

var (
	assetURLPattern = regexp.MustCompile(`(?i)/media/assets/\S+/([\da-z\-.]+)`)
	whitespace      = regexp.MustCompile(`\s+`)
)

// DownloadAllBinaries walks the archive for metadata files matching the
// filters (empty string matches everything) and downloads each
// article's binaries. A metadata file that fails to parse aborts the
// walk: that is local corruption, not a remote condition.
func (c *Client) DownloadAllBinaries(ctx context.Context, year, volume, issue, articleID string) error {
	if _, err := os.Stat(c.baseDirectory); err != nil {
		return fmt.Errorf("output directory not found: %w", err)
	}
	return filepath.WalkDir(c.baseDirectory, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isMetadataFile(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(c.baseDirectory, p)
		if err != nil {
			return err
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) != 5 {
			return nil
		}
		if !segmentMatch(parts[0], year) || !segmentMatch(parts[1], volume) ||
			!segmentMatch(parts[2], issue) || !segmentMatch(parts[3], articleID) {
			return nil
		}

		rec := article.New(c.baseDirectory, c.log)
		if _, err := rec.LoadFromFile(p); err != nil {
			return err
		}
		return c.DownloadBinaries(ctx, rec)
	})
}

func isMetadataFile(name string) bool {
	return strings.HasPrefix(name, "metadata_") && strings.HasSuffix(name, ".json")
}

func segmentMatch(value, filter string) bool {
	return filter == "" || filter == "*" || filter == value
}

// DownloadBinaries fetches every format/locale variant of one article:
// full text pages are cached raw, reduced to their body and wrapped in
// the assets template; PDFs are stored verbatim; embedded images are
// downloaded once. Remote failures are logged and skip the variant, and
// any metadata still missing is backfilled from the article page.
func (c *Client) DownloadBinaries(ctx context.Context, rec *article.Record) error {
	binDir, err := rec.BinaryDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(binDir, 0755); err != nil {
		return fmt.Errorf("creating binary directory: %w", err)
	}

	formats := make([]string, 0, len(rec.Formats))
	for format := range rec.Formats {
		formats = append(formats, format)
	}
	sort.Strings(formats)

	for _, format := range formats {
		for _, lang := range rec.FormatLocales(format) {
			url := rec.Formats[format][lang]
			switch format {
			case article.FormatText:
				doc := c.rawArticleDocument(ctx, rec, binDir, url, lang)
				if doc == nil {
					continue
				}
				c.extractBody(doc, rec, binDir, lang)
				c.downloadAssets(ctx, doc, binDir)
				c.enrichMetadata(doc, rec, lang)
			case article.FormatPDF:
				dest := filepath.Join(binDir, lang+".pdf")
				if err := c.fetchFile(ctx, url, dest); err != nil {
					c.log.WithFields(logrus.Fields{
						"method":  "Client.DownloadBinaries",
						"article": binDir,
						"url":     url,
					}).WithError(err).Error("pdf download failed")
				}
			}
		}
	}

	return rec.Save()
}

// rawArticleDocument returns the parsed article detail page, serving
// from the raw cache when present. A non-success status abandons the
// fetch for this article and returns nil.
func (c *Client) rawArticleDocument(ctx context.Context, rec *article.Record, binDir, url, lang string) *goquery.Document {
	rawFile := filepath.Join(binDir, lang+".raw.html")
	raw, err := os.ReadFile(rawFile)
	if err != nil {
		resp, err := c.get(ctx, url)
		if err != nil {
			c.log.WithFields(logrus.Fields{
				"method":  "Client.rawArticleDocument",
				"article": binDir,
				"url":     url,
			}).WithError(err).Error("article page fetch failed")
			return nil
		}
		raw = resp.Body()
		if err := os.WriteFile(rawFile, raw, 0644); err != nil {
			c.log.WithFields(logrus.Fields{
				"method":  "Client.rawArticleDocument",
				"article": binDir,
			}).WithError(err).Error("caching article page failed")
			return nil
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		c.log.WithFields(logrus.Fields{
			"method":  "Client.rawArticleDocument",
			"article": binDir,
		}).WithError(err).Error("parsing article page failed")
		return nil
	}
	return doc
}

// extractBody assembles the final article HTML: the body region with
// asset URLs rewritten to local relative paths, wrapped in the template.
func (c *Client) extractBody(doc *goquery.Document, rec *article.Record, binDir, lang string) {
	bodyFile := filepath.Join(binDir, lang+".html")
	if _, err := os.Stat(bodyFile); err == nil {
		return
	}

	sel := doc.Find(bodySelector)
	if sel.Length() == 0 {
		c.log.WithFields(logrus.Fields{
			"method":   "Client.extractBody",
			"selector": bodySelector,
			"article":  binDir,
		}).Error("body selector matched nothing")
		return
	}
	body, err := goquery.OuterHtml(sel)
	if err != nil {
		c.log.WithFields(logrus.Fields{
			"method":  "Client.extractBody",
			"article": binDir,
		}).WithError(err).Error("rendering article body failed")
		return
	}
	body = assetURLPattern.ReplaceAllString(body, "$1")

	tmpl, err := c.loadTemplate()
	if err != nil {
		c.log.WithField("method", "Client.extractBody").WithError(err).Error("loading template failed")
		return
	}
	final := strings.Replace(tmpl, "{{body}}", body, 1)
	if err := os.WriteFile(bodyFile, []byte(final), 0644); err != nil {
		c.log.WithFields(logrus.Fields{
			"method":  "Client.extractBody",
			"article": binDir,
		}).WithError(err).Error("writing article body failed")
	}
}

// loadTemplate reads and caches the article HTML template.
func (c *Client) loadTemplate() (string, error) {
	if c.template != "" {
		return c.template, nil
	}
	raw, err := os.ReadFile(filepath.Join(c.assetsDir, "template.html"))
	if err != nil {
		return "", fmt.Errorf("reading template: %w", err)
	}
	c.template = string(raw)
	return c.template, nil
}

// downloadAssets fetches every image embedded in the article body,
// keyed by basename. Existing files are not re-fetched.
func (c *Client) downloadAssets(ctx context.Context, doc *goquery.Document, binDir string) {
	doc.Find(".modal-body img").Each(func(_ int, img *goquery.Selection) {
		src, ok := img.Attr("src")
		if !ok || src == "" {
			return
		}
		dest := filepath.Join(binDir, path.Base(src))
		if err := c.fetchFile(ctx, src, dest); err != nil {
			c.log.WithFields(logrus.Fields{
				"method":  "Client.downloadAssets",
				"article": binDir,
				"url":     src,
			}).WithError(err).Error("asset download failed")
		}
	})
}

// enrichMetadata backfills record fields still empty from the article
// page's citation meta tags and author block. Populated fields are
// never overwritten, except the author list which the detail page
// always knows better than the listing stubs.
func (c *Client) enrichMetadata(doc *goquery.Document, rec *article.Record, lang string) {
	if rec.DOI == "" {
		if doi, ok := metaContent(doc, "citation_doi"); ok {
			rec.DOI = doi
		} else {
			c.logMissing(rec, "DOI")
		}
	}
	if rec.Title[lang] == "" {
		if title, ok := metaContent(doc, "citation_title"); ok {
			rec.Title[lang] = title
		} else {
			c.logMissing(rec, "title")
		}
	}
	if rec.Published == "" {
		if published, ok := metaContent(doc, "citation_publication_date"); ok {
			rec.Published = published
		} else {
			c.logMissing(rec, "publication_date")
		}
	}
	if len(rec.Keywords[lang]) == 0 {
		var keywords []string
		doc.Find(`meta[name="citation_keywords"]`).Each(func(_ int, meta *goquery.Selection) {
			if content, ok := meta.Attr("content"); ok && content != "" {
				keywords = append(keywords, content)
			}
		})
		if len(keywords) > 0 {
			rec.Keywords[lang] = keywords
		} else {
			c.logMissing(rec, "keywords")
		}
	}

	if authors := c.pageAuthors(doc, rec); len(authors) > 0 {
		rec.Authors = authors
	}
}

// pageAuthors reads the full author list from the detail page's
// contributor dropdowns: name, ORCID and either an affiliation line or
// the deceased marker.
func (c *Client) pageAuthors(doc *goquery.Document, rec *article.Record) []article.Author {
	var authors []article.Author
	doc.Find(".contribGroup span.dropdown").Each(func(_ int, node *goquery.Selection) {
		var author article.Author
		if name := node.Find(`[id*="contribGroupTutor"] span`).First(); name.Length() > 0 {
			author.Name = strings.TrimSpace(name.Text())
		}
		if orcid := node.Find(`[class*="orcid"]`).First(); orcid.Length() > 0 {
			author.ORCID = orcid.AttrOr("href", "")
		}
		node.Find("ul").Each(func(_ int, ul *goquery.Selection) {
			text := strings.TrimSpace(whitespace.ReplaceAllString(directText(ul), " "))
			if text == "" {
				return
			}
			if text == "†" {
				author.Deceased = "deceased"
				c.logMissing(rec, "author deceased")
				return
			}
			author.Affiliation = text
		})
		authors = append(authors, author)
	})
	return authors
}

func (c *Client) logMissing(rec *article.Record, field string) {
	dir, _ := rec.BaseDir()
	c.log.WithFields(logrus.Fields{
		"method":    "Client.enrichMetadata",
		"directory": dir,
	}).Errorf("without %s", field)
}

// metaContent returns the content attribute of the first meta tag with
// the given name.
func metaContent(doc *goquery.Document, name string) (string, bool) {
	meta := doc.Find(`meta[name="` + name + `"]`).First()
	if meta.Length() == 0 {
		return "", false
	}
	content := strings.TrimSpace(meta.AttrOr("content", ""))
	return content, content != ""
}

// fetchFile streams a URL to dest. An existing destination short-
// circuits the download; the write goes through a temp file and a
// rename, so a partially written file never passes the existence check
// of a later run.
func (c *Client) fetchFile(ctx context.Context, url, dest string) error {
	if _, err := os.Stat(dest); err == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	resp, err := c.http.R().SetContext(ctx).SetDoNotParseResponse(true).Get(c.absoluteURL(url))
	if err != nil {
		return err
	}
	body := resp.RawBody()
	defer body.Close()
	if resp.StatusCode() >= 400 {
		return &StatusError{URL: url, Code: resp.StatusCode()}
	}

	tmp := dest + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmp, err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("downloading %s: %w", url, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dest)
}
