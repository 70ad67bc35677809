package portal

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"github.com/htorres/scielo-sync/internal/article"
	"github.com/htorres/scielo-sync/internal/pdfdoi"
)

var resumePrefix = regexp.MustCompile(`^(Resumo|Resumen|Abstract):\s*`)

// Issue crawls one issue listing and creates or refreshes the article
// records it lists. When articleID is non-empty only that article is
// processed. The listing HTML and the issue feed are cached on disk
// before parsing.
func (c *Client) Issue(ctx context.Context, year, volume, issueName, articleID string) error {
	idx, err := c.GridIndex(ctx)
	if err != nil {
		return err
	}
	entry, err := idx.Lookup(year, volume, issueName)
	if err != nil {
		return err
	}

	doc, feed, err := c.issueDocuments(ctx, entry.URL, year, volume, issueName)
	if err != nil {
		return err
	}

	doc.Find(".articles > li").Each(func(index int, li *goquery.Selection) {
		id := c.articleID(li, year, volume, issueName)
		if id == "" {
			return
		}
		if articleID != "" && articleID != id {
			return
		}
		if err := c.saveArticle(ctx, li, feed, index, year, volume, issueName, id); err != nil {
			c.log.WithFields(logrus.Fields{
				"method":    "Client.Issue",
				"year":      year,
				"volume":    volume,
				"issueName": issueName,
				"articleId": id,
			}).WithError(err).Error("skipping article")
		}
	})
	return nil
}

// issueDocuments returns the parsed listing page for the current locale
// and the issue feed, reading both from cache files when present. A
// listing served in the wrong locale triggers one locale switch and one
// refetch before the page is accepted as-is.
func (c *Client) issueDocuments(ctx context.Context, url, year, volume, issueName string) (*goquery.Document, *Feed, error) {
	basepath := filepath.Join(c.baseDirectory, year, volume, issueName)
	if err := os.MkdirAll(basepath, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating issue directory: %w", err)
	}

	htmlRaw, err := c.issueHTML(ctx, url, filepath.Join(basepath, c.lang+".html"))
	if err != nil {
		return nil, nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(htmlRaw))
	if err != nil {
		return nil, nil, fmt.Errorf("parsing issue page: %w", err)
	}

	xmlRaw, err := c.cachedFetch(ctx, FeedURL(url), filepath.Join(basepath, "issue.xml"))
	if err != nil {
		return nil, nil, fmt.Errorf("fetching issue feed: %w", err)
	}
	feed, err := ParseFeed(xmlRaw)
	if err != nil {
		return nil, nil, err
	}
	return doc, feed, nil
}

// issueHTML returns the listing page bytes for the current locale,
// cached at cacheFile.
func (c *Client) issueHTML(ctx context.Context, url, cacheFile string) ([]byte, error) {
	if raw, err := os.ReadFile(cacheFile); err == nil {
		return raw, nil
	}

	for attempt := 0; ; attempt++ {
		resp, err := c.get(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("fetching issue page: %w", err)
		}
		raw := resp.Body()

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("parsing issue page: %w", err)
		}
		served := NormalizeLocale(doc.Find("html").AttrOr("lang", ""))
		if served != c.lang && attempt == 0 {
			if err := c.SetLanguage(ctx, localeShort(c.lang)); err != nil {
				return nil, err
			}
			continue
		}
		if err := os.WriteFile(cacheFile, raw, 0644); err != nil {
			return nil, fmt.Errorf("caching issue page: %w", err)
		}
		return raw, nil
	}
}

// cachedFetch returns the file content when cached, otherwise fetches
// the URL and writes the cache file before returning.
func (c *Client) cachedFetch(ctx context.Context, url, cacheFile string) ([]byte, error) {
	if raw, err := os.ReadFile(cacheFile); err == nil {
		return raw, nil
	}
	resp, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	raw := resp.Body()
	if err := os.WriteFile(cacheFile, raw, 0644); err != nil {
		return nil, fmt.Errorf("caching %s: %w", cacheFile, err)
	}
	return raw, nil
}

// articleID extracts the source-assigned article id from the node's
// outbound links, trying the article link shape before the pdf one.
// A node without an extractable id is logged and skipped.
func (c *Client) articleID(li *goquery.Selection, year, volume, issueName string) string {
	link := li.Find(`ul.links li a[href^="/article/"]`)
	if link.Length() == 0 {
		link = li.Find(`ul.links li a[href^="/pdf/"]`)
	}
	href, ok := link.First().Attr("href")
	if ok {
		tokens := strings.Split(href, "/")
		if len(tokens) > 4 {
			return tokens[4]
		}
	}
	c.log.WithFields(logrus.Fields{
		"method":    "Client.articleID",
		"year":      year,
		"volume":    volume,
		"issueName": issueName,
	}).Error("article ID not found")
	return ""
}

// saveArticle builds one article record from its listing node and the
// feed entry at the same ordinal position, then persists it.
func (c *Client) saveArticle(ctx context.Context, li *goquery.Selection, feed *Feed, index int, year, volume, issueName, id string) error {
	var doi, published, updated string
	if index < len(feed.Entries) {
		entry := &feed.Entries[index]
		doi = entry.DOI()
		published = entry.Timestamp()
		updated = entry.Timestamp()
	}

	formats := c.articleFormats(li)

	if doi == "" {
		doi = c.doiFromPDF(ctx, formats)
	}
	if doi == "" {
		return article.ErrMissingDOI
	}

	rec := article.New(c.baseDirectory, c.log)
	if _, err := rec.Load(year, volume, issueName, id, doi); err != nil {
		return err
	}

	if title := firstTextNode(li.Find("h2").First()); title != "" {
		rec.Title[c.lang] = title
	}
	category := strings.ToLower(strings.TrimSpace(li.Find("h2 span").Text()))
	if category == "" {
		category = "article"
	}
	rec.Category = category

	for lang, text := range c.articleResume(li) {
		rec.Resume[lang] = text
	}
	for format, langs := range formats {
		for lang, url := range langs {
			rec.SetFormat(format, lang, url)
		}
	}
	if authors := c.articleAuthors(li); len(authors) > 0 {
		rec.Authors = authors
	}
	if published != "" {
		rec.Published = published
	}
	if updated != "" {
		rec.Updated = updated
	}

	return rec.Save()
}

// articleFormats reads the per-format per-language source URLs from the
// node's links block. Link groups are labeled "Text" or "PDF" with one
// anchor per language.
func (c *Client) articleFormats(li *goquery.Selection) map[string]map[string]string {
	formats := map[string]map[string]string{}
	li.Find("ul.links li").Each(func(_ int, item *goquery.Selection) {
		label := strings.TrimSpace(item.Text())
		if len(label) < 3 {
			return
		}
		var format string
		switch label[:3] {
		case "Tex":
			format = article.FormatText
		case "PDF":
			format = article.FormatPDF
		default:
			return
		}
		item.Find("a").Each(func(_ int, a *goquery.Selection) {
			href, ok := a.Attr("href")
			if !ok {
				return
			}
			lang := NormalizeLocale(strings.TrimSpace(a.Text()))
			if formats[format] == nil {
				formats[format] = map[string]string{}
			}
			formats[format][lang] = href
		})
	})
	return formats
}

// articleResume reads the localized abstracts from the listing node.
// The locale is encoded in the last two characters of the tooltip id.
func (c *Client) articleResume(li *goquery.Selection) map[string]string {
	resume := map[string]string{}
	li.Find(`div[data-toggle="tooltip"]`).Each(func(_ int, div *goquery.Selection) {
		id, ok := div.Attr("id")
		if !ok || len(id) < 2 {
			return
		}
		lang := NormalizeLocale(id[len(id)-2:])
		text := strings.TrimSpace(directText(div))
		text = resumePrefix.ReplaceAllString(text, "")
		if text != "" {
			resume[lang] = text
		}
	})
	return resume
}

// articleAuthors reads the author stub list (names only) from the
// listing node's search links.
func (c *Client) articleAuthors(li *goquery.Selection) []article.Author {
	var authors []article.Author
	li.Find(`a[href*="//search"]`).Each(func(_ int, a *goquery.Selection) {
		name := strings.TrimSpace(a.Text())
		if name != "" {
			authors = append(authors, article.Author{Name: name})
		}
	})
	return authors
}

// doiFromPDF downloads one of the article's PDFs to a temporary file
// and scans it for a DOI. Fallback for feed entries without one.
func (c *Client) doiFromPDF(ctx context.Context, formats map[string]map[string]string) string {
	for _, url := range formats[article.FormatPDF] {
		tmp, err := os.CreateTemp("", "scielo-sync-*.pdf")
		if err != nil {
			return ""
		}
		tmp.Close()
		defer os.Remove(tmp.Name())

		if err := c.fetchFile(ctx, url, tmp.Name()); err != nil {
			c.log.WithFields(logrus.Fields{
				"method": "Client.doiFromPDF",
				"url":    url,
			}).WithError(err).Warn("could not fetch PDF for DOI recovery")
			continue
		}
		doi, err := pdfdoi.ExtractDOI(tmp.Name())
		if err != nil || doi == "" {
			continue
		}
		return doi
	}
	return ""
}

// firstTextNode returns the trimmed first non-empty text child of the
// selection's first node. Listing titles keep the category span as a
// sibling element, so plain Text() would include it.
func firstTextNode(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	for n := sel.Nodes[0].FirstChild; n != nil; n = n.NextSibling {
		if n.Type != html.TextNode {
			continue
		}
		if text := strings.TrimSpace(n.Data); text != "" {
			return text
		}
	}
	return ""
}

// directText concatenates the direct text children of the selection's
// first node, skipping element children such as the label strong tag.
func directText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	var b strings.Builder
	for n := sel.Nodes[0].FirstChild; n != nil; n = n.NextSibling {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
	}
	return b.String()
}
