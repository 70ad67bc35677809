package portal

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/araddon/dateparse"
)

// Feed is the portal's Atom view of an issue. Entry order matches the
// article order of the HTML listing; alignment is positional.
type Feed struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []FeedEntry `xml:"entry"`
}

// FeedEntry carries the feed-authoritative fields of one article.
type FeedEntry struct {
	ID      string `xml:"id"`
	Title   string `xml:"title"`
	Updated string `xml:"updated"`
}

// ParseFeed decodes an issue Atom feed.
func ParseFeed(data []byte) (*Feed, error) {
	var feed Feed
	if err := xml.Unmarshal(data, &feed); err != nil {
		return nil, fmt.Errorf("parsing issue feed: %w", err)
	}
	return &feed, nil
}

// DOI returns the entry id trimmed; the portal publishes the bare DOI
// as the Atom entry id.
func (e *FeedEntry) DOI() string {
	return strings.TrimSpace(e.ID)
}

// Timestamp returns the entry's updated time in archive format
// (2006-01-02 15:04:05). Unparseable values pass through untouched.
func (e *FeedEntry) Timestamp() string {
	t, err := dateparse.ParseAny(strings.TrimSpace(e.Updated))
	if err != nil {
		return strings.TrimSpace(e.Updated)
	}
	return t.Format("2006-01-02 15:04:05")
}

// FeedURL derives the issue feed URL from the issue listing URL:
// /j/<slug>/i/<issue>/ becomes /feed/<slug>/<issue>/.
func FeedURL(issueURL string) string {
	url := strings.Replace(issueURL, "/j/", "/feed/", 1)
	return strings.Replace(url, "/i/", "/", 1)
}
