package portal

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/htorres/scielo-sync/internal/grid"
)

// GridIndex loads the journal grid: from the grid.json snapshot when
// present, otherwise by crawling the portal's issue-listing page and
// persisting the result. The index is cached on the client afterwards.
func (c *Client) GridIndex(ctx context.Context) (*grid.Index, error) {
	if c.grid != nil {
		return c.grid, nil
	}
	idx, err := grid.Load(grid.Path(c.baseDirectory), func() (map[string]map[string]map[string]*grid.Entry, error) {
		return c.fetchGrid(ctx)
	}, c.log)
	if err != nil {
		return nil, err
	}
	c.grid = idx
	return idx, nil
}

// gridURL returns the journal's issue-listing endpoint.
func (c *Client) gridURL() string {
	return "/j/" + c.slug + "/grid"
}

// fetchGrid crawls the issue-listing page. Each table row holds one
// year, its volume and one button link per issue; the issue code is the
// second-to-last segment of the link URL.
func (c *Client) fetchGrid(ctx context.Context) (map[string]map[string]map[string]*grid.Entry, error) {
	resp, err := c.get(ctx, c.gridURL())
	if err != nil {
		return nil, fmt.Errorf("fetching grid page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("parsing grid page: %w", err)
	}

	years := map[string]map[string]map[string]*grid.Entry{}
	doc.Find("#issueList table tbody tr").Each(func(_ int, tr *goquery.Selection) {
		tds := tr.Find("td")
		year := strings.TrimSpace(tds.First().Text())
		volume := strings.TrimSpace(tr.Find("th").Text())
		if year == "" || volume == "" {
			return
		}

		links := map[string]*grid.Entry{}
		tds.Last().Find(".btn").Each(func(_ int, a *goquery.Selection) {
			href, ok := a.Attr("href")
			if !ok {
				return
			}
			url := c.absoluteURL(href)
			tokens := strings.Split(url, "/")
			if len(tokens) < 2 {
				return
			}
			issueCode := tokens[len(tokens)-2]
			links[issueCode] = &grid.Entry{
				Text: strings.TrimSpace(a.Text()),
				URL:  url,
			}
		})

		if years[year] == nil {
			years[year] = map[string]map[string]*grid.Entry{}
		}
		years[year][volume] = links
	})

	if len(years) == 0 {
		return nil, fmt.Errorf("grid page yielded no issues for journal %q", c.slug)
	}
	return years, nil
}
