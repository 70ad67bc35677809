// Package portal is the crawl engine for the SciELO publication portal:
// grid discovery, issue/article discovery and binary enrichment. Every
// fetch path checks its on-disk cache before touching the network, so an
// interrupted run resumes from disk.
package portal

import (
	"context"
	"fmt"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/htorres/scielo-sync/internal/grid"
)

const (
	// DefaultHost is the publication portal host.
	DefaultHost = "www.scielosp.org"

	// DefaultLanguage is the locale assumed before SetLanguage is called.
	DefaultLanguage = "pt_BR"

	// DefaultRateLimit caps portal requests per second.
	DefaultRateLimit = 4.0

	// DefaultTimeout is the per-request HTTP timeout.
	DefaultTimeout = 60 * time.Second
)

// locales maps the portal's locale spellings to canonical tags.
var locales = map[string]string{
	"pt_BR": "pt_BR",
	"pt-BR": "pt_BR",
	"pt":    "pt_BR",
	"es":    "es_ES",
	"es_ES": "es_ES",
	"en":    "en_US",
	"en_US": "en_US",
}

// NormalizeLocale maps a portal locale spelling to its canonical tag.
// Unknown values pass through unchanged.
func NormalizeLocale(lang string) string {
	if canonical, ok := locales[lang]; ok {
		return canonical
	}
	return lang
}

// localeShort returns the two-letter language code the portal's locale
// switch endpoint expects. Shorter values pass through unchanged.
func localeShort(lang string) string {
	if len(lang) > 2 {
		return lang[:2]
	}
	return lang
}

// StatusError reports a non-success HTTP status from the portal.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("portal returned %d for %s", e.Code, e.URL)
}

// Options configures a portal Client.
type Options struct {
	JournalSlug   string
	BaseDirectory string // archive root, defaults to "output"
	AssetsDir     string // template directory, defaults to "assets"
	Host          string
	HTTPS         bool
	Language      string
	RateLimit     float64
	Logger        logrus.FieldLogger

	// HTTPClient overrides the resty client (for tests).
	HTTPClient *resty.Client
}

// Client crawls one journal of the portal. It is not safe for
// concurrent use; the pipeline is sequential by design.
type Client struct {
	http          *resty.Client
	limiter       *rate.Limiter
	log           logrus.FieldLogger
	slug          string
	baseDirectory string
	assetsDir     string
	baseURL       string
	lang          string
	grid          *grid.Index
	template      string
}

// NewClient creates a portal client. The underlying HTTP client keeps a
// cookie jar because the portal's locale switching is session-backed.
func NewClient(opts Options) (*Client, error) {
	if opts.JournalSlug == "" {
		return nil, fmt.Errorf("journal slug is required")
	}
	if opts.BaseDirectory == "" {
		opts.BaseDirectory = "output"
	}
	if opts.AssetsDir == "" {
		opts.AssetsDir = "assets"
	}
	if opts.Host == "" {
		opts.Host = DefaultHost
		opts.HTTPS = true
	}
	if opts.Language == "" {
		opts.Language = DefaultLanguage
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = DefaultRateLimit
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	scheme := "http"
	if opts.HTTPS {
		scheme = "https"
	}
	baseURL := scheme + "://" + opts.Host

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = resty.New()
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("creating cookie jar: %w", err)
		}
		httpClient.SetCookieJar(jar)
		httpClient.SetTimeout(DefaultTimeout)
	}
	httpClient.SetBaseURL(baseURL)

	return &Client{
		http:          httpClient,
		limiter:       rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		log:           opts.Logger,
		slug:          opts.JournalSlug,
		baseDirectory: opts.BaseDirectory,
		assetsDir:     opts.AssetsDir,
		baseURL:       baseURL,
		lang:          NormalizeLocale(opts.Language),
	}, nil
}

// BaseDirectory returns the archive root the client writes into.
func (c *Client) BaseDirectory() string {
	return c.baseDirectory
}

// Language returns the canonical tag of the current crawl locale.
func (c *Client) Language() string {
	return c.lang
}

// SetLanguage switches the portal session locale and records the
// canonical tag for subsequent listing fetches.
func (c *Client) SetLanguage(ctx context.Context, lang string) error {
	if _, err := c.get(ctx, "/set_locale/"+lang); err != nil {
		return fmt.Errorf("switching locale to %s: %w", lang, err)
	}
	c.lang = NormalizeLocale(lang)
	return nil
}

// get performs a rate-limited GET. A non-2xx status is returned as a
// StatusError so callers can decide between skip and abort.
func (c *Client) get(ctx context.Context, url string) (*resty.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	resp, err := c.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() >= 400 {
		return resp, &StatusError{URL: url, Code: resp.StatusCode()}
	}
	return resp, nil
}

// absoluteURL resolves portal-relative hrefs against the base URL.
func (c *Client) absoluteURL(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return c.baseURL + href
}
