// Package crawler discovers a bounded set of pages for a domain and extracts
// per-page text, metadata and JSON-LD structured data. Plain HTML fetching
// only; no JavaScript execution.
package crawler

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mentionscope/scanner/internal/config"
	"github.com/mentionscope/scanner/internal/model"
)

const (
	userAgent    = "Mozilla/5.0 (compatible; MentionScopeBot/1.0)"
	maxPageBytes = 512 * 1024
	fetchWorkers = 5
)

// Crawler fetches and extracts site content within a page budget.
type Crawler struct {
	http *http.Client
	cfg  config.CrawlConfig
}

// New creates a Crawler. Fetch timeouts are per request, independent of any
// step- or workflow-level budget.
func New(cfg config.CrawlConfig) *Crawler {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 20
	}
	if cfg.MaxChildSitemaps <= 0 {
		cfg.MaxChildSitemaps = 5
	}
	if cfg.FetchTimeoutSecs <= 0 {
		cfg.FetchTimeoutSecs = 10
	}
	if cfg.MaxBodyChars <= 0 {
		cfg.MaxBodyChars = 5000
	}
	if cfg.MaxHeadings <= 0 {
		cfg.MaxHeadings = 20
	}

	return &Crawler{
		cfg: cfg,
		http: &http.Client{
			Timeout: time.Duration(cfg.FetchTimeoutSecs) * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
				MaxIdleConnsPerHost: fetchWorkers,
			},
		},
	}
}

// Crawl discovers up to MaxPages pages for domain and extracts their
// content. Pages that fail to fetch or parse are dropped silently; partial
// results are the norm. An error is returned only when nothing at all could
// be crawled.
func (c *Crawler) Crawl(ctx context.Context, domain string) (*model.CrawlResult, error) {
	base, err := normalizeDomain(domain)
	if err != nil {
		return nil, eris.Wrapf(err, "crawler: parse domain %s", domain)
	}

	log := zap.L().With(zap.String("domain", base.Host))

	signals := model.SiteSignals{}
	signals.HasRobots = c.exists(ctx, base.Scheme+"://"+base.Host+"/robots.txt")

	urls := c.discoverFromSitemaps(ctx, base)
	signals.HasSitemap = len(urls) > 0

	if len(urls) == 0 {
		log.Debug("crawler: no sitemap urls, falling back to link discovery")
		urls = c.discoverByLinks(ctx, base)
	}
	if len(urls) == 0 {
		// Last resort: at least try the homepage.
		urls = []string{base.String()}
	}
	if len(urls) > c.cfg.MaxPages {
		urls = urls[:c.cfg.MaxPages]
	}

	pages := c.fetchPages(ctx, urls)
	if len(pages) == 0 {
		return nil, eris.Errorf("crawler: no pages fetched for %s", base.Host)
	}

	aggregateSignals(&signals, pages)

	log.Info("crawler: crawl complete",
		zap.Int("urls_discovered", len(urls)),
		zap.Int("pages_fetched", len(pages)),
		zap.Bool("has_sitemap", signals.HasSitemap),
	)

	return &model.CrawlResult{Pages: pages, Signals: signals}, nil
}

// fetchPages fetches and extracts each URL in parallel. Individual failures
// are logged at debug and dropped.
func (c *Crawler) fetchPages(ctx context.Context, urls []string) []model.CrawledPage {
	var (
		mu    sync.Mutex
		pages []model.CrawledPage
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(fetchWorkers)

	for _, u := range urls {
		g.Go(func() error {
			page, err := c.fetchPage(gCtx, u)
			if err != nil {
				zap.L().Debug("crawler: page dropped", zap.String("url", u), zap.Error(err))
				return nil
			}
			mu.Lock()
			pages = append(pages, *page)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	// Parallel fetch order is nondeterministic; keep discovery order.
	index := make(map[string]int, len(urls))
	for i, u := range urls {
		index[u] = i
	}
	sort.SliceStable(pages, func(i, j int) bool { return index[pages[i].URL] < index[pages[j].URL] })

	return pages
}

func (c *Crawler) fetchPage(ctx context.Context, pageURL string) (*model.CrawledPage, error) {
	body, _, err := c.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	page := ExtractPage(pageURL, string(body), c.cfg.MaxHeadings, c.cfg.MaxBodyChars)
	page.FetchedAt = time.Now().UTC()
	return &page, nil
}

// get fetches a URL, returning body bytes and the final content type.
func (c *Crawler) get(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", eris.Wrap(err, "crawler: create request")
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", eris.Wrap(err, "crawler: fetch")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, "", eris.Errorf("crawler: status %d for %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, "", eris.Wrap(err, "crawler: read body")
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func (c *Crawler) exists(ctx context.Context, rawURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// aggregateSignals harvests site-level facts from structured data.
func aggregateSignals(signals *model.SiteSignals, pages []model.CrawledPage) {
	schemaSeen := make(map[string]bool)
	locSeen := make(map[string]bool)
	svcSeen := make(map[string]bool)
	prodSeen := make(map[string]bool)

	for _, p := range pages {
		for _, sd := range p.StructuredData {
			if sd.Type != "" && !schemaSeen[sd.Type] {
				schemaSeen[sd.Type] = true
				signals.SchemaTypes = append(signals.SchemaTypes, sd.Type)
			}
			for _, loc := range []string{sd.Address, sd.Geo, sd.ServiceArea} {
				loc = strings.TrimSpace(loc)
				if loc != "" && !locSeen[strings.ToLower(loc)] {
					locSeen[strings.ToLower(loc)] = true
					signals.Locations = append(signals.Locations, loc)
				}
			}
			if isServiceType(sd.Type) && sd.Name != "" && !svcSeen[strings.ToLower(sd.Name)] {
				svcSeen[strings.ToLower(sd.Name)] = true
				signals.ServiceNames = append(signals.ServiceNames, sd.Name)
			}
			for _, prod := range sd.Products {
				prod = strings.TrimSpace(prod)
				if prod != "" && !prodSeen[strings.ToLower(prod)] {
					prodSeen[strings.ToLower(prod)] = true
					signals.ProductNames = append(signals.ProductNames, prod)
				}
			}
		}
	}
}

func isServiceType(schemaType string) bool {
	t := strings.ToLower(schemaType)
	return strings.Contains(t, "service") || t == "offer"
}

func normalizeDomain(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Host == "" {
		return nil, eris.Errorf("no host in %q", raw)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	u.Fragment = ""
	u.RawQuery = ""
	return u, nil
}
