package crawler

import (
	"context"
	"encoding/xml"
	"net/url"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Conventional sitemap locations tried in order.
var sitemapPaths = []string{
	"/sitemap.xml",
	"/sitemap_index.xml",
	"/sitemap-index.xml",
	"/wp-sitemap.xml",
	"/sitemap1.xml",
}

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	URLs    []sitemapLoc `xml:"url"`
}

type sitemapIndex struct {
	XMLName  xml.Name     `xml:"sitemapindex"`
	Sitemaps []sitemapLoc `xml:"sitemap"`
}

type sitemapLoc struct {
	Loc string `xml:"loc"`
}

// discoverFromSitemaps tries the conventional sitemap URLs. A sitemap index
// is followed into up to MaxChildSitemaps children, preferring child
// sitemaps whose names suggest page/post/product/service content over
// tag/category/author ones, and stopping once MaxPages URLs are collected.
func (c *Crawler) discoverFromSitemaps(ctx context.Context, base *url.URL) []string {
	origin := base.Scheme + "://" + base.Host

	for _, path := range sitemapPaths {
		urls := c.readSitemap(ctx, origin+path, base, 0)
		if len(urls) > 0 {
			if len(urls) > c.cfg.MaxPages {
				urls = urls[:c.cfg.MaxPages]
			}
			return urls
		}
	}
	return nil
}

func (c *Crawler) readSitemap(ctx context.Context, sitemapURL string, base *url.URL, depth int) []string {
	// One level of index recursion is all real sites need.
	if depth > 1 {
		return nil
	}

	body, _, err := c.get(ctx, sitemapURL)
	if err != nil {
		return nil
	}

	var urlSet sitemapURLSet
	if err := xml.Unmarshal(body, &urlSet); err == nil && len(urlSet.URLs) > 0 {
		return sameHostURLs(urlSet.URLs, base)
	}

	var index sitemapIndex
	if err := xml.Unmarshal(body, &index); err != nil || len(index.Sitemaps) == 0 {
		return nil
	}

	children := sameHostURLs(index.Sitemaps, base)
	sort.SliceStable(children, func(i, j int) bool {
		return childSitemapRank(children[i]) < childSitemapRank(children[j])
	})

	var out []string
	fetched := 0
	for _, child := range children {
		if fetched >= c.cfg.MaxChildSitemaps || len(out) >= c.cfg.MaxPages {
			break
		}
		fetched++
		got := c.readSitemap(ctx, child, base, depth+1)
		out = append(out, got...)
	}

	if len(out) > 0 {
		zap.L().Debug("crawler: sitemap index expanded",
			zap.String("sitemap", sitemapURL),
			zap.Int("children_fetched", fetched),
			zap.Int("urls", len(out)),
		)
	}
	return out
}

// childSitemapRank orders child sitemaps by how likely they are to contain
// primary content. Lower ranks first.
func childSitemapRank(sitemapURL string) int {
	name := strings.ToLower(sitemapURL)
	switch {
	case strings.Contains(name, "page"):
		return 0
	case strings.Contains(name, "post"):
		return 1
	case strings.Contains(name, "product"):
		return 2
	case strings.Contains(name, "service"):
		return 3
	case strings.Contains(name, "tag"), strings.Contains(name, "category"),
		strings.Contains(name, "author"), strings.Contains(name, "archive"):
		return 5
	}
	return 4
}

func sameHostURLs(locs []sitemapLoc, base *url.URL) []string {
	seen := make(map[string]bool)
	var out []string
	for _, entry := range locs {
		loc := strings.TrimSpace(entry.Loc)
		if loc == "" || seen[loc] {
			continue
		}
		u, err := url.Parse(loc)
		if err != nil || !sameHost(u.Host, base.Host) {
			continue
		}
		seen[loc] = true
		out = append(out, loc)
	}
	return out
}

func sameHost(a, b string) bool {
	return strings.TrimPrefix(strings.ToLower(a), "www.") == strings.TrimPrefix(strings.ToLower(b), "www.")
}
