package crawler

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// Path prefixes and extensions never worth crawling.
var (
	skipPathPrefixes = []string{
		"/wp-admin", "/wp-login", "/admin", "/api/", "/cart", "/checkout",
		"/login", "/signin", "/signup", "/account", "/cdn-cgi/",
	}
	skipExtensions = []string{
		".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp", ".ico",
		".css", ".js", ".json", ".xml", ".pdf", ".zip", ".mp4", ".mp3",
		".woff", ".woff2", ".ttf",
	}
)

// discoverByLinks is the fallback when no sitemap yields usable URLs:
// breadth-first href extraction from the homepage, same host only, within
// the page budget.
func (c *Crawler) discoverByLinks(ctx context.Context, base *url.URL) []string {
	home := base.String()
	seen := map[string]bool{home: true}
	urls := []string{home}
	frontier := []string{home}

	// Two levels from the homepage covers the page budget on real sites.
	for depth := 0; depth < 2 && len(urls) < c.cfg.MaxPages && len(frontier) > 0; depth++ {
		var next []string
		for _, pageURL := range frontier {
			if len(urls) >= c.cfg.MaxPages {
				break
			}

			body, contentType, err := c.get(ctx, pageURL)
			if err != nil {
				zap.L().Debug("crawler: link discovery fetch failed", zap.String("url", pageURL), zap.Error(err))
				continue
			}
			if contentType != "" && !strings.Contains(contentType, "html") {
				continue
			}

			for _, link := range extractHrefs(string(body), base) {
				if seen[link] || len(urls) >= c.cfg.MaxPages {
					continue
				}
				seen[link] = true
				urls = append(urls, link)
				next = append(next, link)
			}
		}
		frontier = next
	}

	return urls
}

// extractHrefs scans HTML for href attributes and returns normalized
// same-host page URLs, skipping assets and admin/API paths.
func extractHrefs(html string, base *url.URL) []string {
	var links []string
	seen := make(map[string]bool)

	idx := 0
	for {
		pos := strings.Index(html[idx:], `href="`)
		if pos == -1 {
			break
		}
		idx += pos + 6

		end := strings.Index(html[idx:], `"`)
		if end == -1 {
			break
		}
		href := html[idx : idx+end]
		idx += end + 1

		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") ||
			strings.HasPrefix(href, "tel:") {
			continue
		}

		resolved, err := url.Parse(href)
		if err != nil {
			continue
		}
		absolute := base.ResolveReference(resolved)
		if !sameHost(absolute.Host, base.Host) {
			continue
		}
		if skipPath(absolute.Path) {
			continue
		}

		absolute.Fragment = ""
		absolute.RawQuery = ""
		normalized := absolute.String()
		if !seen[normalized] {
			seen[normalized] = true
			links = append(links, normalized)
		}
	}

	return links
}

func skipPath(path string) bool {
	lower := strings.ToLower(path)
	for _, prefix := range skipPathPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	for _, ext := range skipExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
