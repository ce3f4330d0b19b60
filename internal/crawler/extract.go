package crawler

import (
	"encoding/json"
	"fmt"
	stdhtml "html"
	"regexp"
	"strings"

	"github.com/mentionscope/scanner/internal/model"
)

var (
	titleRe     = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	metaDescRe  = regexp.MustCompile(`(?is)<meta[^>]+name=["']description["'][^>]*content=["']([^"']*)["']`)
	metaDescRe2 = regexp.MustCompile(`(?is)<meta[^>]+content=["']([^"']*)["'][^>]*name=["']description["']`)
	h1Re        = regexp.MustCompile(`(?is)<h1[^>]*>(.*?)</h1>`)
	h23Re       = regexp.MustCompile(`(?is)<h[23][^>]*>(.*?)</h[23]>`)
	jsonLDRe    = regexp.MustCompile(`(?is)<script[^>]+type=["']application/ld\+json["'][^>]*>(.*?)</script>`)

	tagRe   = regexp.MustCompile(`(?s)<[^>]*>`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// ExtractPage reduces raw HTML to the fields the analyzer consumes. It is
// deliberately a string scan, not a DOM parse: malformed markup degrades to
// partial output instead of an error.
func ExtractPage(pageURL, html string, maxHeadings, maxBodyChars int) model.CrawledPage {
	page := model.CrawledPage{URL: pageURL}

	if m := titleRe.FindStringSubmatch(html); m != nil {
		page.Title = cleanText(m[1])
	}
	if m := metaDescRe.FindStringSubmatch(html); m != nil {
		page.MetaDescription = cleanText(m[1])
	} else if m := metaDescRe2.FindStringSubmatch(html); m != nil {
		page.MetaDescription = cleanText(m[1])
	}
	if m := h1Re.FindStringSubmatch(html); m != nil {
		page.H1 = cleanText(m[1])
	}

	for _, m := range h23Re.FindAllStringSubmatch(html, -1) {
		if len(page.Headings) >= maxHeadings {
			break
		}
		if h := cleanText(m[1]); h != "" {
			page.Headings = append(page.Headings, h)
		}
	}

	page.StructuredData = extractJSONLD(html)
	page.BodyText = extractBodyText(html, maxBodyChars)

	return page
}

// extractBodyText strips chrome elements and tags, collapses whitespace and
// truncates at a rune boundary.
func extractBodyText(html string, maxChars int) string {
	stripped := stripBlocks(html)
	text := tagRe.ReplaceAllString(stripped, " ")
	text = stdhtml.UnescapeString(text)
	text = strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))

	runes := []rune(text)
	if len(runes) > maxChars {
		return string(runes[:maxChars])
	}
	return text
}

// Elements whose inner text is never content. One regexp per tag name
// because Go regexp has no backreferences.
var stripBlockRes = func() []*regexp.Regexp {
	tags := []string{"script", "style", "noscript", "svg", "nav", "header", "footer", "form", "iframe"}
	res := make([]*regexp.Regexp, len(tags))
	for i, tag := range tags {
		res[i] = regexp.MustCompile(fmt.Sprintf(`(?is)<%s[^>]*>.*?</%s\s*>`, tag, tag))
	}
	return res
}()

func stripBlocks(html string) string {
	for _, re := range stripBlockRes {
		html = re.ReplaceAllString(html, " ")
	}
	return html
}

func cleanText(s string) string {
	s = tagRe.ReplaceAllString(s, " ")
	s = stdhtml.UnescapeString(s)
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// extractJSONLD parses every JSON-LD block on the page, flattening @graph
// containers and top-level arrays. Unparseable blocks are skipped.
func extractJSONLD(html string) []model.StructuredData {
	var out []model.StructuredData

	for _, m := range jsonLDRe.FindAllStringSubmatch(html, -1) {
		raw := strings.TrimSpace(m[1])
		if raw == "" {
			continue
		}

		var node any
		if err := json.Unmarshal([]byte(raw), &node); err != nil {
			continue
		}
		for _, obj := range flattenLDNodes(node) {
			if sd, ok := reduceLDObject(obj); ok {
				out = append(out, sd)
			}
		}
	}
	return out
}

func flattenLDNodes(node any) []map[string]any {
	var out []map[string]any
	switch v := node.(type) {
	case []any:
		for _, item := range v {
			out = append(out, flattenLDNodes(item)...)
		}
	case map[string]any:
		if graph, ok := v["@graph"].([]any); ok {
			for _, item := range graph {
				out = append(out, flattenLDNodes(item)...)
			}
			return out
		}
		out = append(out, v)
	}
	return out
}

// reduceLDObject maps one JSON-LD object onto the handful of fields the
// pipeline consumes.
func reduceLDObject(obj map[string]any) (model.StructuredData, bool) {
	sd := model.StructuredData{
		Type:        ldString(obj["@type"]),
		Name:        ldString(obj["name"]),
		Description: ldString(obj["description"]),
		Address:     ldAddress(obj["address"]),
		Geo:         ldGeo(obj["geo"]),
		ServiceArea: ldString(obj["areaServed"]),
	}
	if sd.ServiceArea == "" {
		sd.ServiceArea = ldString(obj["serviceArea"])
	}

	for _, offer := range ldList(obj["makesOffer"]) {
		if name := ldOfferName(offer); name != "" {
			sd.Offers = append(sd.Offers, name)
		}
	}
	if strings.EqualFold(sd.Type, "Product") && sd.Name != "" {
		sd.Products = append(sd.Products, sd.Name)
	}
	for _, item := range ldList(obj["itemListElement"]) {
		if m, ok := item.(map[string]any); ok {
			if name := ldString(m["name"]); name != "" && strings.EqualFold(ldString(m["@type"]), "Product") {
				sd.Products = append(sd.Products, name)
			}
		}
	}

	if sd.Type == "" && sd.Name == "" {
		return model.StructuredData{}, false
	}
	return sd, true
}

func ldString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case []any:
		// Multi-typed objects ("@type": ["LocalBusiness", "Plumber"]) keep
		// the first entry.
		if len(s) > 0 {
			return ldString(s[0])
		}
	case map[string]any:
		return ldString(s["name"])
	}
	return ""
}

func ldList(v any) []any {
	switch l := v.(type) {
	case []any:
		return l
	case map[string]any:
		return []any{l}
	}
	return nil
}

// ldAddress renders a PostalAddress object as "street, locality, region,
// country" keeping whichever parts exist.
func ldAddress(v any) string {
	switch a := v.(type) {
	case string:
		return strings.TrimSpace(a)
	case map[string]any:
		var parts []string
		for _, key := range []string{"streetAddress", "addressLocality", "addressRegion", "postalCode", "addressCountry"} {
			if p := ldString(a[key]); p != "" {
				parts = append(parts, p)
			}
		}
		return strings.Join(parts, ", ")
	}
	return ""
}

func ldGeo(v any) string {
	m, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	lat, latOK := m["latitude"].(float64)
	lng, lngOK := m["longitude"].(float64)
	if !latOK || !lngOK {
		return ""
	}
	return fmt.Sprintf("%.6f,%.6f", lat, lng)
}

func ldOfferName(offer any) string {
	m, ok := offer.(map[string]any)
	if !ok {
		return ""
	}
	if item, ok := m["itemOffered"].(map[string]any); ok {
		return ldString(item["name"])
	}
	return ldString(m["name"])
}
