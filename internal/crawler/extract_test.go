package crawler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const samplePage = `<!doctype html>
<html>
<head>
<title> Acme Plumbing &amp; Heating </title>
<meta name="description" content="Emergency plumbers in Leeds since 1987.">
<script type="application/ld+json">
{
  "@context": "https://schema.org",
  "@graph": [
    {
      "@type": ["LocalBusiness", "Plumber"],
      "name": "Acme Plumbing",
      "address": {"streetAddress": "1 High St", "addressLocality": "Leeds", "addressCountry": "GB"},
      "geo": {"latitude": 53.8008, "longitude": -1.5491},
      "areaServed": "West Yorkshire",
      "makesOffer": [{"itemOffered": {"name": "Boiler Repair"}}]
    },
    {"@type": "Product", "name": "Annual Service Plan"}
  ]
}
</script>
</head>
<body>
<nav><a href="/about">About us</a> <a href="/contact">Contact</a></nav>
<header>Top banner text</header>
<h1>Leeds Plumbers You Can Trust</h1>
<h2>Emergency Callouts</h2>
<h3>Boiler Servicing</h3>
<p>We fix leaks, install boilers &amp; service heating systems.</p>
<script>trackPageview();</script>
<style>.x{color:red}</style>
<footer>Copyright Acme</footer>
</body>
</html>`

func TestExtractPageFields(t *testing.T) {
	page := ExtractPage("https://acme.example/", samplePage, 20, 5000)

	assert.Equal(t, "https://acme.example/", page.URL)
	assert.Equal(t, "Acme Plumbing & Heating", page.Title)
	assert.Equal(t, "Emergency plumbers in Leeds since 1987.", page.MetaDescription)
	assert.Equal(t, "Leeds Plumbers You Can Trust", page.H1)
	assert.Equal(t, []string{"Emergency Callouts", "Boiler Servicing"}, page.Headings)
}

func TestExtractPageBodyStripsChrome(t *testing.T) {
	page := ExtractPage("https://acme.example/", samplePage, 20, 5000)

	assert.Contains(t, page.BodyText, "We fix leaks, install boilers & service heating systems.")
	assert.NotContains(t, page.BodyText, "trackPageview")
	assert.NotContains(t, page.BodyText, "color:red")
	assert.NotContains(t, page.BodyText, "About us")
	assert.NotContains(t, page.BodyText, "Top banner text")
	assert.NotContains(t, page.BodyText, "Copyright")
}

func TestExtractPageBodyTruncates(t *testing.T) {
	html := "<body><p>" + strings.Repeat("word ", 500) + "</p></body>"
	page := ExtractPage("https://x.example/", html, 20, 100)
	assert.Equal(t, 100, len([]rune(page.BodyText)))
}

func TestExtractPageJSONLDGraph(t *testing.T) {
	page := ExtractPage("https://acme.example/", samplePage, 20, 5000)

	if !assert.Len(t, page.StructuredData, 2) {
		return
	}

	biz := page.StructuredData[0]
	assert.Equal(t, "LocalBusiness", biz.Type)
	assert.Equal(t, "Acme Plumbing", biz.Name)
	assert.Equal(t, "1 High St, Leeds, GB", biz.Address)
	assert.Equal(t, "53.800800,-1.549100", biz.Geo)
	assert.Equal(t, "West Yorkshire", biz.ServiceArea)
	assert.Equal(t, []string{"Boiler Repair"}, biz.Offers)

	prod := page.StructuredData[1]
	assert.Equal(t, "Product", prod.Type)
	assert.Equal(t, []string{"Annual Service Plan"}, prod.Products)
}

func TestExtractPageMalformedJSONLDSkipped(t *testing.T) {
	html := `<html><head>
<script type="application/ld+json">{not json</script>
<script type="application/ld+json">{"@type":"Organization","name":"Acme"}</script>
</head><body><h1>Hi</h1></body></html>`

	page := ExtractPage("https://x.example/", html, 20, 5000)
	if assert.Len(t, page.StructuredData, 1) {
		assert.Equal(t, "Organization", page.StructuredData[0].Type)
	}
}

func TestExtractHrefsFiltering(t *testing.T) {
	base, _ := normalizeDomain("acme.example")
	html := `<a href="/services">s</a>
<a href="https://acme.example/pricing?utm=x#top">p</a>
<a href="https://other.example/out">ext</a>
<a href="/wp-admin/page">admin</a>
<a href="/logo.png">img</a>
<a href="mailto:hi@acme.example">mail</a>
<a href="/services">dup</a>`

	links := extractHrefs(html, base)
	assert.Equal(t, []string{
		"https://acme.example/services",
		"https://acme.example/pricing",
	}, links)
}
