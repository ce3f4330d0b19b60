// Package geo merges the weak location signals available for a site (domain
// TLD, structured data, page text, the analyzer's extracted location) into
// one best-guess location with a confidence.
package geo

import (
	"strings"

	"github.com/mentionscope/scanner/internal/model"
)

// Resolution is the resolver's output.
type Resolution struct {
	Location   string  `json:"location"`
	Confidence float64 `json:"confidence"`
}

// ccTLD country hints. Only TLDs that strongly imply a market are listed;
// .com and other gTLDs carry no signal.
var tldCountries = map[string]string{
	"uk": "United Kingdom",
	"de": "Germany",
	"fr": "France",
	"nl": "Netherlands",
	"es": "Spain",
	"it": "Italy",
	"au": "Australia",
	"nz": "New Zealand",
	"ca": "Canada",
	"ie": "Ireland",
	"ch": "Switzerland",
	"at": "Austria",
	"se": "Sweden",
	"no": "Norway",
	"dk": "Denmark",
	"fi": "Finland",
	"be": "Belgium",
	"pt": "Portugal",
	"pl": "Poland",
	"br": "Brazil",
	"mx": "Mexico",
	"jp": "Japan",
	"in": "India",
	"sg": "Singapore",
	"za": "South Africa",
}

// Resolve picks the best location using a priority chain: structured-data
// locations beat the AI-extracted location, which beats a bare ccTLD
// country. Agreement between independent signals raises confidence.
func Resolve(domain string, signals model.SiteSignals, aiLocation string) Resolution {
	tldLoc := countryFromTLD(domain)
	aiLoc := strings.TrimSpace(aiLocation)

	var structLoc string
	if len(signals.Locations) > 0 {
		structLoc = strings.TrimSpace(signals.Locations[0])
	}

	switch {
	case structLoc != "":
		conf := 0.8
		if aiLoc != "" && looseMatch(structLoc, aiLoc) {
			conf = 0.95
		}
		return Resolution{Location: structLoc, Confidence: conf}

	case aiLoc != "":
		conf := 0.6
		if tldLoc != "" && looseMatch(aiLoc, tldLoc) {
			conf = 0.8
		}
		return Resolution{Location: aiLoc, Confidence: conf}

	case tldLoc != "":
		return Resolution{Location: tldLoc, Confidence: 0.3}
	}

	return Resolution{}
}

func countryFromTLD(domain string) string {
	domain = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(domain), "."))
	idx := strings.LastIndex(domain, ".")
	if idx < 0 {
		return ""
	}
	return tldCountries[domain[idx+1:]]
}

// looseMatch reports whether one location string mentions the other.
func looseMatch(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	return strings.Contains(la, lb) || strings.Contains(lb, la)
}
