package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mentionscope/scanner/internal/model"
)

func TestResolveStructuredDataWins(t *testing.T) {
	got := Resolve("acme.com", model.SiteSignals{Locations: []string{"Leeds, UK"}}, "Manchester")

	assert.Equal(t, "Leeds, UK", got.Location)
	assert.Equal(t, 0.8, got.Confidence)
}

func TestResolveAgreementRaisesConfidence(t *testing.T) {
	got := Resolve("acme.com", model.SiteSignals{Locations: []string{"Leeds, UK"}}, "Leeds")

	assert.Equal(t, "Leeds, UK", got.Location)
	assert.Equal(t, 0.95, got.Confidence)
}

func TestResolveAILocationFallback(t *testing.T) {
	got := Resolve("acme.com", model.SiteSignals{}, "Berlin")

	assert.Equal(t, "Berlin", got.Location)
	assert.Equal(t, 0.6, got.Confidence)
}

func TestResolveAILocationMatchingTLD(t *testing.T) {
	got := Resolve("acme.de", model.SiteSignals{}, "Munich, Germany")

	assert.Equal(t, "Munich, Germany", got.Location)
	assert.Equal(t, 0.8, got.Confidence)
}

func TestResolveTLDOnly(t *testing.T) {
	got := Resolve("acme.co.uk", model.SiteSignals{}, "")

	assert.Equal(t, "United Kingdom", got.Location)
	assert.Equal(t, 0.3, got.Confidence)
}

func TestResolveNoSignals(t *testing.T) {
	got := Resolve("acme.com", model.SiteSignals{}, "  ")

	assert.Equal(t, Resolution{}, got)
}
