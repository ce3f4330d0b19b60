package intel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentionscope/scanner/internal/model"
)

func TestBuildProbes(t *testing.T) {
	probes := BuildProbes("Acme Plumbing", "acme.example", []model.CompetitorMention{
		{Name: "Bob's Plumbing", Count: 5},
		{Name: "City Pipes", Count: 3},
		{Name: "FixFast", Count: 2},
		{Name: "Drainio", Count: 1},
	})

	require.Len(t, probes, 1+maxComparisonProbes)
	assert.Equal(t, "direct", probes[0].QueryType)
	assert.Contains(t, probes[0].Query, "Acme Plumbing")
	assert.Contains(t, probes[0].Query, "acme.example")

	for _, p := range probes[1:] {
		assert.Equal(t, "comparison", p.QueryType)
	}
	assert.Contains(t, probes[1].Query, "Bob's Plumbing")
	// Drainio is past the cap.
	for _, p := range probes {
		assert.NotContains(t, p.Query, "Drainio")
	}
}

func TestBuildProbesNoCompetitors(t *testing.T) {
	probes := BuildProbes("Acme", "acme.example", nil)
	require.Len(t, probes, 1)
	assert.Equal(t, "direct", probes[0].QueryType)
}

func TestKnowsBrand(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"knows", "Acme Plumbing is a Leeds-based plumber founded in 1987, known for emergency callouts.", true},
		{"name_absent", "There are many plumbers in Leeds.", false},
		{"polite_ignorance", "I don't have any information about Acme Plumbing.", false},
		{"not_familiar", "I'm not familiar with Acme Plumbing specifically.", false},
		{"domain_known", "The site acme.example lists boiler repair services.", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KnowsBrand(tt.text, "Acme Plumbing", "acme.example"))
		})
	}
}
