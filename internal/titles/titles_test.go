package titles

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Add FAQ schema to the pricing page", "addfaqschematothepricingpage"},
		{"Add FAQ Schema to the Pricing Page!!!", "addfaqschematothepricingpage"},
		{"Améliorer le référencement", "ameliorerlereferencement"},
		{"  ", ""},
		{"---", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "input %q", tt.in)
	}
}

func TestNormalizeTruncates(t *testing.T) {
	long := strings.Repeat("a", 200)
	assert.Len(t, Normalize(long), 80)
}

func TestMatcherSeen(t *testing.T) {
	m := NewMatcher([]string{"Fix broken sitemap", "Add testimonials page"})

	assert.True(t, m.Seen("fix BROKEN sitemap!"))
	assert.False(t, m.Seen("Rewrite homepage copy"))
	// Empty-after-normalization never matches anything.
	assert.False(t, m.Seen("!!!"))
}

func TestMatcherAddCatchesInBatchDuplicates(t *testing.T) {
	m := NewMatcher(nil)

	assert.False(t, m.Seen("Add FAQ schema"))
	m.Add("Add FAQ schema")
	assert.True(t, m.Seen("add faq schema."))
}
