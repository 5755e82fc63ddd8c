package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSynonymExpander_ExpandFindsRelatedKnownTerms(t *testing.T) {
	g := NewSynonymExpander()
	g.AddKnownTerms([]string{"queue", "async", "message", "auth", "login"})

	suggestions := g.Expand("kafka consumer throttling")
	assert.NotEmpty(t, suggestions)

	found := false
	for _, s := range suggestions {
		if s.Term == "queue" || s.Term == "async" || s.Term == "message" {
			found = true
		}
	}
	assert.True(t, found, "should surface queue-related terms for a kafka query")
}

func TestSynonymExpander_ExpandNoSuggestionsWhenNothingKnown(t *testing.T) {
	g := NewSynonymExpander()
	assert.Empty(t, g.Expand("completely unknown term"))
}

func TestSynonymExpander_ExpandLimitedToFive(t *testing.T) {
	g := NewSynonymExpander()
	g.AddKnownTerms([]string{
		"user_a", "user_b", "user_c", "user_d", "user_e",
		"user_f", "user_g", "user_h", "user_i", "user_j",
	})
	assert.LessOrEqual(t, len(g.Expand("user")), 5)
}
