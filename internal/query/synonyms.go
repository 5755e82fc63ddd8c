package query

import (
	"fmt"
	"sort"
	"strings"
)

// SynonymExpander proposes alternative terms for a query that returned
// nothing, using a fixed domain vocabulary plus whatever filenames and
// content terms are actually present in the lexicon.
type SynonymExpander struct {
	synonyms   map[string][]string
	knownTerms map[string]int
}

// Synonym is one proposed alternative term.
type Synonym struct {
	Term   string `json:"term"`
	Count  int    `json:"count,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// NewSynonymExpander builds an expander with the default vocabulary.
func NewSynonymExpander() *SynonymExpander {
	return &SynonymExpander{
		synonyms: map[string][]string{
			"auth":           {"authentication", "login", "session", "token", "credential"},
			"authentication": {"auth", "login", "session", "token"},
			"db":             {"database", "mongo", "sql", "storage", "persistence"},
			"database":       {"db", "mongo", "sql", "storage"},
			"queue":          {"message", "async", "kafka", "rabbit"},
			"error":          {"exception", "failure", "fault", "issue"},
			"test":           {"spec", "unit", "integration", "mock"},
			"config":         {"configuration", "settings", "options", "env"},
			"http":           {"request", "response", "api", "rest", "endpoint"},
			"api":            {"endpoint", "rest", "http", "route"},
			"file":           {"document", "blob", "storage", "upload"},
			"cache":          {"redis", "memory", "store", "ttl"},
			"log":            {"logging", "logger", "audit", "trace"},
			"timeout":        {"expiry", "ttl", "deadline", "retry"},
		},
		knownTerms: make(map[string]int),
	}
}

// AddKnownTerms records terms that are actually present in the index,
// so suggestions can be scored by how common the term is.
func (g *SynonymExpander) AddKnownTerms(terms []string) {
	for _, term := range terms {
		g.knownTerms[strings.ToLower(term)]++
	}
}

// Expand proposes up to 5 alternative terms for query, ranked by how
// often the term appears in the known lexicon.
func (g *SynonymExpander) Expand(query string) []Synonym {
	words := strings.Fields(strings.ToLower(query))
	suggestions := make(map[string]*Synonym)

	for _, word := range words {
		for _, syn := range g.synonyms[word] {
			if count, exists := g.knownTerms[syn]; exists {
				if existing, ok := suggestions[syn]; ok {
					existing.Count = count
				} else {
					suggestions[syn] = &Synonym{Term: syn, Count: count, Reason: fmt.Sprintf("synonym for %q", word)}
				}
			}
		}
		for key, syns := range g.synonyms {
			for _, syn := range syns {
				if syn != word {
					continue
				}
				if count, exists := g.knownTerms[key]; exists {
					if _, ok := suggestions[key]; !ok {
						suggestions[key] = &Synonym{Term: key, Count: count, Reason: fmt.Sprintf("synonym for %q", word)}
					}
				}
			}
		}
		for term, count := range g.knownTerms {
			if strings.Contains(term, word) || strings.Contains(word, term) {
				if _, ok := suggestions[term]; !ok {
					suggestions[term] = &Synonym{Term: term, Count: count, Reason: "partial match"}
				}
			}
		}
	}

	result := make([]Synonym, 0, len(suggestions))
	for _, s := range suggestions {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Count > result[j].Count })
	if len(result) > 5 {
		result = result[:5]
	}
	return result
}
