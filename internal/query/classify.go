package query

import (
	"regexp"
	"strings"
)

// QueryType names the shape of a query string, used to pick a search
// strategy before the first lookup is issued.
type QueryType string

const (
	QueryTypeSymbol       QueryType = "symbol"
	QueryTypeConcept      QueryType = "concept"
	QueryTypeRelationship QueryType = "relationship"
	QueryTypePattern      QueryType = "pattern"
)

// Classifier sorts a raw query string into a QueryType so the planner
// can route symbol-shaped queries straight at the filename index
// instead of spending an OR content search first.
type Classifier struct {
	quotedTermRe      *regexp.Regexp
	identifierRe      *regexp.Regexp
	relationshipWords []string
	patternWords      []string
	patternRegexes    []*regexp.Regexp
}

// NewClassifier builds a Classifier with the default word lists.
func NewClassifier() *Classifier {
	c := &Classifier{
		quotedTermRe: regexp.MustCompile(`"[^"]+"` + "|`[^`]+`"),
		identifierRe: regexp.MustCompile(
			`\b(get|set|is|has|find|handle|create|delete|update|validate|check|process)[A-Z][a-zA-Z]*\b|` +
				`\b[a-z]+(_[a-z]+)+\b|` +
				`\b[A-Z][a-z]+([A-Z][a-z]+)+\b`),
		relationshipWords: []string{
			"calls", "call", "calling",
			"uses", "use", "using",
			"imports", "import", "importing",
			"depends", "dependency", "dependencies",
			"references", "reference", "referencing",
		},
		patternWords: []string{
			"pattern", "patterns",
			"typical", "typically",
			"standard", "convention",
			"structure of",
			"example of",
		},
	}
	c.patternRegexes = []*regexp.Regexp{
		regexp.MustCompile(`how do .* work`),
		regexp.MustCompile(`how does .* work`),
	}
	return c
}

// Classify determines the query type.
func (c *Classifier) Classify(query string) QueryType {
	lower := strings.ToLower(query)

	if c.quotedTermRe.MatchString(query) {
		return QueryTypeSymbol
	}
	for _, re := range c.patternRegexes {
		if re.MatchString(lower) {
			return QueryTypePattern
		}
	}
	for _, word := range c.patternWords {
		if strings.Contains(lower, word) {
			return QueryTypePattern
		}
	}
	for _, word := range c.relationshipWords {
		if containsWord(lower, word) {
			return QueryTypeRelationship
		}
	}
	if c.identifierRe.MatchString(query) {
		return QueryTypeSymbol
	}
	return QueryTypeConcept
}

func containsWord(text, word string) bool {
	idx := strings.Index(text, word)
	if idx == -1 {
		return false
	}
	if idx > 0 {
		prev := text[idx-1]
		if prev != ' ' && prev != '\t' && prev != '\n' && prev != ',' && prev != '.' {
			return false
		}
	}
	end := idx + len(word)
	if end < len(text) {
		next := text[end]
		if next != ' ' && next != '\t' && next != '\n' && next != ',' && next != '.' && next != 's' {
			return false
		}
	}
	return true
}

// Strategy is the routing decision derived from a QueryType: whether
// to try the filename index ahead of a content search, which boolean
// mode to search with, and how many hits to request.
type Strategy struct {
	PreferFilename bool
	Mode           Mode
	Limit          int
}

// Route maps a QueryType to a Strategy.
func (c *Classifier) Route(qt QueryType) Strategy {
	switch qt {
	case QueryTypeSymbol:
		return Strategy{PreferFilename: true, Mode: ModeAnd, Limit: 10}
	case QueryTypeRelationship:
		return Strategy{Mode: ModeAnd, Limit: 20}
	case QueryTypePattern:
		return Strategy{Mode: ModeAnd, Limit: 5}
	default:
		return Strategy{Mode: ModeOr, Limit: 10}
	}
}
