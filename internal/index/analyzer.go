package index

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/token/length"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
)

const (
	analyzerName    = "code_index"
	lengthFilterRef = "code_index_length"

	minTokenLen = 2
	maxTokenLen = 39
)

// buildMapping constructs the index mapping shared by both partitions:
// a single analyzer doing Unicode word tokenization, lowercasing, then
// length-filtering to [minTokenLen, maxTokenLen], applied to the
// "content" and "filename" fields, per SPEC_FULL.md §4.G.
func buildMapping() (mapping.IndexMapping, error) {
	im := bleve.NewIndexMapping()

	if err := im.AddCustomTokenFilter(lengthFilterRef, map[string]interface{}{
		"type": length.Name,
		"min":  float64(minTokenLen),
		"max":  float64(maxTokenLen),
	}); err != nil {
		return nil, err
	}

	if err := im.AddCustomAnalyzer(analyzerName, map[string]interface{}{
		"type":          "custom",
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name, lengthFilterRef},
	}); err != nil {
		return nil, err
	}

	contentField := bleve.NewTextFieldMapping()
	contentField.Analyzer = analyzerName
	filenameField := bleve.NewTextFieldMapping()
	filenameField.Analyzer = analyzerName
	pathField := bleve.NewKeywordFieldMapping()

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("content", contentField)
	doc.AddFieldMappingsAt("filename", filenameField)
	doc.AddFieldMappingsAt("path", pathField)

	im.DefaultMapping = doc
	im.DefaultAnalyzer = analyzerName
	return im, nil
}
