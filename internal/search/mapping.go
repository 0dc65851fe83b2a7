package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/cjk"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for book documents.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = cjk.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	text := func(store, vectors bool) *mapping.FieldMapping {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = cjk.AnalyzerName
		fm.Store = store
		fm.IncludeTermVectors = vectors
		return fm
	}
	keywordField := func(store bool) *mapping.FieldMapping {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = keyword.Name
		fm.Store = store
		return fm
	}
	numeric := func() *mapping.FieldMapping {
		fm := bleve.NewNumericFieldMapping()
		fm.Store = true
		return fm
	}

	// Title and author are stored for result rendering and highlighting.
	docMapping.AddFieldMappingsAt("title", text(true, true))
	docMapping.AddFieldMappingsAt("author", text(true, true))
	docMapping.AddFieldMappingsAt("summary", text(false, false))
	docMapping.AddFieldMappingsAt("thoughts", text(false, false))

	docMapping.AddFieldMappingsAt("id", keywordField(false))
	docMapping.AddFieldMappingsAt("status", keywordField(true))
	docMapping.AddFieldMappingsAt("tags", keywordField(true))

	docMapping.AddFieldMappingsAt("rating", numeric())
	docMapping.AddFieldMappingsAt("added_at", numeric())

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
