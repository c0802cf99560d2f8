package search

import (
	"context"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/edgengram"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"bookmarket/internal/models"
)

const (
	edgeNgramFilter   = "edge_ngram_filter"
	edgeNgramAnalyzer = "edge_ngram_analyzer"
)

var searchFields = []string{"title", "author", "description", "major"}

// Index mirrors the searchable subset of listings. Implementations are safe
// for concurrent use.
type Index interface {
	IndexBook(book models.Book) error
	DeleteBook(bookID int64) error
	Search(ctx context.Context, q string, limit int) ([]int64, error)
	Close() error
}

// bookDocument is the searchable projection of a listing.
type bookDocument struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description"`
	Major       string `json:"major"`
}

// BleveIndex is a bleve-backed Index with an edge-n-gram analyzer, so partial
// word prefixes ("oper" -> "operating systems") match.
type BleveIndex struct {
	index bleve.Index
}

// NewIndex opens (or creates) a persistent index at path. An empty path
// builds an in-memory index, used in development and tests.
func NewIndex(path string, minGram, maxGram int) (*BleveIndex, error) {
	indexMapping, err := buildMapping(minGram, maxGram)
	if err != nil {
		return nil, err
	}

	if path == "" {
		idx, err := bleve.NewMemOnly(indexMapping)
		if err != nil {
			return nil, err
		}
		return &BleveIndex{index: idx}, nil
	}

	idx, err := bleve.New(path, indexMapping)
	if err == bleve.ErrorIndexPathExists {
		idx, err = bleve.Open(path)
	}
	if err != nil {
		return nil, err
	}
	return &BleveIndex{index: idx}, nil
}

func buildMapping(minGram, maxGram int) (mapping.IndexMapping, error) {
	m := bleve.NewIndexMapping()

	if err := m.AddCustomTokenFilter(edgeNgramFilter, map[string]interface{}{
		"type": edgengram.Name,
		"min":  float64(minGram),
		"max":  float64(maxGram),
	}); err != nil {
		return nil, err
	}
	if err := m.AddCustomAnalyzer(edgeNgramAnalyzer, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name, edgeNgramFilter},
	}); err != nil {
		return nil, err
	}

	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = edgeNgramAnalyzer

	doc := bleve.NewDocumentMapping()
	for _, field := range searchFields {
		doc.AddFieldMappingsAt(field, textField)
	}
	m.DefaultMapping = doc
	m.DefaultAnalyzer = edgeNgramAnalyzer
	return m, nil
}

// IndexBook upserts the searchable fields of a listing.
func (b *BleveIndex) IndexBook(book models.Book) error {
	return b.index.Index(strconv.FormatInt(book.ID, 10), bookDocument{
		Title:       book.Title,
		Author:      book.Author,
		Description: book.Description,
		Major:       book.Major,
	})
}

// DeleteBook removes a listing from the index. Deleting an id that was never
// indexed is not an error.
func (b *BleveIndex) DeleteBook(bookID int64) error {
	return b.index.Delete(strconv.FormatInt(bookID, 10))
}

// Search matches q against all searchable fields and returns listing ids in
// relevance order. Callers hydrate from the primary store.
func (b *BleveIndex) Search(ctx context.Context, q string, limit int) ([]int64, error) {
	queries := make([]query.Query, 0, len(searchFields))
	for _, field := range searchFields {
		mq := bleve.NewMatchQuery(q)
		mq.SetField(field)
		queries = append(queries, mq)
	}

	req := bleve.NewSearchRequest(bleve.NewDisjunctionQuery(queries...))
	req.Size = limit

	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(res.Hits))
	for _, hit := range res.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Close releases the underlying index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
