package retrieval

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"go.uber.org/zap"
)

const defaultTopK = 3

// Index is a bleve backed Searcher over plain text and markdown documents.
type Index struct {
	index  bleve.Index
	logger *zap.Logger
}

type document struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

// Open opens the index at path, creating it when missing.
func Open(path string, logger *zap.Logger) (*Index, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		idx, err = bleve.New(path, buildMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("open document index: %w", err)
	}

	return &Index{index: idx, logger: logger}, nil
}

func buildMapping() mapping.IndexMapping {
	textField := bleve.NewTextFieldMapping()
	textField.Store = true

	sourceField := bleve.NewTextFieldMapping()
	sourceField.Store = true

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("text", textField)
	doc.AddFieldMappingsAt("source", sourceField)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc

	return m
}

func (i *Index) Close() error {
	return i.index.Close()
}

// DocCount returns the number of indexed passages.
func (i *Index) DocCount() (uint64, error) {
	return i.index.DocCount()
}

// IndexDir walks dir and indexes every markdown and text file, one passage
// per paragraph. It returns the number of passages indexed.
func (i *Index) IndexDir(ctx context.Context, dir string) (int, error) {
	batch := i.index.NewBatch()
	indexed := 0

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".md" && ext != ".txt" {
			return nil
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		source, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			source = filepath.Base(path)
		}

		for n, passage := range splitPassages(string(data)) {
			id := fmt.Sprintf("%s#%d", source, n)
			if err := batch.Index(id, document{Text: passage, Source: source}); err != nil {
				return fmt.Errorf("index %s: %w", id, err)
			}
			indexed++
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	if err := i.index.Batch(batch); err != nil {
		return 0, fmt.Errorf("flush index batch: %w", err)
	}

	i.logger.Info("documents indexed", zap.String("dir", dir), zap.Int("passages", indexed))

	return indexed, nil
}

// Search returns up to topK passages ranked by relevance to the query.
func (i *Index) Search(ctx context.Context, query string, topK int) ([]Passage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}

	if topK <= 0 {
		topK = defaultTopK
	}

	req := bleve.NewSearchRequestOptions(bleve.NewMatchQuery(query), topK, 0, false)
	req.Fields = []string{"text", "source"}

	result, err := i.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}

	passages := make([]Passage, 0, len(result.Hits))
	for _, hit := range result.Hits {
		passage := Passage{Score: hit.Score}
		if text, ok := hit.Fields["text"].(string); ok {
			passage.Text = text
		}
		if source, ok := hit.Fields["source"].(string); ok {
			passage.Source = source
		}
		if passage.Text == "" {
			continue
		}
		passages = append(passages, passage)
	}

	return passages, nil
}

// splitPassages breaks a document into paragraph sized passages.
func splitPassages(content string) []string {
	var passages []string
	for _, block := range strings.Split(content, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		passages = append(passages, block)
	}
	return passages
}
