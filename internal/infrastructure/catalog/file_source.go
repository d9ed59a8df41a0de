package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/variantlens/backend/internal/domain"
)

// FileSource reads the product catalog from a JSON file on every fetch, so
// catalog edits are picked up by the next scheduled scan without a restart.
// An absent file yields an empty catalog rather than an error.
type FileSource struct {
	path string
}

// NewFileSource creates a source reading from path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// FetchProducts loads the catalog file.
func (s *FileSource) FetchProducts(ctx context.Context) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []domain.Product{}, nil
		}
		return nil, fmt.Errorf("failed to read catalog %q: %w", s.path, err)
	}

	var products []domain.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %q: %w", s.path, err)
	}
	return products, nil
}

var _ domain.ProductSource = (*FileSource)(nil)
