// Package corpus provides read-only document stores keyed by document id.
package corpus

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"docqa/internal/domain"
)

// DirStore serves one text file per document from a directory. The id of a
// document is its file name without the extension. Files are read on demand.
type DirStore struct {
	dir string
	ext string
}

// NewDirStore returns a store over dir for files ending in ext (".txt" when empty).
func NewDirStore(dir, ext string) *DirStore {
	if ext == "" {
		ext = ".txt"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return &DirStore{dir: dir, ext: ext}
}

// IDs lists the document ids present in the directory in ascending order.
func (s *DirStore) IDs(ctx context.Context) ([]string, error) {
	const op = "corpus.IDs"
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.Errorf(domain.KindMissingArtifact, op, "corpus directory %s not found", s.dir)
	}
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() || !strings.HasSuffix(e.Name(), s.ext) {
			continue
		}
		id := strings.TrimSuffix(e.Name(), s.ext)
		if id == "" {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Get reads the text of one document.
func (s *DirStore) Get(ctx context.Context, id string) (string, error) {
	const op = "corpus.Get"
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", domain.Errorf(domain.KindMissingDocument, op, "invalid document id %q", id)
	}
	data, err := os.ReadFile(filepath.Join(s.dir, id+s.ext))
	if errors.Is(err, fs.ErrNotExist) {
		return "", domain.Errorf(domain.KindMissingDocument, op, "no text stored for document %q", id)
	}
	if err != nil {
		return "", domain.Wrap(domain.KindMissingDocument, op, err)
	}
	return string(data), nil
}

// Documents loads every document in id order.
func Documents(ctx context.Context, store domain.CorpusStore) ([]domain.Document, error) {
	ids, err := store.IDs(ctx)
	if err != nil {
		return nil, err
	}
	docs := make([]domain.Document, 0, len(ids))
	for _, id := range ids {
		text, err := store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		docs = append(docs, domain.Document{ID: id, Text: text})
	}
	return docs, nil
}

// MapStore is an in-memory store, mainly for tests and small embedded corpora.
type MapStore map[string]string

// IDs lists the keys in ascending order.
func (m MapStore) IDs(context.Context) ([]string, error) {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Get returns the stored text for id.
func (m MapStore) Get(_ context.Context, id string) (string, error) {
	text, ok := m[id]
	if !ok {
		return "", domain.Errorf(domain.KindMissingDocument, "corpus.Get", "no text stored for document %q", id)
	}
	return text, nil
}
