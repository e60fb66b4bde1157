package vectorindex

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/bytedance/sonic"

	"docqa/internal/domain"
)

// Catalog pairs an index with the document ids of its rows: ids[i] names row i.
type Catalog struct {
	index *Index
	ids   []string
}

// NewCatalog checks that ids align one-to-one with the index rows.
func NewCatalog(index *Index, ids []string) (*Catalog, error) {
	const op = "vectorindex.NewCatalog"
	if index.Len() != len(ids) {
		return nil, domain.Errorf(domain.KindMissingArtifact, op, "index has %d rows but id table has %d entries", index.Len(), len(ids))
	}
	seen := make(map[string]struct{}, len(ids))
	for i, id := range ids {
		if _, dup := seen[id]; dup {
			return nil, domain.Errorf(domain.KindInvalidArgument, op, "duplicate document id %q at row %d", id, i)
		}
		seen[id] = struct{}{}
	}
	return &Catalog{index: index, ids: slices.Clone(ids)}, nil
}

// Index returns the underlying vector index.
func (c *Catalog) Index() *Index { return c.index }

// IDs returns a copy of the id table.
func (c *Catalog) IDs() []string { return slices.Clone(c.ids) }

// Len returns the number of indexed documents.
func (c *Catalog) Len() int { return len(c.ids) }

// Search runs a k-nearest query and resolves rows to document ids.
func (c *Catalog) Search(query []float64, k int) ([]domain.Hit, error) {
	neighbors, err := c.index.Search(query, k)
	if err != nil {
		return nil, err
	}
	hits := make([]domain.Hit, len(neighbors))
	for i, n := range neighbors {
		hits[i] = domain.Hit{DocID: c.ids[n.Row], Distance: n.Distance}
	}
	return hits, nil
}

type idTable struct {
	Stamp string   `json:"stamp"`
	IDs   []string `json:"ids"`
}

// buildStamp identifies one model and id order; both artifacts carry it.
func buildStamp(model string, ids []string) string {
	h := sha1.New()
	fmt.Fprintf(h, "%s\x00%d", model, len(ids))
	for _, id := range ids {
		h.Write([]byte{0})
		h.Write([]byte(id))
	}
	return hex.EncodeToString(h.Sum(nil)[:8])
}

// Save writes the index blob and id table, each replaced atomically. Both
// carry the same build stamp so OpenCatalog can tell a half-finished save.
func (c *Catalog) Save(indexPath, idsPath string) error {
	stamp := buildStamp(c.index.Model(), c.ids)
	var buf bytes.Buffer
	if err := c.index.encode(&buf, stamp); err != nil {
		return err
	}
	if err := writeFileAtomic(indexPath, buf.Bytes()); err != nil {
		return err
	}
	table, err := sonic.Marshal(idTable{Stamp: stamp, IDs: c.ids})
	if err != nil {
		return err
	}
	return writeFileAtomic(idsPath, table)
}

// OpenCatalog loads both artifacts written by Save.
func OpenCatalog(ctx context.Context, indexPath, idsPath string) (*Catalog, error) {
	const op = "vectorindex.OpenCatalog"
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := readArtifact(op, "index blob", indexPath)
	if err != nil {
		return nil, err
	}
	table, err := readArtifact(op, "id table", idsPath)
	if err != nil {
		return nil, err
	}
	index, stamp, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var t idTable
	if err := sonic.Unmarshal(table, &t); err != nil {
		return nil, &domain.Error{Kind: domain.KindMissingArtifact, Op: op, Message: "unreadable id table " + idsPath, Err: err}
	}
	cat, err := NewCatalog(index, t.IDs)
	if err != nil {
		return nil, err
	}
	want := buildStamp(index.Model(), t.IDs)
	if stamp != want || t.Stamp != want {
		return nil, domain.Errorf(domain.KindMissingArtifact, op,
			"index blob %s and id table %s come from different builds; run `docqa build` again", indexPath, idsPath)
	}
	return cat, nil
}

func readArtifact(op, what, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.Errorf(domain.KindMissingArtifact, op, "%s not found at %s; run `docqa build` first", what, path)
	}
	if err != nil {
		return nil, &domain.Error{Kind: domain.KindMissingArtifact, Op: op, Message: "cannot read " + what, Err: err}
	}
	return data, nil
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
