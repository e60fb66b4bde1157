// Package vectorindex holds document embeddings in insertion order and answers
// exact k-nearest-neighbour queries by squared Euclidean distance.
package vectorindex

import (
	"cmp"
	"slices"

	"docqa/internal/domain"
)

// Index is an immutable, exhaustively scanned set of equal-length vectors.
// It is safe for concurrent Search once built or loaded.
type Index struct {
	model     string
	dimension int
	vectors   [][]float64
}

// Neighbor is a row of the index and its squared distance to a query.
type Neighbor struct {
	Row      int
	Distance float64
}

// Build copies embeddings into a new index. model records the encoder identity
// that produced them.
func Build(model string, embeddings [][]float64) (*Index, error) {
	const op = "vectorindex.Build"
	if len(embeddings) == 0 {
		return nil, domain.Errorf(domain.KindEmptyCorpus, op, "no embeddings to index")
	}
	dim := len(embeddings[0])
	if dim == 0 {
		return nil, domain.Errorf(domain.KindDimensionMismatch, op, "row 0 has zero dimension")
	}
	vectors := make([][]float64, len(embeddings))
	for i, e := range embeddings {
		if len(e) != dim {
			return nil, domain.Errorf(domain.KindDimensionMismatch, op, "row %d has dimension %d, want %d", i, len(e), dim)
		}
		vectors[i] = slices.Clone(e)
	}
	return &Index{model: model, dimension: dim, vectors: vectors}, nil
}

// Len returns the number of stored rows.
func (x *Index) Len() int { return len(x.vectors) }

// Dimension returns the shared vector length.
func (x *Index) Dimension() int { return x.dimension }

// Model returns the encoder identity recorded at build time.
func (x *Index) Model() string { return x.model }

// Search returns the min(k, Len) rows closest to query in ascending distance.
// Equal distances keep insertion order.
func (x *Index) Search(query []float64, k int) ([]Neighbor, error) {
	const op = "vectorindex.Search"
	if k < 1 {
		return nil, domain.Errorf(domain.KindInvalidArgument, op, "k must be at least 1, got %d", k)
	}
	if len(query) != x.dimension {
		return nil, domain.Errorf(domain.KindDimensionMismatch, op, "query has dimension %d, index has %d", len(query), x.dimension)
	}
	neighbors := make([]Neighbor, len(x.vectors))
	for i, v := range x.vectors {
		neighbors[i] = Neighbor{Row: i, Distance: squaredL2(v, query)}
	}
	slices.SortStableFunc(neighbors, func(a, b Neighbor) int {
		return cmp.Compare(a.Distance, b.Distance)
	})
	if k > len(neighbors) {
		k = len(neighbors)
	}
	return neighbors[:k:k], nil
}

func squaredL2(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
