// Package retrieval maps a question to its nearest documents.
//
// Two strategies exist and are selected by name; neither falls back to the other.
// "vector" encodes the question and searches the vector index. "title" compares
// the question's words with the words of each document id.
package retrieval

import (
	"context"
	"fmt"

	"docqa/internal/domain"
	"docqa/internal/embedding"
	"docqa/internal/vectorindex"
)

const (
	StrategyVector = "vector"
	StrategyTitle  = "title"
)

// Vector retrieves by nearest embedding.
type Vector struct {
	encoder embedding.Encoder
	catalog *vectorindex.Catalog
}

// NewVector checks that the encoder produced the catalog's vectors.
func NewVector(encoder embedding.Encoder, catalog *vectorindex.Catalog) (*Vector, error) {
	const op = "retrieval.NewVector"
	if model := catalog.Index().Model(); model != "" && model != encoder.ModelInfo() {
		return nil, domain.Errorf(domain.KindEncoding, op, "index was built with %q but encoder is %q", model, encoder.ModelInfo())
	}
	if d := encoder.Dimension(); d != 0 && d != catalog.Index().Dimension() {
		return nil, domain.Errorf(domain.KindDimensionMismatch, op, "encoder dimension %d, index dimension %d", d, catalog.Index().Dimension())
	}
	return &Vector{encoder: encoder, catalog: catalog}, nil
}

// Name returns StrategyVector.
func (v *Vector) Name() string { return StrategyVector }

// Retrieve encodes question and returns its k nearest documents.
func (v *Vector) Retrieve(ctx context.Context, question string, k int) ([]domain.Hit, error) {
	vec, err := v.Embed(ctx, question)
	if err != nil {
		return nil, err
	}
	return v.Nearest(vec, k)
}

// Embed encodes a single question.
func (v *Vector) Embed(ctx context.Context, question string) ([]float64, error) {
	vec, err := embedding.EncodeOne(ctx, v.encoder, question)
	if err != nil {
		if domain.KindOf(err) != "" {
			return nil, err
		}
		return nil, domain.Wrap(domain.KindEncoding, "retrieval.Embed", err)
	}
	return vec, nil
}

// Nearest searches the catalog with an already encoded question.
func (v *Vector) Nearest(vec []float64, k int) ([]domain.Hit, error) {
	return v.catalog.Search(vec, k)
}

// New builds the named strategy.
func New(strategy string, encoder embedding.Encoder, catalog *vectorindex.Catalog) (domain.Retriever, error) {
	switch strategy {
	case StrategyVector, "":
		return NewVector(encoder, catalog)
	case StrategyTitle:
		return NewTitle(catalog.IDs()), nil
	default:
		return nil, fmt.Errorf("unknown retrieval strategy: %s", strategy)
	}
}
