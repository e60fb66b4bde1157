package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"docqa/internal/corpus"
	"docqa/internal/domain"
	"docqa/internal/embedding"
	"docqa/internal/embedding/tfidf"
	"docqa/internal/vectorindex"
)

// BuildIndex encodes every document of store in id order and returns the
// catalog ready to be saved.
func BuildIndex(ctx context.Context, store domain.CorpusStore, enc embedding.Encoder, log *zap.SugaredLogger) (*vectorindex.Catalog, error) {
	docs, err := corpus.Documents(ctx, store)
	if err != nil {
		return nil, err
	}
	return buildFrom(ctx, docs, enc, log)
}

// BuildTFIDF fits a TF-IDF model on store and indexes the corpus with it.
// The returned model must be saved together with the catalog.
func BuildTFIDF(ctx context.Context, store domain.CorpusStore, log *zap.SugaredLogger) (*tfidf.Model, *vectorindex.Catalog, error) {
	docs, err := corpus.Documents(ctx, store)
	if err != nil {
		return nil, nil, err
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	model, err := tfidf.Fit(texts)
	if err != nil {
		return nil, nil, err
	}
	log.Infow("fitted tfidf model", "documents", len(docs), "terms", model.Dimension())
	cat, err := buildFrom(ctx, docs, model, log)
	if err != nil {
		return nil, nil, err
	}
	return model, cat, nil
}

func buildFrom(ctx context.Context, docs []domain.Document, enc embedding.Encoder, log *zap.SugaredLogger) (*vectorindex.Catalog, error) {
	if len(docs) == 0 {
		return nil, domain.Errorf(domain.KindEmptyCorpus, "service.BuildIndex", "no documents to index")
	}
	ids := make([]string, len(docs))
	texts := make([]string, len(docs))
	for i, d := range docs {
		ids[i], texts[i] = d.ID, d.Text
	}

	start := time.Now()
	vecs, err := enc.Encode(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("encode corpus: %w", err)
	}
	index, err := vectorindex.Build(enc.ModelInfo(), vecs)
	if err != nil {
		return nil, err
	}
	cat, err := vectorindex.NewCatalog(index, ids)
	if err != nil {
		return nil, err
	}
	log.Infow("index built",
		"documents", cat.Len(),
		"dimension", index.Dimension(),
		"model", index.Model(),
		"took", time.Since(start),
	)
	return cat, nil
}
