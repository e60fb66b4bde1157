package domain

import "context"

// Document is a single cleaned corpus entry keyed by its file-derived id.
type Document struct {
	ID   string
	Text string
}

// Hit is one retrieved document with its distance to the query.
type Hit struct {
	DocID    string
	Distance float64
}

// ContextBlock is the bounded text handed to generation plus the ids it was built from.
type ContextBlock struct {
	Text    string
	Sources []string
}

// CorpusStore is a read-only mapping from document id to cleaned text.
type CorpusStore interface {
	// IDs lists every document id in ascending order.
	IDs(ctx context.Context) ([]string, error)
	// Get returns the text for id or an error of kind KindMissingDocument.
	Get(ctx context.Context, id string) (string, error)
}

// Generator turns a composed prompt into generated text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Retriever maps a question to its nearest documents.
type Retriever interface {
	Name() string
	Retrieve(ctx context.Context, question string, k int) ([]Hit, error)
}
