package tfidf

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"docqa/internal/domain"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`)

// Model is a fitted TF-IDF vectorizer. Its vocabulary order fixes the vector
// layout, so a saved model reproduces the exact vectors it was fitted with.
type Model struct {
	vocabulary map[string]int
	terms      []string
	idf        []float64
	documents  int
	info       string
}

type modelFile struct {
	Documents int       `yaml:"documents"`
	Terms     []string  `yaml:"terms"`
	IDF       []float64 `yaml:"idf"`
}

// Fit builds the vocabulary and smoothed IDF values from the corpus.
func Fit(corpus []string) (*Model, error) {
	const op = "tfidf.Fit"
	if len(corpus) == 0 {
		return nil, domain.Errorf(domain.KindEmptyCorpus, op, "empty corpus")
	}
	df := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range tokenize(text) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	if len(df) == 0 {
		return nil, domain.Errorf(domain.KindEmptyCorpus, op, "no tokens found in corpus")
	}
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	// Stable ordering for vocabulary
	sort.Strings(terms)
	n := float64(len(corpus))
	idf := make([]float64, len(terms))
	for i, term := range terms {
		idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}
	return newModel(len(corpus), terms, idf), nil
}

func newModel(documents int, terms []string, idf []float64) *Model {
	vocab := make(map[string]int, len(terms))
	for i, t := range terms {
		vocab[t] = i
	}
	return &Model{vocabulary: vocab, terms: terms, idf: idf, documents: documents, info: fingerprint(terms, idf)}
}

// LoadModel reads a model written by Save.
func LoadModel(path string) (*Model, error) {
	const op = "tfidf.LoadModel"
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.Errorf(domain.KindEncoding, op, "model artifact not found at %s", path)
	}
	if err != nil {
		return nil, domain.Wrap(domain.KindEncoding, op, err)
	}
	var f modelFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, domain.Wrap(domain.KindEncoding, op, err)
	}
	if len(f.Terms) == 0 || len(f.Terms) != len(f.IDF) {
		return nil, domain.Errorf(domain.KindEncoding, op, "model at %s has %d terms and %d idf values", path, len(f.Terms), len(f.IDF))
	}
	return newModel(f.Documents, f.Terms, f.IDF), nil
}

// Save writes the model as YAML, creating directories as needed.
func (m *Model) Save(path string) error {
	data, err := yaml.Marshal(modelFile{Documents: m.documents, Terms: m.terms, IDF: m.idf})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ModelInfo identifies the fitted vocabulary.
func (m *Model) ModelInfo() string { return m.info }

// Dimension is the vocabulary size.
func (m *Model) Dimension() int { return len(m.terms) }

// Encode computes L2-normalised TF-IDF vectors. Texts with no known terms map
// to the zero vector.
func (m *Model) Encode(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = m.embed(text)
	}
	return out, nil
}

func (m *Model) embed(text string) []float64 {
	vec := make([]float64, len(m.terms))
	tf := make(map[int]int)
	total := 0
	for _, tok := range tokenize(text) {
		if idx, ok := m.vocabulary[tok]; ok {
			tf[idx]++
			total++
		}
	}
	if total == 0 {
		return vec
	}
	for idx, count := range tf {
		vec[idx] = float64(count) / float64(total) * m.idf[idx]
	}
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}

func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

func fingerprint(terms []string, idf []float64) string {
	h := sha1.New()
	var buf [8]byte
	for i, t := range terms {
		h.Write([]byte(t))
		h.Write([]byte{0})
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(idf[i]))
		h.Write(buf[:])
	}
	sum := h.Sum(nil)
	return "tfidf-" + hex.EncodeToString(sum[:8])
}
