package vectorindex

import (
	"bytes"
	"encoding/gob"
	"io"

	"docqa/internal/domain"
)

const (
	blobMagic   = "docqa-vectorindex"
	blobVersion = 2
)

type blob struct {
	Magic     string
	Version   int
	Model     string
	Dimension int
	Vectors   [][]float64
	// Stamp ties the blob to the id table saved with it; empty for a bare index.
	Stamp string
}

// Encode writes the index in its persisted form.
func (x *Index) Encode(w io.Writer) error {
	return x.encode(w, "")
}

func (x *Index) encode(w io.Writer, stamp string) error {
	return gob.NewEncoder(w).Encode(blob{
		Magic:     blobMagic,
		Version:   blobVersion,
		Model:     x.model,
		Dimension: x.dimension,
		Vectors:   x.vectors,
		Stamp:     stamp,
	})
}

// MarshalBinary returns the persisted form of the index.
func (x *Index) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := x.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads an index previously written by Encode.
func Decode(r io.Reader) (*Index, error) {
	x, _, err := decode(r)
	return x, err
}

func decode(r io.Reader) (*Index, string, error) {
	const op = "vectorindex.Decode"
	var b blob
	if err := gob.NewDecoder(r).Decode(&b); err != nil {
		return nil, "", &domain.Error{Kind: domain.KindMissingArtifact, Op: op, Message: "unreadable index blob", Err: err}
	}
	if b.Magic != blobMagic || b.Version != blobVersion {
		return nil, "", domain.Errorf(domain.KindMissingArtifact, op, "unsupported index blob %q v%d", b.Magic, b.Version)
	}
	x, err := Build(b.Model, b.Vectors)
	if err != nil {
		return nil, "", err
	}
	if x.dimension != b.Dimension {
		return nil, "", domain.Errorf(domain.KindDimensionMismatch, op, "blob declares dimension %d, rows have %d", b.Dimension, x.dimension)
	}
	return x, b.Stamp, nil
}

// Load is the inverse of MarshalBinary.
func Load(data []byte) (*Index, error) {
	return Decode(bytes.NewReader(data))
}
