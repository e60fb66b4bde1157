package embedding

import "context"

// Encoder converts texts into fixed-length vectors. Output i belongs to input i,
// and a given ModelInfo always maps the same text to the same vector.
type Encoder interface {
	ModelInfo() string
	Dimension() int
	Encode(ctx context.Context, texts []string) ([][]float64, error)
}

// EncodeOne is a convenience for single-text encoding.
func EncodeOne(ctx context.Context, enc Encoder, text string) ([]float64, error) {
	out, err := enc.Encode(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}
