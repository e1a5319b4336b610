package embedding

import (
	"context"
	"hash/fnv"
)

// NoopEmbedder produces deterministic pseudo-vectors derived from the input
// bytes. It exists so local runs and the memory-backed provider wiring work
// without any model service; the vectors carry no semantic meaning.
type NoopEmbedder struct {
	dim int
}

// NewNoopEmbedder builds a NoopEmbedder emitting vectors of the given dimension.
func NewNoopEmbedder(dim int) *NoopEmbedder {
	if dim <= 0 {
		dim = 768
	}
	return &NoopEmbedder{dim: dim}
}

// EmbedText returns a deterministic vector for the text.
func (e *NoopEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	return e.pseudo([]byte(text)), nil
}

// EmbedImage returns a deterministic vector for the image bytes.
func (e *NoopEmbedder) EmbedImage(_ context.Context, image []byte) ([]float32, error) {
	return e.pseudo(image), nil
}

func (e *NoopEmbedder) pseudo(seed []byte) []float32 {
	h := fnv.New64a()
	_, _ = h.Write(seed)
	state := h.Sum64()
	vec := make([]float32, e.dim)
	for i := range vec {
		// xorshift keeps the sequence deterministic per seed.
		state ^= state << 13
		state ^= state >> 7
		state ^= state << 17
		vec[i] = float32(state%2000)/1000 - 1
	}
	return vec
}
