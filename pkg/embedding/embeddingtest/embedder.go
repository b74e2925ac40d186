// Package embeddingtest provides a deterministic embedding.Client for tests.
package embeddingtest

import (
	"context"
	"hash/fnv"
	"strings"

	"finrag-go/pkg/embedding"
)

var _ embedding.Client = (*Embedder)(nil)

// Embedder hashes lower-cased words into a fixed number of buckets,
// so texts sharing words get similar vectors.
type Embedder struct {
	Dimensions int
	// Err, when set, is returned by every call.
	Err        error
	Calls      int
}

func New(dimensions int) *Embedder {
	return &Embedder{Dimensions: dimensions}
}

func (e *Embedder) Model() string { return "bag-of-words-test" }

func (e *Embedder) CreateEmbeddings(_ context.Context, texts []string, _ string) ([][]float32, error) {
	e.Calls++
	if e.Err != nil {
		return nil, e.Err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *Embedder) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.CreateEmbeddings(ctx, []string{text}, embedding.InputQuery)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *Embedder) vector(text string) []float32 {
	v := make([]float32, e.Dimensions)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,?!:;")
		if w == "" {
			continue
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[h.Sum32()%uint32(e.Dimensions)]++
	}
	return v
}
