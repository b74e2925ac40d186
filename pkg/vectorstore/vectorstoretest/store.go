// Package vectorstoretest provides an in-memory vectorstore.Store for tests.
package vectorstoretest

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"finrag-go/internal/model"
	"finrag-go/pkg/vectorstore"
)

var _ vectorstore.Store = (*Store)(nil)

// Store keeps points in a map and ranks them by brute-force cosine similarity.
type Store struct {
	mu         sync.Mutex
	collection string
	created    bool
	dimensions int
	points     map[string]vectorstore.Point
	order      []string

	// SearchErr, when set, is returned by every Search call.
	SearchErr error
	// UpsertErr, when set, is returned by every Upsert call.
	UpsertErr error
	// ListErr, when set, is returned by every List call.
	ListErr  error
	Searches int
}

func NewStore(collection string) *Store {
	return &Store{collection: collection, points: map[string]vectorstore.Point{}}
}

func (s *Store) Collection() string { return s.collection }

func (s *Store) EnsureCollection(_ context.Context, dimensions int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.created {
		s.created = true
		s.dimensions = dimensions
	}
	return nil
}

func (s *Store) Exists(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.created, nil
}

func (s *Store) Upsert(_ context.Context, points []vectorstore.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.UpsertErr != nil {
		return s.UpsertErr
	}
	if !s.created {
		return errors.New("collection does not exist")
	}
	for _, p := range points {
		if len(p.Vector) != s.dimensions {
			return errors.New("vector dimension mismatch")
		}
		if _, ok := s.points[p.Node.ID]; !ok {
			s.order = append(s.order, p.Node.ID)
		}
		p.Node.Metadata = model.CopyMetadata(p.Node.Metadata)
		s.points[p.Node.ID] = p
	}
	return nil
}

func (s *Store) Search(_ context.Context, vector []float32, filter model.MetadataFilter, topK int) ([]model.ScoredNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Searches++
	if s.SearchErr != nil {
		return nil, s.SearchErr
	}

	var out []model.ScoredNode
	for _, id := range s.order {
		p := s.points[id]
		if !matches(p.Node.Metadata, filter) {
			continue
		}
		out = append(out, model.ScoredNode{Node: p.Node, Score: cosine(vector, p.Vector)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func (s *Store) List(_ context.Context, limit int) ([]model.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	var out []model.Node
	for _, id := range s.order {
		if len(out) >= limit {
			break
		}
		out = append(out, s.points[id].Node)
	}
	return out, nil
}

func (s *Store) Close() error { return nil }

// Len returns the number of stored points.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.points)
}

func matches(md map[string]string, filter model.MetadataFilter) bool {
	for k, v := range filter {
		if md[k] != v {
			return false
		}
	}
	return true
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		if i >= len(b) {
			break
		}
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
