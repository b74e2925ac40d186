// Package vectorstore defines the contract shared by the managed vector database backends.
package vectorstore

import (
	"context"
	"fmt"

	"finrag-go/internal/model"
)

// Payload keys reserved for node content; every other payload key is node metadata.
const (
	PayloadText       = "text"
	PayloadDocumentID = "doc_id"
)

// FilterFields are indexed as keyword payload fields so equality filters stay fast.
var FilterFields = []string{model.MetaBank, model.MetaYear}

// Point pairs a node with its embedding.
type Point struct {
	Node   model.Node
	Vector []float32
}

// Store is a remote vector collection.
type Store interface {
	// Collection returns the collection or index name.
	Collection() string
	// EnsureCollection creates the collection and its payload indexes if missing.
	EnsureCollection(ctx context.Context, dimensions int) error
	Exists(ctx context.Context) (bool, error)
	Upsert(ctx context.Context, points []Point) error
	// Search returns at most topK nodes ordered by descending similarity.
	// A nil or empty filter searches the whole collection.
	Search(ctx context.Context, vector []float32, filter model.MetadataFilter, topK int) ([]model.ScoredNode, error)
	List(ctx context.Context, limit int) ([]model.Node, error)
	Close() error
}

// Payload flattens a node into the stored payload map.
func Payload(n model.Node) map[string]any {
	payload := make(map[string]any, len(n.Metadata)+2)
	for k, v := range n.Metadata {
		payload[k] = v
	}
	payload[PayloadText] = n.Text
	payload[PayloadDocumentID] = n.DocumentID
	return payload
}

// NodeFromPayload is the inverse of Payload.
func NodeFromPayload(id string, payload map[string]any) model.Node {
	n := model.Node{ID: id, Metadata: make(map[string]string, len(payload))}
	for k, v := range payload {
		switch k {
		case PayloadText:
			n.Text = fmt.Sprint(v)
		case PayloadDocumentID:
			n.DocumentID = fmt.Sprint(v)
		default:
			if v == nil {
				continue
			}
			n.Metadata[k] = fmt.Sprint(v)
		}
	}
	return n
}
