// Package qdrant implements vectorstore.Store on top of the Qdrant gRPC client.
package qdrant

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"finrag-go/internal/config"
	"finrag-go/internal/model"
	"finrag-go/pkg/log"
	"finrag-go/pkg/vectorstore"
)

var _ vectorstore.Store = (*Store)(nil)

// Store is a single Qdrant collection using cosine distance.
type Store struct {
	client     *qdrant.Client
	collection string
}

// NewStore connects to Qdrant with the configured host, port and API key.
func NewStore(cfg config.QdrantConfig) (*Store, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("connect qdrant: %w", err)
	}
	return &Store{client: client, collection: cfg.Collection}, nil
}

func (s *Store) Collection() string {
	return s.collection
}

func (s *Store) Exists(ctx context.Context) (bool, error) {
	return s.client.CollectionExists(ctx, s.collection)
}

// EnsureCollection creates the collection and keyword payload indexes for the filter fields.
func (s *Store) EnsureCollection(ctx context.Context, dimensions int) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	if exists {
		return nil
	}

	log.Infof("[Qdrant] collection '%s' 不存在，正在创建, 维度: %d", s.collection, dimensions)
	if err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	}); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	for _, field := range vectorstore.FilterFields {
		if _, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collection,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		}); err != nil {
			return fmt.Errorf("create payload index %s: %w", field, err)
		}
	}
	log.Infof("[Qdrant] collection '%s' 创建成功", s.collection)
	return nil
}

func (s *Store) Upsert(ctx context.Context, points []vectorstore.Point) error {
	if len(points) == 0 {
		return nil
	}
	pts := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		payload, err := qdrant.TryValueMap(vectorstore.Payload(p.Node))
		if err != nil {
			return fmt.Errorf("convert payload of %s: %w", p.Node.ID, err)
		}
		pts[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(p.Node.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: payload,
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         pts,
	})
	if err != nil {
		return fmt.Errorf("upsert points: %w", err)
	}
	return nil
}

func (s *Store) Search(ctx context.Context, vector []float32, filter model.MetadataFilter, topK int) ([]model.ScoredNode, error) {
	limit := uint64(topK)
	resp, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		Filter:         buildFilter(filter),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query points: %w", err)
	}

	out := make([]model.ScoredNode, 0, len(resp))
	for _, r := range resp {
		out = append(out, model.ScoredNode{
			Node:  vectorstore.NodeFromPayload(pointID(r.GetId()), convertPayload(r.GetPayload())),
			Score: float64(r.GetScore()),
		})
	}
	return out, nil
}

func (s *Store) List(ctx context.Context, limit int) ([]model.Node, error) {
	resp, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.collection,
		Limit:          qdrant.PtrOf(uint32(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("scroll points: %w", err)
	}
	out := make([]model.Node, 0, len(resp))
	for _, r := range resp {
		out = append(out, vectorstore.NodeFromPayload(pointID(r.GetId()), convertPayload(r.GetPayload())))
	}
	return out, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// buildFilter turns every filter entry into a keyword equality condition.
func buildFilter(filter model.MetadataFilter) *qdrant.Filter {
	if len(filter) == 0 {
		return nil
	}
	f := &qdrant.Filter{Must: make([]*qdrant.Condition, 0, len(filter))}
	for key, value := range filter {
		f.Must = append(f.Must, qdrant.NewMatchKeyword(key, value))
	}
	return f
}

func pointID(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	switch x := id.PointIdOptions.(type) {
	case *qdrant.PointId_Uuid:
		return x.Uuid
	case *qdrant.PointId_Num:
		return fmt.Sprintf("%d", x.Num)
	}
	return ""
}

func convertPayload(payload map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = convertValue(v)
	}
	return out
}

func convertValue(v *qdrant.Value) any {
	if v == nil {
		return nil
	}
	switch val := v.Kind.(type) {
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_ListValue:
		out := make([]any, len(val.ListValue.Values))
		for i, lv := range val.ListValue.Values {
			out[i] = convertValue(lv)
		}
		return out
	case *qdrant.Value_StructValue:
		out := make(map[string]any)
		for k, nv := range val.StructValue.Fields {
			out[k] = convertValue(nv)
		}
		return out
	}
	return nil
}
