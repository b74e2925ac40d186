// Package es 提供了基于 Elasticsearch dense_vector 的向量库实现。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"finrag-go/internal/config"
	"finrag-go/internal/model"
	"finrag-go/pkg/log"
	"finrag-go/pkg/vectorstore"
)

var _ vectorstore.Store = (*Store)(nil)

// Store 把一个 ES 索引当作向量集合使用。
type Store struct {
	client *elasticsearch.Client
	index  string
}

// esDocument 是节点在 ES 中的存储结构。
type esDocument struct {
	NodeID     string            `json:"node_id"`
	DocumentID string            `json:"doc_id"`
	Text       string            `json:"text"`
	Metadata   map[string]string `json:"metadata"`
	Vector     []float32         `json:"vector,omitempty"`
}

// NewStore 初始化 Elasticsearch 客户端
func NewStore(esCfg config.ElasticsearchConfig) (*Store, error) {
	cfg := elasticsearch.Config{
		Addresses: strings.Split(esCfg.Addresses, ","),
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return &Store{client: client, index: esCfg.IndexName}, nil
}

func (s *Store) Collection() string {
	return s.index
}

func (s *Store) Exists(ctx context.Context) (bool, error) {
	res, err := s.client.Indices.Exists([]string{s.index}, s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("check index: %w", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	}
	return false, fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
}

// EnsureCollection 检查索引是否存在，如果不存在则创建它
func (s *Store) EnsureCollection(ctx context.Context, dimensions int) error {
	exists, err := s.Exists(ctx)
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	if exists {
		log.Infof("索引 '%s' 已存在", s.index)
		return nil
	}

	// metadata 下的字符串字段一律映射为 keyword，用于等值过滤
	// 文本使用内置 indonesian 分析器
	mapping := fmt.Sprintf(`{
		"mappings": {
			"dynamic_templates": [
				{
					"metadata_keywords": {
						"path_match": "metadata.*",
						"match_mapping_type": "string",
						"mapping": { "type": "keyword" }
					}
				}
			],
			"properties": {
				"node_id": { "type": "keyword" },
				"doc_id": { "type": "keyword" },
				"text": {
					"type": "text",
					"analyzer": "indonesian"
				},
				"metadata": { "type": "object" },
				"vector": {
					"type": "dense_vector",
					"dims": %d,
					"index": true,
					"similarity": "cosine"
				}
			}
		}
	}`, dimensions)

	res, err := s.client.Indices.Create(
		s.index,
		s.client.Indices.Create.WithContext(ctx),
		s.client.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", s.index, err)
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", s.index, res.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}

	log.Infof("索引 '%s' 创建成功", s.index)
	return nil
}

// Upsert 通过 bulk 接口批量写入节点，节点 ID 作为文档 ID。
func (s *Store) Upsert(ctx context.Context, points []vectorstore.Point) error {
	if len(points) == 0 {
		return nil
	}
	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, p := range points {
		action := map[string]any{"index": map[string]any{"_index": s.index, "_id": p.Node.ID}}
		if err := enc.Encode(action); err != nil {
			return err
		}
		doc := esDocument{
			NodeID:     p.Node.ID,
			DocumentID: p.Node.DocumentID,
			Text:       p.Node.Text,
			Metadata:   p.Node.Metadata,
			Vector:     p.Vector,
		}
		if err := enc.Encode(doc); err != nil {
			return err
		}
	}

	req := esapi.BulkRequest{
		Index:   s.index,
		Body:    &body,
		Refresh: "true",
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("bulk index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("批量索引到 Elasticsearch 出错: %s", res.String())
		return errors.New("failed to bulk index nodes")
	}

	var bulkResp struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("decode bulk response: %w", err)
	}
	if bulkResp.Errors {
		return errors.New("bulk response contains item errors")
	}
	return nil
}

func (s *Store) Search(ctx context.Context, vector []float32, filter model.MetadataFilter, topK int) ([]model.ScoredNode, error) {
	body, err := json.Marshal(buildKNNQuery(vector, filter, topK))
	if err != nil {
		return nil, fmt.Errorf("failed to encode es query: %w", err)
	}
	hits, err := s.search(ctx, body)
	if err != nil {
		return nil, err
	}
	out := make([]model.ScoredNode, 0, len(hits))
	for _, h := range hits {
		out = append(out, model.ScoredNode{Node: h.Source.node(), Score: h.Score})
	}
	return out, nil
}

func (s *Store) List(ctx context.Context, limit int) ([]model.Node, error) {
	body, err := json.Marshal(map[string]any{
		"query":   map[string]any{"match_all": map[string]any{}},
		"size":    limit,
		"_source": map[string]any{"excludes": []string{"vector"}},
	})
	if err != nil {
		return nil, err
	}
	hits, err := s.search(ctx, body)
	if err != nil {
		return nil, err
	}
	out := make([]model.Node, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.Source.node())
	}
	return out, nil
}

func (s *Store) Close() error {
	return nil
}

type hit struct {
	Source esDocument `json:"_source"`
	Score  float64    `json:"_score"`
}

func (s *Store) search(ctx context.Context, body []byte) ([]hit, error) {
	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		log.Errorf("[ESStore] 向 Elasticsearch 发送搜索请求失败: %v", err)
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		bodyBytes, _ := io.ReadAll(res.Body)
		log.Errorf("[ESStore] Elasticsearch 返回错误, status: %s, body: %s", res.Status(), string(bodyBytes))
		return nil, fmt.Errorf("elasticsearch returned an error: %s", res.Status())
	}

	var esResponse struct {
		Hits struct {
			Hits []hit `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("failed to decode es response: %w", err)
	}
	return esResponse.Hits.Hits, nil
}

func (d esDocument) node() model.Node {
	md := d.Metadata
	if md == nil {
		md = map[string]string{}
	}
	return model.Node{ID: d.NodeID, DocumentID: d.DocumentID, Text: d.Text, Metadata: md}
}

// buildKNNQuery 构建带 term 过滤的 kNN 查询
func buildKNNQuery(vector []float32, filter model.MetadataFilter, topK int) map[string]any {
	numCandidates := topK * 10
	if numCandidates < 100 {
		numCandidates = 100
	}
	knn := map[string]any{
		"field":          "vector",
		"query_vector":   vector,
		"k":              topK,
		"num_candidates": numCandidates,
	}
	if len(filter) > 0 {
		terms := make([]map[string]any, 0, len(filter))
		for key, value := range filter {
			terms = append(terms, map[string]any{"term": map[string]any{"metadata." + key: value}})
		}
		knn["filter"] = terms
	}
	return map[string]any{
		"knn":     knn,
		"size":    topK,
		"_source": map[string]any{"excludes": []string{"vector"}},
	}
}
