package service

import (
	"context"

	"finrag-go/internal/model"
	"finrag-go/pkg/log"
)

// SearchRequest 是不经过生成的双路检索请求。
type SearchRequest struct {
	Query1  string
	Query2  string
	Filter1 model.MetadataFilter
	Filter2 model.MetadataFilter
	TopK    int
}

// SearchResult 并列返回两组检索结果。
type SearchResult struct {
	Query1 string           `json:"query1"`
	Query2 string           `json:"query2,omitempty"`
	Found  int              `json:"jumlah_dokumen_ditemukan"`
	Hits1  []ContextSnippet `json:"hasil1"`
	Hits2  []ContextSnippet `json:"hasil2"`
}

// SearchService 接口定义了搜索操作。
type SearchService interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResult, error)
	// Nodes 列出索引中的节点及其元数据。
	Nodes(ctx context.Context, limit int) ([]model.Node, error)
}

type searchService struct {
	indexes   IndexLoader
	retriever *Retriever
}

// NewSearchService 创建一个新的 SearchService 实例。
func NewSearchService(indexes IndexLoader, retriever *Retriever) SearchService {
	return &searchService{indexes: indexes, retriever: retriever}
}

func (s *searchService) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	idx, err := s.indexes.LoadIndex(ctx)
	if err != nil {
		return nil, err
	}
	log.Infof("[SearchService] 开始检索, query1: '%s', query2: '%s', topK: %d", req.Query1, req.Query2, req.TopK)
	nodes1, nodes2, err := s.retriever.SearchDual(ctx, idx, req.Query1, req.Query2, req.Filter1, req.Filter2, req.TopK)
	if err != nil {
		return nil, err
	}
	return &SearchResult{
		Query1: req.Query1,
		Query2: req.Query2,
		Found:  len(nodes1) + len(nodes2),
		Hits1:  Snippets(nodes1),
		Hits2:  Snippets(nodes2),
	}, nil
}

func (s *searchService) Nodes(ctx context.Context, limit int) ([]model.Node, error) {
	idx, err := s.indexes.LoadIndex(ctx)
	if err != nil {
		return nil, err
	}
	nodes, err := idx.Nodes(ctx, limit)
	if err != nil {
		return nil, err
	}
	if nodes == nil {
		nodes = []model.Node{}
	}
	return nodes, nil
}
