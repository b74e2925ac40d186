package service

import (
	"context"
	"fmt"

	"finrag-go/internal/model"
	"finrag-go/pkg/log"
)

// Searcher 是一次带过滤的相似度检索，*pipeline.Index 实现了该接口。
type Searcher interface {
	Search(ctx context.Context, query string, filter model.MetadataFilter, topK int) ([]model.ScoredNode, error)
}

// Retriever 顺序执行至多两次互相独立的检索，不做合并。
type Retriever struct {
	defaultTopK int
}

// NewRetriever 创建 Retriever，topK 不大于 0 时使用 defaultTopK。
func NewRetriever(defaultTopK int) *Retriever {
	if defaultTopK <= 0 {
		defaultTopK = 3
	}
	return &Retriever{defaultTopK: defaultTopK}
}

// SearchDual 对 query1、query2 分别检索。空查询对应空结果；任一检索失败时两组结果都为空。
func (r *Retriever) SearchDual(ctx context.Context, idx Searcher, query1, query2 string, filter1, filter2 model.MetadataFilter, topK int) ([]model.ScoredNode, []model.ScoredNode, error) {
	if topK <= 0 {
		topK = r.defaultTopK
	}

	nodes1, err := r.search(ctx, idx, "query1", query1, filter1, topK)
	if err != nil {
		return []model.ScoredNode{}, []model.ScoredNode{}, err
	}
	nodes2, err := r.search(ctx, idx, "query2", query2, filter2, topK)
	if err != nil {
		return []model.ScoredNode{}, []model.ScoredNode{}, err
	}
	return nodes1, nodes2, nil
}

func (r *Retriever) search(ctx context.Context, idx Searcher, slot, query string, filter model.MetadataFilter, topK int) ([]model.ScoredNode, error) {
	if query == "" {
		log.Infof("[Retriever] %s 为空，跳过检索", slot)
		return []model.ScoredNode{}, nil
	}
	nodes, err := idx.Search(ctx, query, filter, topK)
	if err != nil {
		log.Errorf("[Retriever] %s 检索失败: %v", slot, err)
		return nil, fmt.Errorf("search %s: %w", slot, err)
	}
	log.Infof("[Retriever] %s 命中 %d 个节点, filter: %v", slot, len(nodes), filter)
	if nodes == nil {
		nodes = []model.ScoredNode{}
	}
	return nodes, nil
}
