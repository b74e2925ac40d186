package service

import (
	"context"
	"errors"
	"math"
	"unicode/utf8"

	"finrag-go/internal/model"
	"finrag-go/internal/pipeline"
	"finrag-go/pkg/log"
)

// 返回给用户的固定文本
const (
	MsgAnalyzeFailed = "Gagal menganalisis pertanyaan."
	MsgAskFinancial  = "Silakan ajukan pertanyaan seputar laporan keuangan."
)

// ErrNoRelevantDocuments 表示两组检索都没有命中。
var ErrNoRelevantDocuments = errors.New("no relevant documents")

const maxSnippetLen = 1000

// IndexLoader 返回已就绪的索引，未就绪时返回 pipeline.ErrIndexNotReady。
type IndexLoader interface {
	LoadIndex(ctx context.Context) (*pipeline.Index, error)
}

// ContextSnippet 是返回给客户端的检索上下文。
type ContextSnippet struct {
	Score    float64           `json:"score"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ChatResult 是一次 chat 请求的结果。
type ChatResult struct {
	Query        string              `json:"query"`
	Answer       string              `json:"jawaban"`
	ContextsUsed int                 `json:"jumlah_konteks_digunakan"`
	History      []model.ChatMessage `json:"history"`
	Contexts     []ContextSnippet    `json:"konteks"`
}

// ChatService 定义了聊天操作的接口。
type ChatService interface {
	Chat(ctx context.Context, query string, history []model.ChatMessage) (*ChatResult, error)
}

type chatService struct {
	indexes   IndexLoader
	analyzer  QueryAnalyzer
	retriever *Retriever
	generator *Generator
	topK      int
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(indexes IndexLoader, analyzer QueryAnalyzer, retriever *Retriever, generator *Generator, topK int) ChatService {
	return &chatService{
		indexes:   indexes,
		analyzer:  analyzer,
		retriever: retriever,
		generator: generator,
		topK:      topK,
	}
}

// Chat 依次执行 分析 → 检索 → 生成。
func (s *chatService) Chat(ctx context.Context, query string, history []model.ChatMessage) (*ChatResult, error) {
	if history == nil {
		history = []model.ChatMessage{}
	}
	idx, err := s.indexes.LoadIndex(ctx)
	if err != nil {
		return nil, err
	}

	// 1. 分析查询
	analysis, err := s.analyzer.Analyze(ctx, query)
	if err != nil {
		return s.direct(query, MsgAnalyzeFailed, history), nil
	}
	if analysis.NumQueries == 0 {
		msg := analysis.Message
		if msg == "" {
			msg = MsgAskFinancial
		}
		log.Infof("[ChatService] 非数据类问题，直接回复: %s", msg)
		return s.direct(query, msg, history), nil
	}

	// 2. 检索
	query2, filter2 := "", model.MetadataFilter(nil)
	if analysis.NumQueries == 2 {
		query2, filter2 = analysis.Query2, analysis.Filter2
	}
	nodes1, nodes2, err := s.retriever.SearchDual(ctx, idx, analysis.Query1, query2, analysis.Filter1, filter2, s.topK)
	if err != nil {
		return nil, err
	}
	if len(nodes1) == 0 && len(nodes2) == 0 {
		return nil, ErrNoRelevantDocuments
	}

	// 3. 生成
	contexts := CombineContexts(nodes1)
	if analysis.NumQueries == 2 {
		contexts += "\n" + CombineContexts(nodes2)
	}
	answer, newHistory, err := s.generator.Generate(ctx, query, contexts, history)
	if err != nil {
		log.Warnf("[ChatService] 生成失败，返回原历史: %v", err)
	}

	all := append(append([]model.ScoredNode{}, nodes1...), nodes2...)
	return &ChatResult{
		Query:        query,
		Answer:       answer,
		ContextsUsed: len(all),
		History:      newHistory,
		Contexts:     Snippets(all),
	}, nil
}

func (s *chatService) direct(query, msg string, history []model.ChatMessage) *ChatResult {
	return &ChatResult{
		Query:    query,
		Answer:   msg,
		History:  history,
		Contexts: []ContextSnippet{},
	}
}

// Snippets 把检索结果转换为响应结构：分数保留四位小数，文本截断到 1000 个字符。
func Snippets(nodes []model.ScoredNode) []ContextSnippet {
	out := make([]ContextSnippet, 0, len(nodes))
	for _, n := range nodes {
		text := n.Node.Text
		if utf8.RuneCountInString(text) > maxSnippetLen {
			text = string([]rune(text)[:maxSnippetLen]) + "..."
		}
		out = append(out, ContextSnippet{
			Score:    math.Round(n.Score*10000) / 10000,
			Text:     text,
			Metadata: n.Node.Metadata,
		})
	}
	return out
}
