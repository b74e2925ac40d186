// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"finrag-go/internal/model"
	"finrag-go/pkg/llm"
	"finrag-go/pkg/log"
)

var (
	// ErrNoJSON 表示模型回复中没有 JSON 块。
	ErrNoJSON = errors.New("no JSON object in analyzer response")
	// ErrInvalidAnalysis 表示 JSON 可以解析但内容不可用。
	ErrInvalidAnalysis = errors.New("invalid query analysis")

	jsonBlock = regexp.MustCompile(`(?s)\{.*\}`)
)

const analyzerPrompt = `Kamu adalah asisten cerdas yang menganalisis pertanyaan dari user untuk kebutuhan pencarian laporan keuangan bank.

Tugasmu:
1. Tentukan apakah pertanyaan ini membutuhkan 1 query atau perbandingan (2 query).
2. Jika 1 query: keluarkan satu query, dan metadata filter (bank, tahun, jenis laporan jika ada).
3. Jika 2 query: ekstrak dua pertanyaan dengan perbedaan tahun (atau bank), dan filter metadata masing-masing.
4. Jika pesan user bukan pertanyaan tentang data laporan keuangan (misalnya sapaan), keluarkan "num_queries": 0 dan isi "message" dengan balasan singkat.

Gunakan nama bank lengkap, misalnya "PT BANK CENTRAL ASIA TBK" atau "PT BANK MANDIRI (PERSERO) TBK".

Contoh output format JSON:
{
  "num_queries": 2,
  "query1": "Berapa EPS Bank BCA tahun 2023?",
  "query2": "Berapa EPS Bank BCA tahun 2024?",
  "filter1": {"bank": "PT BANK CENTRAL ASIA TBK", "tahun": "2023"},
  "filter2": {"bank": "PT BANK CENTRAL ASIA TBK", "tahun": "2024"}
}

Contoh untuk sapaan:
{"num_queries": 0, "message": "Halo! Silakan ajukan pertanyaan seputar laporan keuangan bank."}

Hanya balas dalam format JSON valid tanpa penjelasan atau komentar.
Pertanyaan user:
"%s"`

// QueryAnalyzer 把用户输入转换为 0~2 个带过滤条件的检索请求。
type QueryAnalyzer interface {
	Analyze(ctx context.Context, utterance string) (*model.QueryAnalysis, error)
}

type queryAnalyzer struct {
	llmClient llm.Client
}

// NewQueryAnalyzer 创建一个新的 QueryAnalyzer 实例。
func NewQueryAnalyzer(llmClient llm.Client) QueryAnalyzer {
	return &queryAnalyzer{llmClient: llmClient}
}

type rawAnalysis struct {
	NumQueries any            `json:"num_queries"`
	Query1     string         `json:"query1"`
	Query2     string         `json:"query2"`
	Filter1    map[string]any `json:"filter1"`
	Filter2    map[string]any `json:"filter2"`
	Message    string         `json:"message"`
}

// Analyze 调用模型一次，不重试。
func (a *queryAnalyzer) Analyze(ctx context.Context, utterance string) (*model.QueryAnalysis, error) {
	prompt := fmt.Sprintf(analyzerPrompt, utterance)
	reply, err := a.llmClient.Chat(ctx, []llm.Message{{Role: model.RoleUser, Content: prompt}}, nil)
	if err != nil {
		log.Errorf("[QueryAnalyzer] 调用 LLM 失败: %v", err)
		return nil, fmt.Errorf("analyze query: %w", err)
	}

	analysis, err := parseAnalysis(reply, utterance)
	if err != nil {
		log.Errorf("[QueryAnalyzer] 解析 LLM 输出失败: %v, response: %s", err, reply)
		return nil, err
	}
	log.Infof("[QueryAnalyzer] 分析结果: num_queries=%d, filter1=%v, filter2=%v", analysis.NumQueries, analysis.Filter1, analysis.Filter2)
	return analysis, nil
}

// parseAnalysis 取回复中第一个 "{" 到最后一个 "}" 之间的内容解析。
func parseAnalysis(reply, utterance string) (*model.QueryAnalysis, error) {
	block := jsonBlock.FindString(reply)
	if block == "" {
		return nil, ErrNoJSON
	}
	var raw rawAnalysis
	if err := json.Unmarshal([]byte(block), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAnalysis, err)
	}

	n, err := numQueries(raw.NumQueries)
	if err != nil {
		return nil, err
	}
	out := &model.QueryAnalysis{
		NumQueries: n,
		Query1:     strings.TrimSpace(raw.Query1),
		Query2:     strings.TrimSpace(raw.Query2),
		Filter1:    NormalizeFilter(raw.Filter1),
		Filter2:    NormalizeFilter(raw.Filter2),
		Message:    strings.TrimSpace(raw.Message),
	}
	switch out.NumQueries {
	case 1:
		if out.Query1 == "" {
			out.Query1 = utterance
		}
	case 2:
		if out.Query1 == "" {
			out.Query1 = utterance
		}
		// 第二个查询缺失时按单查询处理
		if out.Query2 == "" {
			out.NumQueries = 1
			out.Filter2 = nil
		}
	}
	return out, nil
}

func numQueries(v any) (int, error) {
	var n int
	switch x := v.(type) {
	case nil:
		n = 0
	case float64:
		n = int(x)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, fmt.Errorf("%w: num_queries %q", ErrInvalidAnalysis, x)
		}
		n = parsed
	default:
		return 0, fmt.Errorf("%w: num_queries of type %T", ErrInvalidAnalysis, v)
	}
	if n < 0 || n > 2 {
		return 0, fmt.Errorf("%w: num_queries %d", ErrInvalidAnalysis, n)
	}
	return n, nil
}

// filterKeys 是可用于过滤的元数据键；jenis_laporan 在抽取时恒为占位值，不参与过滤。
var filterKeys = map[string]bool{model.MetaBank: true, model.MetaYear: true}

// NormalizeFilter 把过滤值统一为大写字符串，丢弃空值和未知的键。
func NormalizeFilter(in map[string]any) model.MetadataFilter {
	if len(in) == 0 {
		return nil
	}
	out := make(model.MetadataFilter, len(in))
	for k, v := range in {
		k = strings.ToLower(strings.TrimSpace(k))
		if !filterKeys[k] {
			continue
		}
		var s string
		switch x := v.(type) {
		case nil:
			continue
		case string:
			s = x
		case float64:
			s = strconv.FormatFloat(x, 'f', -1, 64)
		case bool:
			s = strconv.FormatBool(x)
		default:
			continue
		}
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		out[k] = s
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
