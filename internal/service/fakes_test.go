package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"finrag-go/internal/config"
	"finrag-go/internal/model"
	"finrag-go/internal/pipeline"
	"finrag-go/internal/repository"
	"finrag-go/pkg/database"
	"finrag-go/pkg/embedding/embeddingtest"
	"finrag-go/pkg/llm"
	"finrag-go/pkg/vectorstore/vectorstoretest"
)

// scriptedLLM 以首条消息是否为 system 区分生成调用与分析调用。
type scriptedLLM struct {
	mu          sync.Mutex
	analysis    string
	analysisErr error
	answer      string
	answerErr   error
	calls       [][]llm.Message
}

func (s *scriptedLLM) Chat(_ context.Context, messages []llm.Message, _ *llm.GenerationParams) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, messages)
	if len(messages) > 0 && messages[0].Role == model.RoleSystem {
		return s.answer, s.answerErr
	}
	return s.analysis, s.analysisErr
}

func (s *scriptedLLM) generationCalls() [][]llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out [][]llm.Message
	for _, c := range s.calls {
		if len(c) > 0 && c[0].Role == model.RoleSystem {
			out = append(out, c)
		}
	}
	return out
}

type testIndex struct {
	indexer *pipeline.Indexer
	store   *vectorstoretest.Store
}

func newTestIndex(t *testing.T, docs []model.Document) *testIndex {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "index.db")})
	require.NoError(t, err)
	store := vectorstoretest.NewStore("laporan-keuangan")
	splitter := pipeline.NewSentenceSplitter(config.ChunkingConfig{ChunkSize: 200, ChunkOverlap: 50})
	indexer := pipeline.NewIndexer(splitter, embeddingtest.New(64), store, repository.NewIndexRepository(db), "")
	if len(docs) > 0 {
		_, err := indexer.CreateIndex(t.Context(), docs)
		require.NoError(t, err)
	}
	return &testIndex{indexer: indexer, store: store}
}

func bankDocs() []model.Document {
	mk := func(id, text, bank, year string) model.Document {
		return model.Document{ID: id, Text: text, Metadata: map[string]string{model.MetaBank: bank, model.MetaYear: year}}
	}
	return []model.Document{
		mk("bca-2023", "Q: Berapa EPS Bank BCA tahun 2023?\nA: EPS tahun 2023 sebesar Rp393.", "PT BANK CENTRAL ASIA TBK", "2023"),
		mk("bca-2024", "Q: Berapa EPS Bank BCA tahun 2024?\nA: EPS tahun 2024 sebesar Rp445.", "PT BANK CENTRAL ASIA TBK", "2024"),
		mk("mandiri-2024", "Q: Berapa laba bersih Bank Mandiri tahun 2024?\nA: Laba bersih Rp55 triliun.", "PT BANK MANDIRI (PERSERO) TBK", "2024"),
	}
}
