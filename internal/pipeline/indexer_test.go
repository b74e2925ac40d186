package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finrag-go/internal/config"
	"finrag-go/internal/model"
	"finrag-go/internal/repository"
	"finrag-go/pkg/database"
	"finrag-go/pkg/embedding/embeddingtest"
	"finrag-go/pkg/vectorstore/vectorstoretest"
)

type indexerFixture struct {
	indexer  *Indexer
	store    *vectorstoretest.Store
	embedder *embeddingtest.Embedder
	outDir   string
}

func newIndexerFixture(t *testing.T) *indexerFixture {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "index.db")})
	require.NoError(t, err)

	store := vectorstoretest.NewStore("laporan-keuangan")
	embedder := embeddingtest.New(32)
	out := t.TempDir()
	splitter := NewSentenceSplitter(config.ChunkingConfig{ChunkSize: 200, ChunkOverlap: 50})
	return &indexerFixture{
		indexer:  NewIndexer(splitter, embedder, store, repository.NewIndexRepository(db), out),
		store:    store,
		embedder: embedder,
		outDir:   out,
	}
}

func sampleDocs() []model.Document {
	mk := func(id, text, bank, year string) model.Document {
		return model.Document{ID: id, Text: text, Metadata: map[string]string{
			model.MetaBank: bank, model.MetaYear: year, model.MetaReportType: "Laporan Tidak Diketahui",
		}}
	}
	return []model.Document{
		mk("d1", "Q: Berapa laba bersih Bank Mandiri tahun 2024?\nA: Laba bersih mencapai Rp55 triliun.", "PT BANK MANDIRI (PERSERO) TBK", "2024"),
		mk("d2", "Q: Berapa total aset Bank BCA tahun 2023?\nA: Total aset mencapai Rp1.408 triliun.", "PT BANK CENTRAL ASIA TBK", "2023"),
		mk("d3", "Q: Berapa total aset Bank BCA tahun 2024?\nA: Total aset mencapai Rp1.449 triliun.", "PT BANK CENTRAL ASIA TBK", "2024"),
	}
}

func TestLoadIndex_NotReadyBeforeUpload(t *testing.T) {
	f := newIndexerFixture(t)
	_, err := f.indexer.LoadIndex(t.Context())
	assert.ErrorIs(t, err, ErrIndexNotReady)
}

func TestCreateIndex_ThenLoadAndSearch(t *testing.T) {
	f := newIndexerFixture(t)
	ctx := t.Context()

	idx, err := f.indexer.CreateIndex(ctx, sampleDocs())
	require.NoError(t, err)
	require.NotNil(t, idx)
	assert.Equal(t, 3, idx.Manifest.NodeCount)
	assert.Equal(t, 32, idx.Manifest.Dimensions)
	assert.Equal(t, 3, f.store.Len())
	// 所有节点一次批量向量化
	assert.Equal(t, 1, f.embedder.Calls)

	loaded, err := f.indexer.LoadIndex(ctx)
	require.NoError(t, err)

	filter := model.MetadataFilter{model.MetaBank: "PT BANK CENTRAL ASIA TBK", model.MetaYear: "2024"}
	hits, err := loaded.Search(ctx, "total aset Bank BCA tahun 2024", filter, 3)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "d3", hits[0].Node.DocumentID)

	hits, err = loaded.Search(ctx, "total aset", nil, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
	// 检索返回的节点元数据与父文档一致
	for _, h := range hits {
		for _, d := range sampleDocs() {
			if d.ID == h.Node.DocumentID {
				assert.Equal(t, d.Metadata[model.MetaBank], h.Node.Metadata[model.MetaBank])
			}
		}
	}
}

func TestIndexNodes_FallsBackToLocalRecords(t *testing.T) {
	f := newIndexerFixture(t)
	ctx := t.Context()
	_, err := f.indexer.CreateIndex(ctx, sampleDocs())
	require.NoError(t, err)

	idx, err := f.indexer.LoadIndex(ctx)
	require.NoError(t, err)
	f.store.ListErr = errors.New("qdrant unavailable")

	nodes, err := idx.Nodes(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, nodes, 2)

	nodes, err = idx.Nodes(ctx, 10)
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	for _, n := range nodes {
		assert.NotEmpty(t, n.Metadata[model.MetaBank])
		assert.NotEmpty(t, n.Text)
	}

	// 没有本地记录时直接返回向量库错误
	_, err = NewIndex(f.store, f.embedder, nil, idx.Manifest).Nodes(ctx, 10)
	assert.ErrorContains(t, err, "qdrant unavailable")
}

func TestCreateIndex_ReindexKeepsNodeCount(t *testing.T) {
	f := newIndexerFixture(t)
	ctx := t.Context()

	_, err := f.indexer.CreateIndex(ctx, sampleDocs())
	require.NoError(t, err)
	idx, err := f.indexer.CreateIndex(ctx, sampleDocs())
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Manifest.NodeCount)
	assert.Equal(t, 3, f.store.Len())
}

func TestCreateIndex_WritesAuditCSV(t *testing.T) {
	f := newIndexerFixture(t)
	_, err := f.indexer.CreateIndex(t.Context(), sampleDocs())
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(f.outDir, auditFileName))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.True(t, strings.HasPrefix(lines[0], "id,panjang_teks,teks,embedding"))
	assert.Contains(t, string(data), "PT BANK CENTRAL ASIA TBK")
}

func TestIndexNodes_Failures(t *testing.T) {
	f := newIndexerFixture(t)
	ctx := t.Context()

	_, err := f.indexer.IndexNodes(ctx, nil)
	assert.ErrorIs(t, err, ErrNoNodes)

	f.embedder.Err = errors.New("quota")
	idx, err := f.indexer.CreateIndex(ctx, sampleDocs())
	assert.Error(t, err)
	assert.Nil(t, idx)

	f.embedder.Err = nil
	f.store.UpsertErr = errors.New("qdrant down")
	idx, err = f.indexer.CreateIndex(ctx, sampleDocs())
	assert.Error(t, err)
	assert.Nil(t, idx)

	// 写入失败时不会留下 manifest
	f.store.UpsertErr = nil
	_, err = f.indexer.LoadIndex(ctx)
	assert.ErrorIs(t, err, ErrIndexNotReady)
}

func TestFormatVector(t *testing.T) {
	assert.Equal(t, "[0.5, -1, 2.25]", formatVector([]float32{0.5, -1, 2.25}))
	assert.Equal(t, "[]", formatVector(nil))
}
