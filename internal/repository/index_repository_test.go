package repository

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finrag-go/internal/config"
	"finrag-go/internal/model"
	"finrag-go/pkg/database"
)

func newTestRepo(t *testing.T) IndexRepository {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "index.db")})
	require.NoError(t, err)
	return NewIndexRepository(db)
}

func TestGetManifest_NotFound(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.GetManifest(t.Context(), "laporan")
	assert.ErrorIs(t, err, ErrManifestNotFound)
}

func TestSaveNodes_UpsertsAndCounts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := t.Context()
	nodes := []model.Node{
		{ID: "n1", DocumentID: "d1", Text: "laba", Metadata: map[string]string{model.MetaBank: "B"}},
		{ID: "n2", DocumentID: "d1", Text: "aset", Metadata: map[string]string{}},
	}

	m := &model.IndexManifest{Collection: "laporan", EmbedModel: "voyage", Dimensions: 4}
	require.NoError(t, repo.SaveNodes(ctx, m, nodes))
	assert.Equal(t, 2, m.NodeCount)

	// 重复写入同一批节点不改变总数
	m2 := &model.IndexManifest{Collection: "laporan", EmbedModel: "voyage", Dimensions: 4}
	nodes[0].Text = "laba bersih"
	require.NoError(t, repo.SaveNodes(ctx, m2, nodes))
	assert.Equal(t, 2, m2.NodeCount)

	got, err := repo.GetManifest(ctx, "laporan")
	require.NoError(t, err)
	assert.Equal(t, 2, got.NodeCount)
	assert.Equal(t, 4, got.Dimensions)

	listed, err := repo.ListNodes(ctx, "laporan", 10)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	texts := []string{listed[0].Text, listed[1].Text}
	assert.Contains(t, texts, "laba bersih")
	for _, n := range listed {
		if n.ID == "n1" {
			assert.Equal(t, "B", n.Metadata[model.MetaBank])
		}
	}
}
