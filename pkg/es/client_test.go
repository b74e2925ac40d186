package es

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finrag-go/internal/config"
	"finrag-go/internal/model"
)

func TestBuildKNNQuery(t *testing.T) {
	q := buildKNNQuery([]float32{0.1, 0.2}, model.MetadataFilter{model.MetaYear: "2024"}, 3)
	assert.Equal(t, 3, q["size"])

	knn := q["knn"].(map[string]any)
	assert.Equal(t, 3, knn["k"])
	assert.Equal(t, 100, knn["num_candidates"])
	terms := knn["filter"].([]map[string]any)
	require.Len(t, terms, 1)
	assert.Equal(t, map[string]any{"metadata.tahun": "2024"}, terms[0]["term"])

	q = buildKNNQuery([]float32{0.1}, nil, 20)
	knn = q["knn"].(map[string]any)
	assert.Equal(t, 200, knn["num_candidates"])
	assert.NotContains(t, knn, "filter")
}

// fakeES 模拟 ES 的最少接口，go-elasticsearch 需要 X-Elastic-Product 头。
func fakeES(t *testing.T, handle func(w http.ResponseWriter, r *http.Request)) *Store {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handle(w, r)
	}))
	t.Cleanup(server.Close)

	store, err := NewStore(config.ElasticsearchConfig{Addresses: server.URL, IndexName: "laporan"})
	require.NoError(t, err)
	return store
}

func TestSearch_DecodesHits(t *testing.T) {
	store := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/laporan/_search"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body, "knn")
		_, _ = w.Write([]byte(`{"hits":{"hits":[
			{"_score":0.9,"_source":{"node_id":"n1","doc_id":"d1","text":"laba","metadata":{"bank":"B"}}},
			{"_score":0.7,"_source":{"node_id":"n2","doc_id":"d1","text":"aset"}}
		]}}`))
	})

	got, err := store.Search(t.Context(), []float32{1, 0}, nil, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "n1", got[0].Node.ID)
	assert.Equal(t, "B", got[0].Node.Metadata[model.MetaBank])
	assert.Equal(t, 0.9, got[0].Score)
	assert.NotNil(t, got[1].Node.Metadata)
}

func TestExists(t *testing.T) {
	store := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	ok, err := store.Exists(t.Context())
	require.NoError(t, err)
	assert.False(t, ok)
}
