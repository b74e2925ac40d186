package pipeline

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"finrag-go/internal/model"
	"finrag-go/internal/repository"
	"finrag-go/pkg/embedding"
	"finrag-go/pkg/log"
	"finrag-go/pkg/vectorstore"
)

var (
	// ErrIndexNotReady 表示尚未上传任何文档，或向量集合已不存在。
	ErrIndexNotReady = errors.New("index not ready")
	// ErrNoNodes 表示没有可入库的节点。
	ErrNoNodes = errors.New("no nodes to index")
)

const auditFileName = "chunk_embeddings.csv"

// Index 是一个已就绪的向量索引句柄。
type Index struct {
	store    vectorstore.Store
	embedder embedding.Client
	records  repository.IndexRepository
	Manifest *model.IndexManifest
}

// NewIndex wraps a store that is known to be ready. records may be nil.
func NewIndex(store vectorstore.Store, embedder embedding.Client, records repository.IndexRepository, manifest *model.IndexManifest) *Index {
	return &Index{store: store, embedder: embedder, records: records, Manifest: manifest}
}

// Search 向量化查询文本并在索引中执行带过滤的相似度检索，结果按分数降序。
func (i *Index) Search(ctx context.Context, query string, filter model.MetadataFilter, topK int) ([]model.ScoredNode, error) {
	vector, err := i.embedder.CreateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to create query embedding: %w", err)
	}
	return i.store.Search(ctx, vector, filter, topK)
}

// Nodes 返回索引中最多 limit 个节点。向量库不可用时回退到本地节点记录。
func (i *Index) Nodes(ctx context.Context, limit int) ([]model.Node, error) {
	nodes, err := i.store.List(ctx, limit)
	if err == nil || i.records == nil {
		return nodes, err
	}
	log.Warnf("[Index] 从向量库列出节点失败，改用本地记录: %v", err)
	nodes, dbErr := i.records.ListNodes(ctx, i.Manifest.Collection, limit)
	if dbErr != nil {
		return nil, fmt.Errorf("list nodes: %w (local records: %v)", err, dbErr)
	}
	return nodes, nil
}

// Indexer 负责切分、向量化并写入向量库，同时记录本地索引元数据。
type Indexer struct {
	splitter  *SentenceSplitter
	embedder  embedding.Client
	store     vectorstore.Store
	repo      repository.IndexRepository
	outputDir string
}

// NewIndexer 创建一个新的 Indexer 实例。
func NewIndexer(splitter *SentenceSplitter, embedder embedding.Client, store vectorstore.Store, repo repository.IndexRepository, outputDir string) *Indexer {
	return &Indexer{
		splitter:  splitter,
		embedder:  embedder,
		store:     store,
		repo:      repo,
		outputDir: outputDir,
	}
}

// CreateIndex 切分文档后入库。
func (x *Indexer) CreateIndex(ctx context.Context, docs []model.Document) (*Index, error) {
	log.Infof("[Indexer] 开始切分 %d 个文档", len(docs))
	nodes := x.splitter.SplitDocuments(docs)
	log.Infof("[Indexer] 切分完成, 共生成 %d 个节点", len(nodes))
	return x.IndexNodes(ctx, nodes)
}

// IndexNodes 把已构建好的节点入库，任一步失败都返回 nil 索引。
func (x *Indexer) IndexNodes(ctx context.Context, nodes []model.Node) (*Index, error) {
	if len(nodes) == 0 {
		return nil, ErrNoNodes
	}

	texts := make([]string, len(nodes))
	for i, n := range nodes {
		texts[i] = n.Text
	}
	log.Info("[Indexer] 步骤1: 批量向量化节点文本")
	vectors, err := x.embedder.CreateEmbeddings(ctx, texts, embedding.InputDocument)
	if err != nil {
		log.Errorf("[Indexer] 向量化失败: %v", err)
		return nil, fmt.Errorf("embed nodes: %w", err)
	}
	if len(vectors) != len(nodes) {
		return nil, fmt.Errorf("embed nodes: got %d vectors for %d nodes", len(vectors), len(nodes))
	}
	dims := len(vectors[0])

	log.Infof("[Indexer] 步骤2: 写入向量集合 '%s', 维度: %d", x.store.Collection(), dims)
	if err := x.store.EnsureCollection(ctx, dims); err != nil {
		log.Errorf("[Indexer] 创建向量集合失败: %v", err)
		return nil, fmt.Errorf("ensure collection: %w", err)
	}
	points := make([]vectorstore.Point, len(nodes))
	for i := range nodes {
		points[i] = vectorstore.Point{Node: nodes[i], Vector: vectors[i]}
	}
	if err := x.store.Upsert(ctx, points); err != nil {
		log.Errorf("[Indexer] 写入向量失败: %v", err)
		return nil, fmt.Errorf("upsert points: %w", err)
	}

	log.Info("[Indexer] 步骤3: 保存本地索引元数据")
	manifest := &model.IndexManifest{
		Collection: x.store.Collection(),
		EmbedModel: x.embedder.Model(),
		Dimensions: dims,
	}
	if err := x.repo.SaveNodes(ctx, manifest, nodes); err != nil {
		log.Errorf("[Indexer] 保存索引元数据失败: %v", err)
		return nil, fmt.Errorf("persist index metadata: %w", err)
	}

	if err := x.writeAudit(nodes, vectors); err != nil {
		log.Warnf("[Indexer] 写入审计 CSV 失败: %v", err)
	}

	log.Infof("[Indexer] 入库完成, 本次 %d 个节点, 集合共 %d 个节点", len(nodes), manifest.NodeCount)
	return NewIndex(x.store, x.embedder, x.repo, manifest), nil
}

// LoadIndex 返回已持久化的索引；本地没有 manifest 或集合不存在时返回 ErrIndexNotReady。
func (x *Indexer) LoadIndex(ctx context.Context) (*Index, error) {
	manifest, err := x.repo.GetManifest(ctx, x.store.Collection())
	if errors.Is(err, repository.ErrManifestNotFound) {
		return nil, ErrIndexNotReady
	}
	if err != nil {
		log.Errorf("[Indexer] 读取索引元数据失败: %v", err)
		return nil, fmt.Errorf("load manifest: %w", err)
	}

	exists, err := x.store.Exists(ctx)
	if err != nil {
		log.Errorf("[Indexer] 检查向量集合失败: %v", err)
		return nil, fmt.Errorf("check collection: %w", err)
	}
	if !exists {
		log.Warnf("[Indexer] 本地有索引记录但集合 '%s' 不存在", x.store.Collection())
		return nil, ErrIndexNotReady
	}
	return NewIndex(x.store, x.embedder, x.repo, manifest), nil
}

func (x *Indexer) writeAudit(nodes []model.Node, vectors [][]float32) error {
	if x.outputDir == "" {
		return nil
	}
	if err := os.MkdirAll(x.outputDir, os.ModePerm); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(x.outputDir, auditFileName))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	_ = w.Write([]string{"id", "panjang_teks", "teks", "embedding", model.MetaBank, model.MetaYear, model.MetaReportType})
	for i, n := range nodes {
		_ = w.Write([]string{
			n.ID,
			strconv.Itoa(utf8.RuneCountInString(n.Text)),
			n.Text,
			formatVector(vectors[i]),
			n.Metadata[model.MetaBank],
			n.Metadata[model.MetaYear],
			n.Metadata[model.MetaReportType],
		})
	}
	w.Flush()
	return w.Error()
}

// formatVector 输出 "[v1, v2, ...]"
func formatVector(v []float32) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = strconv.FormatFloat(float64(f), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
