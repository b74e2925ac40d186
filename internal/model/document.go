// Package model 定义了文档、节点与检索结果等数据结构。
package model

// 元数据键，与向量库 payload 字段保持一致。
const (
	MetaBank       = "bank"
	MetaYear       = "tahun"
	MetaReportType = "jenis_laporan"
	MetaPage       = "halaman"
	MetaSource     = "sumber"
	MetaQuestion   = "pertanyaan"
)

// Document 是由 PDF 页面抽取出的一条问答，创建后不再修改。
type Document struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
}

// Node 是从 Document 切分出的检索单元，元数据是父文档元数据的副本。
type Node struct {
	ID         string            `json:"id"`
	DocumentID string            `json:"document_id"`
	Text       string            `json:"text"`
	Metadata   map[string]string `json:"metadata"`
}

// ScoredNode 是一次相似度检索的命中结果。
type ScoredNode struct {
	Node  Node    `json:"node"`
	Score float64 `json:"score"`
}

// MetadataFilter 是检索时的等值过滤条件。
type MetadataFilter map[string]string

// CopyMetadata 返回元数据的浅拷贝。
func CopyMetadata(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
