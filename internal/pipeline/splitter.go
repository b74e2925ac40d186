// Package pipeline 定义了文档抽取、切分与入库的核心流程。
package pipeline

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"finrag-go/internal/config"
	"finrag-go/internal/model"
)

// nodeNamespace 用于生成确定性的节点 ID。
var nodeNamespace = uuid.MustParse("6f3b4f7e-2d1a-5c8b-9e0f-1a2b3c4d5e6f")

// SentenceSplitter 按句子边界把文档切成词数受限、首尾重叠的节点。
type SentenceSplitter struct {
	chunkSize int
	overlap   int
	sentence  *regexp.Regexp
}

// NewSentenceSplitter creates a splitter; chunk size and overlap are counted in words.
func NewSentenceSplitter(cfg config.ChunkingConfig) *SentenceSplitter {
	size := cfg.ChunkSize
	if size <= 0 {
		size = 200
	}
	overlap := cfg.ChunkOverlap
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 4
	}
	return &SentenceSplitter{
		chunkSize: size,
		overlap:   overlap,
		sentence:  regexp.MustCompile(`[.!?]+\s+`),
	}
}

// NodeID 返回文档第 ordinal 个切片的 ID，相同输入总是得到相同 ID。
func NodeID(documentID string, ordinal int) string {
	return uuid.NewSHA1(nodeNamespace, []byte(documentID+":"+strconv.Itoa(ordinal))).String()
}

// SplitDocuments 依次切分所有文档。
func (s *SentenceSplitter) SplitDocuments(docs []model.Document) []model.Node {
	var nodes []model.Node
	for _, doc := range docs {
		nodes = append(nodes, s.Split(doc)...)
	}
	return nodes
}

// Split 切分单个文档，每个节点都持有父文档元数据的完整副本。
func (s *SentenceSplitter) Split(doc model.Document) []model.Node {
	chunks := s.SplitText(doc.Text)
	nodes := make([]model.Node, 0, len(chunks))
	for i, text := range chunks {
		nodes = append(nodes, model.Node{
			ID:         NodeID(doc.ID, i),
			DocumentID: doc.ID,
			Text:       text,
			Metadata:   model.CopyMetadata(doc.Metadata),
		})
	}
	return nodes
}

// SplitText 返回切片文本。句子按顺序累积，超过 chunkSize 时输出一片，
// 并把不超过 overlap 个词的尾部句子带入下一片。
func (s *SentenceSplitter) SplitText(text string) []string {
	sentences := s.sentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var (
		chunks   []string
		cur      []string
		curWords int
		fresh    int // cur 中尚未输出过的句子数
	)
	for _, sent := range sentences {
		w := wordCount(sent)
		if curWords+w > s.chunkSize && fresh > 0 {
			chunks = append(chunks, strings.Join(cur, " "))
			cur, curWords = s.carry(cur)
			fresh = 0
			for len(cur) > 0 && curWords+w > s.chunkSize {
				curWords -= wordCount(cur[0])
				cur = cur[1:]
			}
		}
		cur = append(cur, sent)
		curWords += w
		fresh++
	}
	if fresh > 0 {
		chunks = append(chunks, strings.Join(cur, " "))
	}
	return chunks
}

// carry 取出总词数不超过 overlap 的尾部句子。
func (s *SentenceSplitter) carry(cur []string) ([]string, int) {
	words := 0
	start := len(cur)
	for start > 0 {
		w := wordCount(cur[start-1])
		if words+w > s.overlap {
			break
		}
		words += w
		start--
	}
	out := make([]string, len(cur)-start)
	copy(out, cur[start:])
	return out, words
}

// sentences 在"标点+空白"处切句，数字中的小数点不会断句；超长句子再按 chunkSize 个词切窗。
func (s *SentenceSplitter) sentences(text string) []string {
	var raw []string
	last := 0
	for _, loc := range s.sentence.FindAllStringIndex(text, -1) {
		raw = append(raw, text[last:loc[1]])
		last = loc[1]
	}
	if last < len(text) {
		raw = append(raw, text[last:])
	}

	var out []string
	for _, r := range raw {
		words := strings.Fields(r)
		if len(words) == 0 {
			continue
		}
		for start := 0; start < len(words); start += s.chunkSize {
			end := start + s.chunkSize
			if end > len(words) {
				end = len(words)
			}
			out = append(out, strings.Join(words[start:end], " "))
		}
	}
	return out
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
