package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"finrag-go/internal/model"
	"finrag-go/pkg/log"
)

// CSV 列名
const (
	colQuestion = "Pertanyaan"
	colAnswer   = "Jawaban"
	colBank     = "Bank"
	colYear     = "Tahun"
)

// NodesFromCSV 把问答 CSV 的每一行转换为一个节点：文本为答案，问题、银行、年份作为元数据。
// 答案为空的行会被跳过。
func NodesFromCSV(r io.Reader, source string) ([]model.Node, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	if _, ok := cols[colAnswer]; !ok {
		return nil, fmt.Errorf("csv is missing column %q", colAnswer)
	}

	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var nodes []model.Node
	for row := 1; ; row++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", row, err)
		}
		answer := field(rec, colAnswer)
		if answer == "" {
			log.Warnf("[CSV] 第 %d 行没有答案，已跳过", row)
			continue
		}
		docID := uuid.NewSHA1(documentNamespace, []byte(fmt.Sprintf("csv:%s:%d", source, row))).String()
		nodes = append(nodes, model.Node{
			ID:         NodeID(docID, 0),
			DocumentID: docID,
			Text:       answer,
			Metadata: map[string]string{
				model.MetaQuestion: field(rec, colQuestion),
				model.MetaBank:     strings.ToUpper(field(rec, colBank)),
				model.MetaYear:     field(rec, colYear),
			},
		})
	}
	log.Infof("[CSV] 共读取 %d 组问答, file: %s", len(nodes), source)
	return nodes, nil
}
