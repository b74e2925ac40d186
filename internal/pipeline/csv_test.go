package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finrag-go/internal/model"
)

func TestNodesFromCSV(t *testing.T) {
	data := "\ufeffPertanyaan,Jawaban,Bank,Tahun\n" +
		"Berapa EPS?,Rp450 per saham,pt bank central asia tbk,2024\n" +
		"Kosong?,,x,2023\n" +
		"\"Laba, bersih?\",\"Rp55 triliun, naik 10%\",PT Bank Mandiri (Persero) Tbk,2023\n"

	nodes, err := NodesFromCSV(strings.NewReader(data), "qa.csv")
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	assert.Equal(t, "Rp450 per saham", nodes[0].Text)
	assert.Equal(t, "Berapa EPS?", nodes[0].Metadata[model.MetaQuestion])
	assert.Equal(t, "PT BANK CENTRAL ASIA TBK", nodes[0].Metadata[model.MetaBank])
	assert.Equal(t, "2024", nodes[0].Metadata[model.MetaYear])

	assert.Equal(t, "Rp55 triliun, naik 10%", nodes[1].Text)
	assert.Equal(t, "PT BANK MANDIRI (PERSERO) TBK", nodes[1].Metadata[model.MetaBank])
	assert.NotEqual(t, nodes[0].ID, nodes[1].ID)

	again, err := NodesFromCSV(strings.NewReader(data), "qa.csv")
	require.NoError(t, err)
	assert.Equal(t, nodes[0].ID, again[0].ID)
}

func TestNodesFromCSV_MissingAnswerColumn(t *testing.T) {
	_, err := NodesFromCSV(strings.NewReader("Pertanyaan,Bank\na,b\n"), "x.csv")
	assert.Error(t, err)
}
