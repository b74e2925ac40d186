package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finrag-go/internal/metadata"
	"finrag-go/internal/model"
)

type fakePages struct {
	count    int
	failOn   int
	countErr error
}

func (f *fakePages) PageCount(string) (int, error) {
	return f.count, f.countErr
}

func (f *fakePages) Page(_ string, n int) ([]byte, error) {
	if n == f.failOn {
		return nil, errors.New("broken page")
	}
	return []byte{byte(n)}, nil
}

type fakeGemini struct {
	replies map[byte]string
	prompts []string
}

func (f *fakeGemini) GenerateWithFile(_ context.Context, prompt string, data []byte, mimeType string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if mimeType != pdfMimeType {
		return "", errors.New("unexpected mime type")
	}
	reply, ok := f.replies[data[0]]
	if !ok {
		return "", errors.New("model unavailable")
	}
	return reply, nil
}

func TestParseQA(t *testing.T) {
	text := `Berikut hasilnya:

Q: Berapa total aset PT Bank Mandiri tahun 2024?
A: Total aset mencapai Rp2.427 triliun.

Q: Pertanyaan tanpa jawaban

Q: Bagaimana tren laba?
A: Laba naik 15%.
Berlanjut di baris berikutnya.

Q:
A: jawaban tanpa pertanyaan`

	pairs := ParseQA(text)
	require.Len(t, pairs, 2)
	assert.Equal(t, "Berapa total aset PT Bank Mandiri tahun 2024?", pairs[0].Question)
	assert.Equal(t, "Total aset mencapai Rp2.427 triliun.", pairs[0].Answer)
	assert.Equal(t, "Laba naik 15%.\nBerlanjut di baris berikutnya.", pairs[1].Answer)
}

func TestParseQA_MarkerShapes(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []QAPair
	}{
		{
			name: "inline pairs",
			text: "Q: Berapa laba? A: Rp1. Q: Berapa aset? A: Rp2.",
			want: []QAPair{{"Berapa laba?", "Rp1."}, {"Berapa aset?", "Rp2."}},
		},
		{
			name: "markdown bold",
			text: "**Q:** Berapa laba?\n**A:** Rp1 **triliun**.\n\n**Q:** Berapa aset?\n**A:** Rp2.",
			want: []QAPair{{"Berapa laba?", "Rp1 triliun."}, {"Berapa aset?", "Rp2."}},
		},
		{
			name: "numbered list",
			text: "1. Q: Berapa laba?\nA: Rp1.\n2. Q: Berapa aset?\nA: Rp2.",
			want: []QAPair{{"Berapa laba?", "Rp1."}, {"Berapa aset?", "Rp2."}},
		},
		{
			name: "bullets",
			text: "- Q: Berapa laba?\n  A: Rp1.\n- Q: Berapa aset?\n  A: Rp2.",
			want: []QAPair{{"Berapa laba?", "Rp1."}, {"Berapa aset?", "Rp2."}},
		},
		{
			name: "FAQ heading is not a marker",
			text: "FAQ: ringkasan\nQ: Berapa laba?\nA: Rp1.",
			want: []QAPair{{"Berapa laba?", "Rp1."}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseQA(tt.text))
		})
	}
}

func TestParseQA_NoPairs(t *testing.T) {
	assert.Empty(t, ParseQA("Halaman ini kosong."))
}

func TestBuild_TagsMetadataAndSkipsFailedPages(t *testing.T) {
	out := t.TempDir()
	pages := &fakePages{count: 3, failOn: 2}
	model1 := &fakeGemini{replies: map[byte]string{
		1: "Q: Berapa laba bersih Bank Mandiri tahun 2024?\nA: Rp55 triliun.",
		3: "tidak ada data",
	}}
	b := NewBuilder(pages, model1, out)

	docs, err := b.Build(t.Context(), "/tmp/laporan-mandiri.pdf")
	require.NoError(t, err)
	require.Len(t, docs, 1)

	d := docs[0]
	assert.Equal(t, "Q: Berapa laba bersih Bank Mandiri tahun 2024?\nA: Rp55 triliun.", d.Text)
	assert.Equal(t, "PT BANK MANDIRI (PERSERO) TBK", d.Metadata[model.MetaBank])
	assert.Equal(t, "2024", d.Metadata[model.MetaYear])
	assert.Equal(t, metadata.UnknownReportType, d.Metadata[model.MetaReportType])
	assert.Equal(t, "1", d.Metadata[model.MetaPage])
	assert.Equal(t, "laporan-mandiri.pdf", d.Metadata[model.MetaSource])
	assert.NotEmpty(t, d.ID)

	// 第 2 页读取失败，不会调用模型
	assert.Len(t, model1.prompts, 2)
	assert.FileExists(t, filepath.Join(out, "debug", "laporan-mandiri_page_1.txt"))
	assert.FileExists(t, filepath.Join(out, "debug", "laporan-mandiri_page_3.txt"))
	assert.FileExists(t, filepath.Join(out, "laporan-mandiri_qa.csv"))
}

func TestBuild_NoPairsReturnsEmpty(t *testing.T) {
	out := t.TempDir()
	b := NewBuilder(&fakePages{count: 1}, &fakeGemini{replies: map[byte]string{1: "kosong"}}, out)
	docs, err := b.Build(t.Context(), "a.pdf")
	require.NoError(t, err)
	assert.Empty(t, docs)

	_, statErr := os.Stat(filepath.Join(out, "a_qa.csv"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestBuild_DeterministicDocumentIDs(t *testing.T) {
	reply := map[byte]string{1: "Q: a?\nA: b.\n\nQ: c?\nA: d."}
	b := NewBuilder(&fakePages{count: 1}, &fakeGemini{replies: reply}, "")
	first, err := b.Build(t.Context(), "x.pdf")
	require.NoError(t, err)
	second, err := b.Build(t.Context(), "x.pdf")
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.NotEqual(t, first[0].ID, first[1].ID)
}

func TestBuild_PageCountError(t *testing.T) {
	b := NewBuilder(&fakePages{countErr: errors.New("not a pdf")}, &fakeGemini{}, "")
	_, err := b.Build(t.Context(), "x.pdf")
	assert.Error(t, err)
}
