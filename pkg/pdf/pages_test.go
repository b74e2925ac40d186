package pdf

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = "testdata/three_pages.pdf"

func TestPageCount(t *testing.T) {
	n, err := NewSplitter().PageCount(fixture)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestPage_ReturnsSinglePagePDF(t *testing.T) {
	s := NewSplitter()
	conf := s.(*pdfcpuSplitter).conf
	for page := 1; page <= 3; page++ {
		data, err := s.Page(fixture, page)
		require.NoError(t, err)
		require.True(t, bytes.HasPrefix(data, []byte("%PDF-")), "page %d", page)

		n, err := api.PageCount(bytes.NewReader(data), conf)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "page %d", page)
	}
}

func TestPage_RoundTripThroughFile(t *testing.T) {
	s := NewSplitter()
	data, err := s.Page(fixture, 2)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "page2.pdf")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	n, err := s.PageCount(path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPageCount_Errors(t *testing.T) {
	s := NewSplitter()
	_, err := s.PageCount(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)

	notPDF := filepath.Join(t.TempDir(), "notes.pdf")
	require.NoError(t, os.WriteFile(notPDF, []byte("bukan pdf"), 0o644))
	_, err = s.PageCount(notPDF)
	assert.Error(t, err)

	_, err = s.Page(filepath.Join(t.TempDir(), "missing.pdf"), 1)
	assert.Error(t, err)
}
