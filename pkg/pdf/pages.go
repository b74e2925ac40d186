// Package pdf splits a PDF file into single-page PDF documents.
package pdf

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Splitter produces an in-memory single-page PDF for every page of a file.
type Splitter interface {
	PageCount(path string) (int, error)
	// Page returns page n (1-based) as a standalone PDF byte stream.
	Page(path string, n int) ([]byte, error)
}

type pdfcpuSplitter struct {
	conf *model.Configuration
}

// NewSplitter creates a Splitter backed by pdfcpu in relaxed validation mode.
func NewSplitter() Splitter {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &pdfcpuSplitter{conf: conf}
}

func (s *pdfcpuSplitter) PageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	n, err := api.PageCount(f, s.conf)
	if err != nil {
		return 0, fmt.Errorf("count pdf pages: %w", err)
	}
	return n, nil
}

func (s *pdfcpuSplitter) Page(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	if err := api.Trim(f, &buf, []string{strconv.Itoa(n)}, s.conf); err != nil {
		return nil, fmt.Errorf("extract page %d: %w", n, err)
	}
	return buf.Bytes(), nil
}
