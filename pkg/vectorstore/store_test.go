package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"finrag-go/internal/model"
)

func TestPayloadRoundTrip(t *testing.T) {
	n := model.Node{
		ID:         "id-1",
		DocumentID: "doc-1",
		Text:       "Q: Berapa EPS?\nA: Rp500",
		Metadata:   map[string]string{model.MetaBank: "PT BANK X", model.MetaYear: "2023"},
	}
	payload := Payload(n)
	assert.Equal(t, n.Text, payload[PayloadText])
	assert.Equal(t, "PT BANK X", payload[model.MetaBank])

	got := NodeFromPayload("id-1", payload)
	assert.Equal(t, n, got)
}

func TestNodeFromPayload_StringifiesScalars(t *testing.T) {
	got := NodeFromPayload("id", map[string]any{"halaman": int64(3), "x": nil, PayloadText: "t"})
	assert.Equal(t, "3", got.Metadata["halaman"])
	assert.NotContains(t, got.Metadata, "x")
	assert.Equal(t, "t", got.Text)
}
