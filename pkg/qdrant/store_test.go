package qdrant

import (
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finrag-go/internal/model"
)

func TestBuildFilter(t *testing.T) {
	assert.Nil(t, buildFilter(nil))
	assert.Nil(t, buildFilter(model.MetadataFilter{}))

	f := buildFilter(model.MetadataFilter{model.MetaBank: "PT BANK CENTRAL ASIA TBK"})
	require.NotNil(t, f)
	require.Len(t, f.Must, 1)
	field := f.Must[0].GetField()
	require.NotNil(t, field)
	assert.Equal(t, model.MetaBank, field.GetKey())
	assert.Equal(t, "PT BANK CENTRAL ASIA TBK", field.GetMatch().GetKeyword())
}

func TestPointID(t *testing.T) {
	assert.Equal(t, "", pointID(nil))
	assert.Equal(t, "7", pointID(qdrant.NewIDNum(7)))
	assert.Equal(t, "0b6b0c8e-6a9f-4c4e-9a5e-2b1f0d3c4a5b", pointID(qdrant.NewIDUUID("0b6b0c8e-6a9f-4c4e-9a5e-2b1f0d3c4a5b")))
}

func TestConvertPayload(t *testing.T) {
	payload := qdrant.NewValueMap(map[string]any{
		"text":    "isi",
		"halaman": 4,
		"flag":    true,
	})
	got := convertPayload(payload)
	assert.Equal(t, "isi", got["text"])
	assert.Equal(t, int64(4), got["halaman"])
	assert.Equal(t, true, got["flag"])
}
