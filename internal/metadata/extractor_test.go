package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name     string
		question string
		bank     string
		year     string
	}{
		{
			name:     "mandiri full legal name",
			question: "Berapa EPS PT Bank Mandiri (Persero) Tbk tahun 2023?",
			bank:     "PT BANK MANDIRI (PERSERO) TBK",
			year:     "2023",
		},
		{
			name:     "mandiri alias",
			question: "Berapa laba bersih Bank Mandiri pada tahun 2024?",
			bank:     "PT BANK MANDIRI (PERSERO) TBK",
			year:     "2024",
		},
		{
			name:     "bca alias",
			question: "Berapa total aset Bank BCA tahun 2022?",
			bank:     "PT BANK CENTRAL ASIA TBK",
			year:     "2022",
		},
		{
			name:     "central asia alias",
			question: "Apa strategi PT Bank Central Asia Tbk, menurut direksi?",
			bank:     "PT BANK CENTRAL ASIA TBK",
			year:     "0000",
		},
		{
			name:     "other bank upper-cased verbatim",
			question: "Berapa NPL PT Bank Rakyat Indonesia (Persero) Tbk tahun 2021.",
			bank:     "PT BANK RAKYAT INDONESIA (PERSERO) TBK",
			year:     "2021",
		},
		{
			name:     "bank at end of string resolves alias",
			question: "Siapa direktur utama Bank Negara Indonesia",
			bank:     "PT BANK NEGARA INDONESIA (PERSERO) TBK",
			year:     "0000",
		},
		{
			name:     "PT. prefix normalised",
			question: "Berapa laba PT. Bank Negara Indonesia (Persero) Tbk tahun 2023?",
			bank:     "PT BANK NEGARA INDONESIA (PERSERO) TBK",
			year:     "2023",
		},
		{
			name:     "PT. prefix on unknown bank",
			question: "Berapa aset PT. Bank Jago Tbk tahun 2024?",
			bank:     "PT BANK JAGO TBK",
			year:     "2024",
		},
		{
			name:     "other entity containing mandiri",
			question: "Berapa aset Bank Syariah Mandiri tahun 2020?",
			bank:     "BANK SYARIAH MANDIRI",
			year:     "2020",
		},
		{
			name:     "mandiri subsidiary",
			question: "Berapa laba Bank Mandiri Taspen pada tahun 2022?",
			bank:     "BANK MANDIRI TASPEN",
			year:     "2022",
		},
		{
			name:     "bca subsidiary",
			question: "Berapa laba Bank BCA Syariah tahun 2024?",
			bank:     "BANK BCA SYARIAH",
			year:     "2024",
		},
		{
			name:     "no bank no year",
			question: "Bagaimana tren laba bersih perusahaan?",
			bank:     UnknownBank,
			year:     UnknownYear,
		},
		{
			name:     "year without tahun keyword is ignored",
			question: "Total aset 2023 naik berapa persen?",
			bank:     UnknownBank,
			year:     UnknownYear,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bank, year := Extract(tt.question)
			assert.Equal(t, tt.bank, bank)
			assert.Equal(t, tt.year, year)
		})
	}
}

func TestExtractBank_WordBoundary(t *testing.T) {
	assert.Equal(t, UnknownBank, ExtractBank("Berapa gaji bankir tahun 2020?"))
}

func TestDistinguishing(t *testing.T) {
	assert.Equal(t, "MANDIRI", distinguishing("PT BANK MANDIRI (PERSERO) TBK"))
	assert.Equal(t, "SYARIAH MANDIRI", distinguishing("BANK SYARIAH MANDIRI"))
	assert.Equal(t, "", distinguishing("PT BANK TBK"))
}
