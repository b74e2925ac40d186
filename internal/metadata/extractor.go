// Package metadata 用正则启发式从问题文本中抽取银行名称与报告年份。
//
// 抽取结果是尽力而为的标签，仅用于之后的检索过滤，不保证正确。
package metadata

import (
	"regexp"
	"strings"
)

// 未命中时返回的占位值
const (
	UnknownBank       = "BANK TIDAK DIKETAHUI"
	UnknownYear       = "0000"
	UnknownReportType = "Laporan Tidak Diketahui"
)

const (
	bankMandiri     = "PT BANK MANDIRI (PERSERO) TBK"
	bankCentralAsia = "PT BANK CENTRAL ASIA TBK"
	bankNegaraIndo  = "PT BANK NEGARA INDONESIA (PERSERO) TBK"
	bankRakyatIndo  = "PT BANK RAKYAT INDONESIA (PERSERO) TBK"
)

// bankAliases 以去掉 PT/BANK/PERSERO/TBK 后剩下的区分词为键。
var bankAliases = map[string]string{
	"MANDIRI":          bankMandiri,
	"BCA":              bankCentralAsia,
	"CENTRAL ASIA":     bankCentralAsia,
	"BNI":              bankNegaraIndo,
	"NEGARA INDONESIA": bankNegaraIndo,
	"BRI":              bankRakyatIndo,
	"RAKYAT INDONESIA": bankRakyatIndo,
}

// 法人名称中的通用词
var genericTokens = map[string]bool{"PT": true, "BANK": true, "PERSERO": true, "TBK": true}

var (
	// 以 BANK 为锚点，向后匹配到句点、逗号、问号、"pada"、"tahun" 或行尾。
	bankPattern = regexp.MustCompile(`(?i)\b((?:PT\.?\s+)?BANK\b[\w\s()&'/-]*?)\s*(?:[.,?]|\bpada\b|\btahun\b|$)`)
	yearPattern = regexp.MustCompile(`(?i)\btahun\s+(\d{4})\b`)
	ptPrefix    = regexp.MustCompile(`^PT\.\s*`)
)

// Extract 返回问题中的银行名称与年份，未命中时返回占位值。
func Extract(question string) (bank, year string) {
	return ExtractBank(question), ExtractYear(question)
}

// ExtractBank 抽取银行名称，已知别名归一为完整法人名称，其余转为大写并把 "PT." 规范为 "PT"。
func ExtractBank(question string) string {
	m := bankPattern.FindStringSubmatch(question)
	if m == nil {
		return UnknownBank
	}
	name := strings.ToUpper(strings.Join(strings.Fields(m[1]), " "))
	name = ptPrefix.ReplaceAllString(name, "PT ")
	if name == "" {
		return UnknownBank
	}
	if canonical, ok := bankAliases[distinguishing(name)]; ok {
		return canonical
	}
	return name
}

// distinguishing 返回名称中除通用词以外的部分，例如 "PT BANK MANDIRI (PERSERO) TBK" → "MANDIRI"。
func distinguishing(name string) string {
	name = strings.NewReplacer("(", " ", ")", " ").Replace(name)
	var tokens []string
	for _, tok := range strings.Fields(name) {
		if !genericTokens[tok] {
			tokens = append(tokens, tok)
		}
	}
	return strings.Join(tokens, " ")
}

// ExtractYear 抽取 "tahun" 之后的四位年份。
func ExtractYear(question string) string {
	m := yearPattern.FindStringSubmatch(question)
	if m == nil {
		return UnknownYear
	}
	return m[1]
}
