package pipeline

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"finrag-go/internal/metadata"
	"finrag-go/internal/model"
	"finrag-go/pkg/gemini"
	"finrag-go/pkg/log"
	"finrag-go/pkg/pdf"
)

const extractionPrompt = `Kamu akan membantu mengekstrak informasi penting dari laporan keuangan perusahaan terbuka di Indonesia, dan menyusunnya dalam bentuk pasangan pertanyaan–jawaban untuk digunakan pada sistem Retrieval-Augmented Generation (RAG).

Aturan Penulisan:
- Gunakan **bahasa Indonesia formal dan jelas**.
- Jawaban harus **langsung, padat, dan berdasarkan data aktual** dari halaman yang diberikan.
- Pertanyaan harus umum namun relevan, seolah ditanyakan oleh pengguna kepada chatbot.
- Sebutkan nama bank dan tahun laporan di setiap pertanyaan jika tersedia.

Format Output:
Tulis hasil dalam format:

Q: [Pertanyaan 1]
A: [Jawaban 1]

Q: [Pertanyaan 2]
A: [Jawaban 2]

Contoh :

Q: Berapa total aset PT Bank ABC pada tahun 2024?
A: Total aset perusahaan pada tahun 2024 mencapai Rp1.449 triliun, meningkat dari Rp1.408 triliun di tahun 2023.

Q: Bagaimana tren laba bersih PT Bank ABC tahun 2024?
A: Laba bersih tahun 2024 meningkat 15% dibandingkan tahun 2023, mencapai Rp45 triliun.

Q: Apa fokus strategi PT Bank ABC menurut Direksi pada tahun 2024?
A: Manajemen menyatakan bahwa fokus perusahaan adalah pada digitalisasi layanan dan efisiensi operasional.

Sekarang, ekstrak semua isi halaman dengan lengkap PDF berikut menjadi kumpulan pertanyaan dan jawaban seperti format di atas.`

const pdfMimeType = "application/pdf"

var (
	// Q: 标记可以出现在行首或行内，允许列表编号和项目符号前缀
	qMarker = regexp.MustCompile(`(?:^|\s)(?:\d+[.)]|[-*•])?\s*Q\s*:`)
	qaBlock = regexp.MustCompile(`(?s)^\s*(?:\d+[.)]|[-*•])?\s*Q\s*:\s*(.*?)\s+(?:[-*•]\s*)?A\s*:\s*(.*?)\s*$`)
	// 模型常用的 markdown 强调符号
	emphasis = strings.NewReplacer("**", "", "__", "")

	documentNamespace = uuid.MustParse("a1d0c6e8-3f5b-5e2a-8c4d-7b9e0f1a2b3c")
)

// QAPair 是从模型输出中解析出的一组问答。
type QAPair struct {
	Question string
	Answer   string
}

// ParseQA 解析 "Q: ... A: ..." 格式的文本，每个 Q: 到下一个 Q: 或文本末尾为一组。
// 解析前去掉 ** 与 __ 强调符号。
// 缺少 A: 或问答任一为空的组会被跳过。
func ParseQA(text string) []QAPair {
	text = emphasis.Replace(text)
	locs := qMarker.FindAllStringIndex(text, -1)
	var pairs []QAPair
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		m := qaBlock.FindStringSubmatch(text[loc[0]:end])
		if m == nil {
			continue
		}
		q, a := strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
		if q == "" || a == "" {
			continue
		}
		pairs = append(pairs, QAPair{Question: q, Answer: a})
	}
	return pairs
}

// Builder 把 PDF 逐页交给多模态模型，转换为带元数据的问答文档。
type Builder struct {
	pages     pdf.Splitter
	model     gemini.Client
	outputDir string
}

// NewBuilder 创建一个新的 Builder 实例。outputDir 为空时不写调试文件和 CSV。
func NewBuilder(pages pdf.Splitter, model gemini.Client, outputDir string) *Builder {
	return &Builder{pages: pages, model: model, outputDir: outputDir}
}

// Build 处理整个 PDF。单页失败只记录日志并跳过该页，没有任何问答时返回空切片。
func (b *Builder) Build(ctx context.Context, pdfPath string) ([]model.Document, error) {
	source := filepath.Base(pdfPath)
	total, err := b.pages.PageCount(pdfPath)
	if err != nil {
		log.Errorf("[Builder] 读取 PDF 页数失败, file: %s, error: %v", source, err)
		return nil, err
	}
	log.Infof("[Builder] 开始抽取 PDF, file: %s, 页数: %d", source, total)

	var docs []model.Document
	for page := 1; page <= total; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pageDocs, err := b.buildPage(ctx, pdfPath, source, page)
		if err != nil {
			log.Warnf("[Builder] 第 %d 页处理失败，已跳过: %v", page, err)
			continue
		}
		docs = append(docs, pageDocs...)
		log.Infof("[Builder] 第 %d/%d 页抽取到 %d 组问答", page, total, len(pageDocs))
	}

	if len(docs) > 0 {
		if err := b.writeExtractionCSV(source, docs); err != nil {
			log.Warnf("[Builder] 写入抽取结果 CSV 失败: %v", err)
		}
	}
	log.Infof("[Builder] PDF 抽取完成, file: %s, 文档数: %d", source, len(docs))
	return docs, nil
}

func (b *Builder) buildPage(ctx context.Context, pdfPath, source string, page int) ([]model.Document, error) {
	data, err := b.pages.Page(pdfPath, page)
	if err != nil {
		return nil, err
	}
	raw, err := b.model.GenerateWithFile(ctx, extractionPrompt, data, pdfMimeType)
	if err != nil {
		return nil, err
	}
	if err := b.writeDebug(source, page, raw); err != nil {
		log.Warnf("[Builder] 写入第 %d 页调试文件失败: %v", page, err)
	}

	pairs := ParseQA(raw)
	docs := make([]model.Document, 0, len(pairs))
	for i, p := range pairs {
		docs = append(docs, newDocument(source, page, i, p))
	}
	return docs, nil
}

func newDocument(source string, page, ordinal int, p QAPair) model.Document {
	bank, year := metadata.Extract(p.Question)
	key := fmt.Sprintf("%s:%d:%d", source, page, ordinal)
	return model.Document{
		ID:   uuid.NewSHA1(documentNamespace, []byte(key)).String(),
		Text: fmt.Sprintf("Q: %s\nA: %s", p.Question, p.Answer),
		Metadata: map[string]string{
			model.MetaBank:       bank,
			model.MetaYear:       year,
			model.MetaReportType: metadata.UnknownReportType,
			model.MetaPage:       strconv.Itoa(page),
			model.MetaSource:     source,
		},
	}
}

func (b *Builder) writeDebug(source string, page int, raw string) error {
	if b.outputDir == "" {
		return nil
	}
	dir := filepath.Join(b.outputDir, "debug")
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return err
	}
	name := fmt.Sprintf("%s_page_%d.txt", strings.TrimSuffix(source, filepath.Ext(source)), page)
	return os.WriteFile(filepath.Join(dir, name), []byte(raw), 0o644)
}

func (b *Builder) writeExtractionCSV(source string, docs []model.Document) error {
	if b.outputDir == "" {
		return nil
	}
	if err := os.MkdirAll(b.outputDir, os.ModePerm); err != nil {
		return err
	}
	name := strings.TrimSuffix(source, filepath.Ext(source)) + "_qa.csv"
	f, err := os.Create(filepath.Join(b.outputDir, name))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	_ = w.Write([]string{"Dokumen", "Halaman", "Bank", "Tahun", "Teks"})
	for _, d := range docs {
		_ = w.Write([]string{d.ID, d.Metadata[model.MetaPage], d.Metadata[model.MetaBank], d.Metadata[model.MetaYear], d.Text})
	}
	w.Flush()
	return w.Error()
}
