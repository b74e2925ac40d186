package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"finrag-go/internal/model"
	"finrag-go/pkg/llm"
	"finrag-go/pkg/log"
)

// FallbackAnswer 是上下文中没有答案时模型应回复的原话。
const FallbackAnswer = "Maaf, informasi tersebut tidak tersedia dalam dokumen."

// maxContexts 是拼接进提示词的最多节点数。
const maxContexts = 5

var systemInstruction = "Kamu adalah asisten keuangan profesional yang membantu pengguna memahami laporan keuangan. " +
	"Saat menjawab, prioritaskan informasi yang tersedia dalam riwayat percakapan sebelum melihat konteks dokumen. " +
	"Jangan hanya menyebutkan angka atau data, tapi juga jelaskan secara singkat arti dan pentingnya. " +
	"Jika informasi tidak tersedia baik di history maupun konteks, jawab: '" + FallbackAnswer + "'"

// 推理模型会在回复前输出 <think> 块
var thinkBlock = regexp.MustCompile(`(?s)^\s*<think>.*?</think>`)

// Generator 基于检索到的上下文与对话历史生成回答。
type Generator struct {
	llmClient llm.Client
}

// NewGenerator 创建一个新的 Generator 实例。
func NewGenerator(llmClient llm.Client) *Generator {
	return &Generator{llmClient: llmClient}
}

// CombineContexts 取前五个节点的文本，以换行拼接。
func CombineContexts(nodes []model.ScoredNode) string {
	if len(nodes) > maxContexts {
		nodes = nodes[:maxContexts]
	}
	texts := make([]string, len(nodes))
	for i, n := range nodes {
		texts[i] = n.Node.Text
	}
	return strings.Join(texts, "\n")
}

// Generate 返回回答与新的历史（原历史 + user + assistant）。
// 调用失败时返回固定的错误文本和原历史，同时返回错误供调用方记录。
func (g *Generator) Generate(ctx context.Context, query, contexts string, history []model.ChatMessage) (string, []model.ChatMessage, error) {
	userMsg := model.ChatMessage{
		Role: model.RoleUser,
		Content: fmt.Sprintf("Pertanyaan: %s\n\n"+
			"Jawab berdasarkan informasi yang tersedia di riwayat percakapan (jika relevan), "+
			"sebelum memeriksa konteks dokumen. Hanya gunakan konteks dokumen jika informasi belum ada di history.\n\n"+
			"=== Konteks Dokumen ===\n%s", query, contexts),
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: model.RoleSystem, Content: systemInstruction})
	for _, m := range history {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, llm.Message{Role: userMsg.Role, Content: userMsg.Content})

	log.Infof("[Generator] 调用 LLM, 历史消息数: %d, 上下文长度: %d", len(history), len(contexts))
	reply, err := g.llmClient.Chat(ctx, messages, nil)
	if err != nil {
		log.Errorf("[Generator] 调用 LLM 失败: %v", err)
		return "❌ Gagal menghasilkan jawaban dari LLM: " + err.Error(), history, err
	}

	answer := strings.TrimSpace(thinkBlock.ReplaceAllString(reply, ""))
	newHistory := make([]model.ChatMessage, 0, len(history)+2)
	newHistory = append(newHistory, history...)
	newHistory = append(newHistory, userMsg, model.ChatMessage{Role: model.RoleAssistant, Content: answer})
	return answer, newHistory, nil
}
