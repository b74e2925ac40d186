package model

// 消息角色
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage 代表一条对话消息，历史记录由调用方持有并随请求传入。
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// QueryAnalysis 是查询分析的结果，只在一次 chat 请求内存在。
type QueryAnalysis struct {
	NumQueries int            `json:"num_queries"`
	Query1     string         `json:"query1,omitempty"`
	Query2     string         `json:"query2,omitempty"`
	Filter1    MetadataFilter `json:"filter1,omitempty"`
	Filter2    MetadataFilter `json:"filter2,omitempty"`
	Message    string         `json:"message,omitempty"`
}
