package handler

import (
	"github.com/gin-gonic/gin"
)

// Handlers 聚合所有控制器，由 main 组装后注册路由。
type Handlers struct {
	Chat   *ChatHandler
	Search *SearchHandler
	Upload *UploadHandler
	// IngestAuth 保护上传类接口，不需要鉴权时传入放行的中间件。
	IngestAuth gin.HandlerFunc
	// Async 为 true 时注册 /upload/async 与 /upload/status/:taskId。
	Async bool
}

// RegisterRoutes 注册全部 HTTP 路由。
func RegisterRoutes(r *gin.Engine, h Handlers) {
	r.GET("/", Root)

	// 问答与检索保持公开
	r.POST("/chat", h.Chat.Chat)
	r.GET("/chat/ws", h.Chat.Handle)
	r.GET("/search", h.Search.Search)
	r.GET("/all-nodes", h.Search.AllNodes)

	ingest := r.Group("/")
	if h.IngestAuth != nil {
		ingest.Use(h.IngestAuth)
	}
	{
		ingest.POST("/upload", h.Upload.UploadPDF)
		ingest.POST("/upload_csv", h.Upload.UploadCSV)
		if h.Async {
			ingest.POST("/upload/async", h.Upload.SubmitPDF)
			ingest.GET("/upload/status/:taskId", h.Upload.JobStatus)
		}
	}
}
