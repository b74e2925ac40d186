package handler

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"finrag-go/internal/model"
	"finrag-go/internal/service"
	"finrag-go/pkg/log"
)

// UploadHandler 负责处理所有与文档入库相关的 API 请求。
type UploadHandler struct {
	ingestService service.IngestService
}

// NewUploadHandler 创建一个新的 UploadHandler 实例。
func NewUploadHandler(ingestService service.IngestService) *UploadHandler {
	return &UploadHandler{ingestService: ingestService}
}

// UploadPDF 处理 POST /upload：同步抽取问答并建立索引。
func (h *UploadHandler) UploadPDF(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": MsgFileRequired})
		return
	}
	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".pdf") {
		c.JSON(http.StatusBadRequest, gin.H{"error": MsgOnlyPDFAccepted})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		log.Error("UploadPDF: 无法打开上传的文件", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": MsgInternalError})
		return
	}
	defer file.Close()

	log.Infof("[UploadHandler] 收到 PDF: %s, 大小: %d", fileHeader.Filename, fileHeader.Size)
	count, err := h.ingestService.UploadPDF(c.Request.Context(), fileHeader.Filename, file)
	if err != nil {
		abortWithError(c, "UploadHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"pesan":          MsgUploaded,
		"jumlah_dokumen": count,
	})
}

// UploadCSV 处理 POST /upload_csv：每一行问答作为一个节点入库。
func (h *UploadHandler) UploadCSV(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": MsgFileRequired})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		log.Error("UploadCSV: 无法打开上传的文件", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": MsgInternalError})
		return
	}
	defer file.Close()

	count, err := h.ingestService.UploadCSV(c.Request.Context(), fileHeader.Filename, file)
	if err != nil {
		abortWithError(c, "UploadHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"pesan":          MsgUploaded,
		"jumlah_dokumen": count,
	})
}

// SubmitPDF 处理 POST /upload/async：文件进入对象存储，由 Kafka 消费者异步入库。
func (h *UploadHandler) SubmitPDF(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": MsgFileRequired})
		return
	}
	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".pdf") {
		c.JSON(http.StatusBadRequest, gin.H{"error": MsgOnlyPDFAccepted})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		log.Error("SubmitPDF: 无法打开上传的文件", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": MsgInternalError})
		return
	}
	defer file.Close()

	taskID, err := h.ingestService.SubmitPDF(c.Request.Context(), fileHeader.Filename, file, fileHeader.Size)
	if err != nil {
		abortWithError(c, "UploadHandler", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"taskId": taskID,
		"status": model.JobQueued,
	})
}

// JobStatus 处理 GET /upload/status/:taskId
func (h *UploadHandler) JobStatus(c *gin.Context) {
	job, err := h.ingestService.JobStatus(c.Request.Context(), c.Param("taskId"))
	if err != nil {
		abortWithError(c, "UploadHandler", err)
		return
	}
	c.JSON(http.StatusOK, job)
}
