// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"finrag-go/internal/pipeline"
	"finrag-go/internal/repository"
	"finrag-go/internal/service"
	"finrag-go/pkg/log"
)

// 返回给客户端的固定文本
const (
	MsgWelcome         = "Welcome to the Laporan Keuangan API. Use /upload/ to upload PDF files."
	MsgUploaded        = "Berhasil upload, ekstrak, dan indexing"
	MsgIndexNotReady   = "❌ Index belum tersedia di Qdrant. Silakan upload dokumen terlebih dahulu."
	MsgNoRelevantDocs  = "❌ Tidak ada dokumen yang relevan ditemukan."
	MsgExtractFailed   = "Gagal mengekstrak QnA dari PDF"
	MsgIndexFailed     = "Gagal membuat vector index ke Qdrant"
	MsgInvalidCSV      = "File CSV tidak valid atau tidak berisi kolom Jawaban"
	MsgAsyncDisabled   = "Upload asinkron tidak diaktifkan"
	MsgJobNotFound     = "Task tidak ditemukan"
	MsgInvalidRequest  = "Permintaan tidak valid"
	MsgFileRequired    = "File wajib diunggah"
	MsgInternalError   = "Terjadi kesalahan pada server"
	MsgOnlyPDFAccepted = "Hanya file PDF yang diterima"
)

// errorStatus 把业务错误映射为 HTTP 状态码和用户可读文本。
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, pipeline.ErrIndexNotReady):
		return http.StatusPreconditionFailed, MsgIndexNotReady
	case errors.Is(err, service.ErrNoRelevantDocuments):
		return http.StatusNotFound, MsgNoRelevantDocs
	case errors.Is(err, service.ErrExtractFailed):
		return http.StatusUnprocessableEntity, MsgExtractFailed
	case errors.Is(err, service.ErrIndexFailed):
		return http.StatusInternalServerError, MsgIndexFailed
	case errors.Is(err, service.ErrInvalidCSV):
		return http.StatusBadRequest, MsgInvalidCSV
	case errors.Is(err, service.ErrAsyncDisabled):
		return http.StatusServiceUnavailable, MsgAsyncDisabled
	case errors.Is(err, repository.ErrJobNotFound):
		return http.StatusNotFound, MsgJobNotFound
	default:
		return http.StatusInternalServerError, MsgInternalError
	}
}

func abortWithError(c *gin.Context, op string, err error) {
	status, msg := errorStatus(err)
	if status >= http.StatusInternalServerError {
		log.Errorf("[%s] 请求处理失败: %v", op, err)
	} else {
		log.Warnf("[%s] 请求被拒绝: %v", op, err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// Root 返回欢迎信息。
func Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": MsgWelcome})
}
