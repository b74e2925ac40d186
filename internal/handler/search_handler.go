package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"finrag-go/internal/model"
	"finrag-go/internal/service"
)

const defaultNodeLimit = 100

// SearchHandler 处理不经过生成的检索请求。
type SearchHandler struct {
	searchService service.SearchService
}

// NewSearchHandler 创建一个新的 SearchHandler 实例。
func NewSearchHandler(searchService service.SearchService) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

// Search 处理 GET /search?query1=..&bank1=..&tahun1=..&query2=..&bank2=..&tahun2=..&top_k=3
func (h *SearchHandler) Search(c *gin.Context) {
	query1 := strings.TrimSpace(c.Query("query1"))
	if query1 == "" {
		query1 = strings.TrimSpace(c.Query("query"))
	}
	if query1 == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Parameter query1 wajib diisi"})
		return
	}

	topK := 0
	if raw := c.Query("top_k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Parameter top_k tidak valid"})
			return
		}
		topK = n
	}

	req := service.SearchRequest{
		Query1:  query1,
		Query2:  strings.TrimSpace(c.Query("query2")),
		Filter1: queryFilter(c, "bank1", "tahun1"),
		Filter2: queryFilter(c, "bank2", "tahun2"),
		TopK:    topK,
	}
	result, err := h.searchService.Search(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, "SearchHandler", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// AllNodes 处理 GET /all-nodes?limit=100
func (h *SearchHandler) AllNodes(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultNodeLimit)))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Parameter limit tidak valid"})
		return
	}

	nodes, err := h.searchService.Nodes(c.Request.Context(), limit)
	if err != nil {
		abortWithError(c, "SearchHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"jumlah_node": len(nodes),
		"nodes":       nodes,
	})
}

func queryFilter(c *gin.Context, bankKey, yearKey string) model.MetadataFilter {
	raw := map[string]any{}
	if v := c.Query(bankKey); v != "" {
		raw[model.MetaBank] = v
	}
	if v := c.Query(yearKey); v != "" {
		raw[model.MetaYear] = v
	}
	return service.NormalizeFilter(raw)
}
