package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"finrag-go/internal/model"
	"finrag-go/internal/service"
	"finrag-go/pkg/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ChatRequest 是 /chat 的请求体，history 由客户端保存并原样回传。
type ChatRequest struct {
	Query   string              `json:"query"`
	History []model.ChatMessage `json:"history"`
}

// ChatHandler 处理问答请求。
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler 创建一个新的 ChatHandler 实例。
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// Chat 处理 POST /chat。
func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": MsgInvalidRequest})
		return
	}

	result, err := h.chatService.Chat(c.Request.Context(), req.Query, req.History)
	if err != nil {
		abortWithError(c, "ChatHandler", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Handle 处理 GET /chat/ws，每个文本帧是一个 ChatRequest，回复与 /chat 相同的结构。
func (h *ChatHandler) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Errorf("升级到 WebSocket 失败: %v", err)
		return
	}
	defer conn.Close()
	log.Infof("WebSocket 连接已建立, remote: %s", conn.RemoteAddr())

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warnf("从 WebSocket 读取消息失败: %v", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var req ChatRequest
		if err := json.Unmarshal(message, &req); err != nil || strings.TrimSpace(req.Query) == "" {
			if werr := conn.WriteJSON(gin.H{"error": MsgInvalidRequest}); werr != nil {
				return
			}
			continue
		}

		result, err := h.chatService.Chat(c.Request.Context(), req.Query, req.History)
		var reply any = result
		if err != nil {
			_, msg := errorStatus(err)
			log.Errorf("[ChatHandler] WebSocket 问答失败: %v", err)
			reply = gin.H{"error": msg}
		}
		if err := conn.WriteJSON(reply); err != nil {
			log.Warnf("向 WebSocket 写入消息失败: %v", err)
			return
		}
	}
}
