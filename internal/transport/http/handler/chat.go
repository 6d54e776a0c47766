package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"datacopilot/internal/ai"
	"datacopilot/internal/app"
	"datacopilot/internal/transport/http/middleware"
	"datacopilot/internal/transport/http/response"
	"datacopilot/internal/transport/http/stream"
)

type ChatHandler struct {
	chatService *app.ChatService
	catalog     *ai.Catalog
}

type ChatTurnRequest struct {
	ID       string                `json:"id" binding:"required"`
	Messages []app.IncomingMessage `json:"messages" binding:"required,min=1"`
	ModelID  string                `json:"modelId" binding:"required"`
}

func NewChatHandler(chatService *app.ChatService, catalog *ai.Catalog) *ChatHandler {
	return &ChatHandler{chatService: chatService, catalog: catalog}
}

// ChatTurn validates the request, persists the inbound user turn, then
// switches the response to a server-sent event stream for the generated
// answer. All rejections happen before the first stream byte so they keep
// their proper status codes.
func (h *ChatHandler) ChatTurn(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req ChatTurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	prepared, err := h.chatService.PrepareTurn(c.Request.Context(), app.ChatTurnInput{
		UserID:   userID,
		ChatID:   req.ID,
		Messages: req.Messages,
		ModelID:  req.ModelID,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrModelNotFound):
			response.Error(c, http.StatusNotFound, response.CodeModelNotFound, err.Error())
		case errors.Is(err, app.ErrNoUserMessage),
			errors.Is(err, app.ErrChatIDInvalid),
			errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "chat turn failed")
		}
		return
	}

	assembler, err := stream.New(c.Writer)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "stream not supported")
		return
	}
	defer assembler.Close()

	c.Status(http.StatusOK)
	if err := h.chatService.StreamTurn(c.Request.Context(), prepared, assembler); err != nil {
		// Headers are already on the wire; the only channel left is the stream.
		_ = assembler.ErrorAnnotation("generation failed")
	}
}

func (h *ChatHandler) DeleteChat(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	chatID := c.Query("id")
	if chatID == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing chat id")
		return
	}

	if err := h.chatService.DeleteChat(c.Request.Context(), userID, chatID); err != nil {
		switch {
		case errors.Is(err, app.ErrChatNotFound):
			response.Error(c, http.StatusNotFound, response.CodeChatNotFound, err.Error())
		case errors.Is(err, app.ErrNotChatOwner):
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, err.Error())
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete chat failed")
		}
		return
	}

	response.OK(c, gin.H{"deleted_chat_id": chatID})
}

func (h *ChatHandler) ListChats(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	chats, err := h.chatService.ListChats(userID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list chats failed")
		}
		return
	}

	response.OK(c, chats)
}

func (h *ChatHandler) GetHistory(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	chatID := c.Query("chat_id")
	if chatID == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing chat_id")
		return
	}

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if parsed, parseErr := strconv.Atoi(raw); parseErr == nil && parsed > 0 {
			limit = parsed
		}
	}

	history, err := h.chatService.GetHistory(c.Request.Context(), userID, chatID, limit)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrChatNotFound):
			response.Error(c, http.StatusNotFound, response.CodeChatNotFound, err.Error())
		case errors.Is(err, app.ErrNotChatOwner):
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, err.Error())
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get history failed")
		}
		return
	}

	response.OK(c, history)
}

// ListModels exposes the enumerated model catalog for the client's selector.
func (h *ChatHandler) ListModels(c *gin.Context) {
	response.OK(c, gin.H{
		"models":  h.catalog.List(),
		"default": h.catalog.Default().ID,
	})
}

func getUserIDFromContext(c *gin.Context) (uint, bool) {
	userIDAny, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}
	userID, ok := userIDAny.(uint)
	return userID, ok
}
