package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"ragchat/internal/ai"
	"ragchat/internal/app"
	"ragchat/internal/transport/http/response"
)

type ChatHandler struct {
	chat *app.ChatService
}

func NewChatHandler(chat *app.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type GenerateTextRequest struct {
	Text      string `json:"text" binding:"required"`
	SessionID string `json:"session_id" binding:"required"`
}

func (h *ChatHandler) GenerateText(c *gin.Context) {
	var req GenerateTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request payload")
		return
	}

	result, err := h.chat.GenerateText(c.Request.Context(), req.SessionID, req.Text)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrSessionNotFound):
			response.Error(c, http.StatusNotFound, "Session does not exist")
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, ai.ErrUpstreamUnavailable):
			var statusErr *ai.UpstreamStatusError
			if errors.As(err, &statusErr) {
				response.Error(c, http.StatusBadGateway,
					fmt.Sprintf("LLM service unavailable (upstream status %d)", statusErr.StatusCode))
			} else {
				response.Error(c, http.StatusBadGateway, "LLM service unavailable")
			}
		case errors.Is(err, ai.ErrMalformedResponse):
			response.Error(c, http.StatusBadGateway, "LLM service returned an unexpected response")
		default:
			response.Error(c, http.StatusInternalServerError, "generate text failed")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"response": result.Answer})
}
