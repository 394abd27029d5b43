package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"ragchat/internal/app"
	"ragchat/internal/transport/http/response"
)

type SessionHandler struct {
	sessions *app.SessionService
}

func NewSessionHandler(sessions *app.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

type RenameSessionRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	NewName   string `json:"new_name" binding:"required"`
}

type GetSessionMessagesRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

type sessionSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type messageView struct {
	Text   string `json:"text"`
	Sender string `json:"sender"`
}

func (h *SessionHandler) CreateSession(c *gin.Context) {
	session, err := h.sessions.CreateSession()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "create session failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":      fmt.Sprintf("Session %s created.", session.ID),
		"session_id":   session.ID,
		"session_name": session.Name,
	})
}

func (h *SessionHandler) RenameSession(c *gin.Context) {
	var req RenameSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request payload")
		return
	}

	if err := h.sessions.RenameSession(req.SessionID, req.NewName); err != nil {
		switch {
		case errors.Is(err, app.ErrSessionNotFound):
			response.Error(c, http.StatusNotFound, "Session not found")
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, "rename session failed")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Session renamed successfully",
		"session_id":   req.SessionID,
		"session_name": req.NewName,
	})
}

func (h *SessionHandler) GetSessions(c *gin.Context) {
	sessions, err := h.sessions.ListSessions()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "list sessions failed")
		return
	}

	list := make([]sessionSummary, len(sessions))
	for i, s := range sessions {
		list[i] = sessionSummary{ID: s.ID, Name: s.Name}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": list})
}

func (h *SessionHandler) GetSessionMessages(c *gin.Context) {
	var req GetSessionMessagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request payload")
		return
	}

	messages, err := h.sessions.GetSessionMessages(c.Request.Context(), req.SessionID)
	if err != nil {
		if errors.Is(err, app.ErrSessionNotFound) {
			response.Error(c, http.StatusNotFound, "Session not found")
		} else {
			response.Error(c, http.StatusInternalServerError, "get session messages failed")
		}
		return
	}

	views := make([]messageView, len(messages))
	for i, m := range messages {
		views[i] = messageView{Text: m.Text, Sender: m.Sender}
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": req.SessionID,
		"messages":   views,
	})
}

func (h *SessionHandler) DeleteSession(c *gin.Context) {
	sessionID := c.Param("id")
	if err := h.sessions.DeleteSession(c.Request.Context(), sessionID); err != nil {
		if errors.Is(err, app.ErrSessionNotFound) {
			response.Error(c, http.StatusNotFound, "Session does not exist")
		} else {
			response.Error(c, http.StatusInternalServerError, "delete session failed")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Session %s deleted.", sessionID)})
}

func (h *SessionHandler) GetFiles(c *gin.Context) {
	filenames, err := h.sessions.ListFiles(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "list files failed")
		return
	}
	c.JSON(http.StatusOK, filenames)
}
