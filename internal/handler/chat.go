package handler

import (
	"net/http"

	"reggenie/internal/chat"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ChatHandler interface {
	Providers(c *gin.Context)
	CreateSession(c *gin.Context)
	GetSession(c *gin.Context)
	DeleteSession(c *gin.Context)
	SendMessage(c *gin.Context)
	SubmitFeedback(c *gin.Context)
	ListFeedback(c *gin.Context)
}

type chatHandler struct {
	chat     *chat.Service
	feedback *chat.Feedback
	logger   *zap.Logger
}

func NewChatHandler(chatService *chat.Service, feedback *chat.Feedback, logger *zap.Logger) ChatHandler {
	return &chatHandler{chat: chatService, feedback: feedback, logger: logger}
}

// Providers handles GET /chat/providers
func (h *chatHandler) Providers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"providers": h.chat.Providers()})
}

// CreateSession handles POST /chat/sessions
func (h *chatHandler) CreateSession(c *gin.Context) {
	c.JSON(http.StatusCreated, h.chat.NewSession())
}

// GetSession handles GET /chat/sessions/:id
func (h *chatHandler) GetSession(c *gin.Context) {
	sess, err := h.chat.Session(c.Param("id"))
	if err != nil {
		fail(c, h.logger, err, "Failed to retrieve chat session")
		return
	}
	c.JSON(http.StatusOK, sess)
}

// DeleteSession handles DELETE /chat/sessions/:id
func (h *chatHandler) DeleteSession(c *gin.Context) {
	if err := h.chat.DeleteSession(c.Param("id")); err != nil {
		fail(c, h.logger, err, "Failed to delete chat session")
		return
	}
	c.Status(http.StatusNoContent)
}

type SendMessageRequest struct {
	Text     string        `json:"text" binding:"required"`
	Provider chat.Provider `json:"provider"`
}

// SendMessage handles POST /chat/sessions/:id/messages. The reply streams as
// server-sent events: "chunk" per piece of text, then "done" with the final
// message, or "error" with the replacement text when the provider fails, with
// or without chunks sent. Only request validation, unknown and busy sessions
// are answered with plain JSON errors.
func (h *chatHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c, h.logger, err)
		return
	}

	started := false
	start := func() {
		if started {
			return
		}
		started = true
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Status(http.StatusOK)
	}

	msg, err := h.chat.Send(c.Request.Context(), c.Param("id"), req.Text, req.Provider, func(chunk string) {
		start()
		c.SSEvent("chunk", chunk)
		c.Writer.Flush()
	})
	if err != nil && msg.ID == "" {
		fail(c, h.logger, err, "Chat reply failed")
		return
	}

	start()
	if err != nil {
		c.SSEvent("error", msg)
	} else {
		c.SSEvent("done", msg)
	}
	c.Writer.Flush()
}

// SubmitFeedback handles POST /chat/feedback
func (h *chatHandler) SubmitFeedback(c *gin.Context) {
	var req chat.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c, h.logger, err)
		return
	}
	fb, err := h.feedback.Submit(c.Request.Context(), req)
	if err != nil {
		fail(c, h.logger, err, "Failed to save feedback")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"feedback": fb, "label": chat.RatingLabel(fb.Rating)})
}

// ListFeedback handles GET /chat/feedback
func (h *chatHandler) ListFeedback(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"feedback": h.feedback.List(c.Request.Context())})
}
