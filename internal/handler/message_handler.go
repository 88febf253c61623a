package handler

import (
	"net/http"
	"time"

	"founders-chat/internal/services"
	"founders-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	service *services.MessageService
}

func NewMessageHandler(service *services.MessageService) *MessageHandler {
	return &MessageHandler{service: service}
}

// List returns one page of messages, oldest first. Pass next_before back as
// before to walk towards older messages.
func (h *MessageHandler) List(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	limit, ok := intQuery(c, "limit")
	if !ok {
		return
	}
	before, ok := timeQuery(c, "before")
	if !ok {
		return
	}

	items, err := h.service.List(c.Request.Context(), chatID, userID, limit, before)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := httpdto.ListMessagesResponse{Messages: httpdto.FromMessageSlice(items)}
	if len(items) > 0 && len(items) == services.MessagePageSize(limit) {
		next := items[0].CreatedAt
		resp.NextBefore = &next
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(resp))
}

func (h *MessageHandler) Send(c *gin.Context) {
	var req httpdto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	userID, ok := callerID(c)
	if !ok {
		return
	}
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}

	msg, err := h.service.Append(c.Request.Context(), services.AppendInput{
		ChatID:   chatID,
		SenderID: userID,
		Content:  req.Content,
		Media:    req.Attachments(),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.SendMessageResponse{
		Message: httpdto.FromMessage(msg),
	}))
}

// MarkRead acknowledges messages up to the optional through timestamp.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	var req httpdto.MarkReadRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request")
			return
		}
	}
	userID, ok := callerID(c)
	if !ok {
		return
	}
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}

	var through time.Time
	if req.Through != nil {
		through = *req.Through
	}
	marked, err := h.service.MarkRead(c.Request.Context(), chatID, userID, through)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.MarkReadResponse{Marked: marked}))
}
