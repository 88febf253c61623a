package handler

import (
	"net/http"

	"founders-chat/internal/services"
	"founders-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ChatHandler struct {
	service *services.ConversationService
}

func NewChatHandler(service *services.ConversationService) *ChatHandler {
	return &ChatHandler{service: service}
}

// Create finds or creates the chat between the caller and participant_id.
func (h *ChatHandler) Create(c *gin.Context) {
	var req httpdto.CreateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	userID, ok := callerID(c)
	if !ok {
		return
	}
	otherID, err := uuid.Parse(req.ParticipantID)
	if err != nil {
		badRequest(c, "invalid participant id")
		return
	}

	item, isNew, err := h.service.FindOrCreate(c.Request.Context(), userID, otherID)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if isNew {
		status = http.StatusCreated
	}
	c.JSON(status, httpdto.NewSuccessResponse(httpdto.CreateChatResponse{
		Chat:  httpdto.FromChat(item),
		IsNew: isNew,
	}))
}

func (h *ChatHandler) List(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	limit, ok := intQuery(c, "limit")
	if !ok {
		return
	}
	skip, ok := intQuery(c, "skip")
	if !ok {
		return
	}

	items, err := h.service.List(c.Request.Context(), userID, limit, skip)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListChatsResponse{
		Chats: httpdto.FromChatSlice(items),
		Limit: services.ChatPageSize(limit),
		Skip:  skip,
	}))
}

func (h *ChatHandler) GetByID(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}

	item, err := h.service.Get(c.Request.Context(), chatID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ChatResponse{Chat: httpdto.FromChat(item)}))
}

// Leave removes the caller from the chat.
func (h *ChatHandler) Leave(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}

	deleted, err := h.service.RemoveParticipant(c.Request.Context(), chatID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	message := "left chat"
	if deleted {
		message = "chat deleted"
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.LeaveChatResponse{
		Message:     message,
		ChatDeleted: deleted,
	}))
}
