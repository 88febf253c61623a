package handler

import (
	"net/http"

	"founders-chat/internal/services"
	"founders-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type MediaHandler struct {
	service *services.MediaService
}

func NewMediaHandler(service *services.MediaService) *MediaHandler {
	return &MediaHandler{service: service}
}

// Presign returns an upload URL for a chat attachment.
func (h *MediaHandler) Presign(c *gin.Context) {
	var req httpdto.PresignRequest
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

	res, err := h.service.Presign(c.Request.Context(), services.PresignInput{
		ChatID:      chatID,
		CallerID:    userID,
		FileName:    req.FileName,
		ContentType: req.ContentType,
		Size:        req.Size,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.PresignResponse{
		UploadURL: res.UploadURL,
		Key:       res.Key,
		URL:       res.URL,
		Headers:   res.Headers,
	}))
}
