package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	appsvc "warbler/internal/app"
	"warbler/internal/transport/http/middleware"
	"warbler/internal/transport/http/response"
)

// MessageAPIHandler exposes the message lifecycle as JSON. The same gate
// rules apply as on the HTML surface, but denials surface as status codes
// (401/403) instead of the banner page.
type MessageAPIHandler struct {
	messages *appsvc.MessageService
}

type CreateMessageRequest struct {
	Text string `json:"text" binding:"required,max=140"`
}

func NewMessageAPIHandler(messages *appsvc.MessageService) *MessageAPIHandler {
	return &MessageAPIHandler{messages: messages}
}

func (h *MessageAPIHandler) Create(c *gin.Context) {
	actor := middleware.CurrentIdentity(c)

	var req CreateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	message, err := h.messages.Post(c.Request.Context(), actor, req.Text)
	if err != nil {
		switch {
		case errors.Is(err, appsvc.ErrAuthenticationRequired):
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, err.Error())
		case errors.Is(err, appsvc.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "create message failed")
		}
		return
	}

	response.OK(c, message)
}

func (h *MessageAPIHandler) Get(c *gin.Context) {
	id, ok := parseAPIID(c)
	if !ok {
		return
	}

	view, err := h.messages.Get(id)
	if err != nil {
		switch {
		case errors.Is(err, appsvc.ErrMessageNotFound):
			response.Error(c, http.StatusNotFound, response.CodeMessageNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get message failed")
		}
		return
	}

	response.OK(c, gin.H{
		"message":        view.Message,
		"owner_username": view.OwnerUsername,
	})
}

func (h *MessageAPIHandler) Delete(c *gin.Context) {
	id, ok := parseAPIID(c)
	if !ok {
		return
	}

	actor := middleware.CurrentIdentity(c)
	if err := h.messages.Delete(c.Request.Context(), actor, id); err != nil {
		switch {
		case errors.Is(err, appsvc.ErrAuthenticationRequired):
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, err.Error())
		case errors.Is(err, appsvc.ErrNotOwner):
			response.Error(c, http.StatusForbidden, response.CodeForbidden, err.Error())
		case errors.Is(err, appsvc.ErrMessageNotFound):
			response.Error(c, http.StatusNotFound, response.CodeMessageNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete message failed")
		}
		return
	}

	response.OK(c, gin.H{"deleted_message_id": id})
}

func (h *MessageAPIHandler) List(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	messages, err := h.messages.Recent(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list messages failed")
		return
	}

	response.OK(c, messages)
}

func parseAPIID(c *gin.Context) (uint, bool) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid message id")
		return 0, false
	}
	return id, true
}
