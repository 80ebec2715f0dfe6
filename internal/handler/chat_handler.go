package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cimas-project/cimas-api/internal/models"
	"github.com/cimas-project/cimas-api/internal/service"
	appErrors "github.com/cimas-project/cimas-api/pkg/errors"
	"github.com/cimas-project/cimas-api/pkg/response"
)

// ChatHandler wires HTTP endpoints to the chat service.
type ChatHandler struct {
	service *service.ChatService
}

// NewChatHandler creates a new handler.
func NewChatHandler(svc *service.ChatService) *ChatHandler {
	return &ChatHandler{service: svc}
}

// Messages godoc
// @Summary Fetch the inbox or a conversation
// @Description Without chat_with returns the caller's inbox plus visible broadcasts; with chat_with returns the two-way thread
// @Tags Chat
// @Produce json
// @Security BearerAuth
// @Param chat_with query int false "Counterpart user ID"
// @Success 200 {array} models.Message
// @Router /chat/messages [get]
func (h *ChatHandler) Messages(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if raw := c.Query("chat_with"); raw != "" {
		otherID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || otherID <= 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid chat_with parameter"))
			return
		}
		msgs, err := h.service.Conversation(c.Request.Context(), claims, otherID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, msgs)
		return
	}

	msgs, err := h.service.Inbox(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, msgs)
}

// Send godoc
// @Summary Send a message or broadcast
// @Tags Chat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.SendMessageRequest true "Message payload"
// @Success 201 {object} models.Message
// @Failure 403 {object} map[string]string
// @Router /chat/messages [post]
func (h *ChatHandler) Send(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid message payload"))
		return
	}

	msg, err := h.service.Send(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, msg)
}

// GetMessage godoc
// @Summary Get a single message
// @Tags Chat
// @Produce json
// @Security BearerAuth
// @Param id path int true "Message ID"
// @Success 200 {object} models.Message
// @Router /chat/messages/{id} [get]
func (h *ChatHandler) GetMessage(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid message id"))
		return
	}

	msg, err := h.service.GetMessage(c.Request.Context(), claims, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, msg)
}

// UpdateFlags godoc
// @Summary Update read/delivered flags
// @Tags Chat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Message ID"
// @Param payload body models.MessageFlagsRequest true "Flags payload"
// @Success 200 {object} models.Message
// @Failure 403 {object} map[string]string
// @Router /chat/messages/{id} [patch]
func (h *ChatHandler) UpdateFlags(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid message id"))
		return
	}

	var req models.MessageFlagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid flags payload"))
		return
	}

	msg, err := h.service.UpdateFlags(c.Request.Context(), claims, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, msg)
}

// AvailableUsers godoc
// @Summary List the caller's chat contacts
// @Tags Chat
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.ChatContact
// @Router /chat/available-users [get]
func (h *ChatHandler) AvailableUsers(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	contacts, err := h.service.AvailableUsers(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, contacts)
}

// Broadcasts godoc
// @Summary List broadcasts visible to the caller
// @Tags Chat
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Message
// @Router /chat/admin-panel-broadcasts [get]
func (h *ChatHandler) Broadcasts(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	msgs, err := h.service.VisibleBroadcasts(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, msgs)
}
