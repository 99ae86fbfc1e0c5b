package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/marcwilliam910/scm/internal/middleware"
	"github.com/marcwilliam910/scm/internal/repository"
	"github.com/marcwilliam910/scm/internal/service"
	"github.com/marcwilliam910/scm/pkg/log"
	"github.com/marcwilliam910/scm/pkg/response"
)

// ConversationHandler handles conversation HTTP requests.
type ConversationHandler struct {
	conversationService service.ConversationService
	authMiddleware      *middleware.AuthMiddleware
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(conversationService service.ConversationService, authMiddleware *middleware.AuthMiddleware) *ConversationHandler {
	return &ConversationHandler{
		conversationService: conversationService,
		authMiddleware:      authMiddleware,
	}
}

// RegisterRoutes registers all routes.
func (h *ConversationHandler) RegisterRoutes(r *gin.Engine) {
	conversations := r.Group("/conversation", h.authMiddleware.RequireAuth())
	{
		conversations.GET("/with/:peerId", h.With)
		conversations.GET("/messages", h.List)
		conversations.GET("/old-chat/:conversationId", h.History)
		conversations.POST("/mark-as-viewed/:conversationId", h.MarkAsViewed)
	}
}

// With establishes or locates the conversation with a peer and returns
// its id.
func (h *ConversationHandler) With(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := h.conversationService.GetOrCreateConversation(ctx, middleware.GetUserID(c), c.Param("peerId"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidID):
			response.BadRequest(c, "invalid peer id")
		case errors.Is(err, service.ErrInvalidReference):
			response.BadRequest(c, "peer does not exist")
		default:
			log.Ctx(ctx).Error().Err(err).Msg("conversation lookup failed")
			response.InternalError(c, "failed to open conversation")
		}
		return
	}

	response.OK(c, gin.H{"conversationId": id})
}

// List returns the user's conversations, most recently active first,
// together with the ids of conversations holding unread messages.
func (h *ConversationHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	result, err := h.conversationService.ListConversations(ctx, middleware.GetUserID(c))
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("conversation list failed")
		response.InternalError(c, "failed to load conversations")
		return
	}

	response.OK(c, result)
}

// History returns a conversation's full message history. Users who are
// not participants get the same answer as for a missing conversation.
func (h *ConversationHandler) History(c *gin.Context) {
	ctx := c.Request.Context()

	view, err := h.conversationService.GetHistory(ctx, c.Param("conversationId"), middleware.GetUserID(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidID):
			response.BadRequest(c, "invalid conversation id")
		case errors.Is(err, repository.ErrConversationNotFound):
			response.NotFound(c, "conversation not found")
		default:
			log.Ctx(ctx).Error().Err(err).Msg("conversation history failed")
			response.InternalError(c, "failed to load conversation")
		}
		return
	}

	response.OK(c, gin.H{"conversation": view})
}

// MarkAsViewed flags the peer's messages in a conversation as viewed.
func (h *ConversationHandler) MarkAsViewed(c *gin.Context) {
	ctx := c.Request.Context()

	err := h.conversationService.MarkAsViewed(ctx, c.Param("conversationId"), middleware.GetUserID(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidID):
			response.BadRequest(c, "invalid conversation id")
		case errors.Is(err, repository.ErrConversationNotFound):
			response.NotFound(c, "conversation not found")
		default:
			log.Ctx(ctx).Error().Err(err).Msg("mark-as-viewed failed")
			response.InternalError(c, "failed to update conversation")
		}
		return
	}

	response.Message(c, "messages marked as viewed")
}
