package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/marcwilliam910/scm/internal/domain"
	"github.com/marcwilliam910/scm/internal/hub"
	"github.com/marcwilliam910/scm/internal/service"
	"github.com/marcwilliam910/scm/pkg/log"
	"github.com/marcwilliam910/scm/pkg/response"
	"github.com/marcwilliam910/scm/pkg/token"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler upgrades authenticated clients onto the chat hub.
type WSHandler struct {
	hub         *hub.Hub
	chatService service.ChatService
	manager     *token.Manager
	opts        hub.Options
}

// NewWSHandler creates a new websocket handler.
func NewWSHandler(h *hub.Hub, chatService service.ChatService, manager *token.Manager, opts hub.Options) *WSHandler {
	return &WSHandler{
		hub:         h,
		chatService: chatService,
		manager:     manager,
		opts:        opts,
	}
}

// RegisterRoutes registers all routes.
func (h *WSHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/chat", h.HandleWebSocket)
}

// HandleWebSocket authenticates the handshake and, only then, upgrades
// the connection. Invalid credentials are refused before any upgrade.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	ctx := c.Request.Context()

	userID, err := h.authenticate(c)
	if err != nil {
		response.Unauthorized(c, "unauthorized request")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(userID, h.hub, conn, h.opts)
	h.hub.Register(client)

	log.Ctx(ctx).Info().Str(log.FieldUserID, userID).Msg("websocket connected")

	go client.WritePump()
	go client.ReadPump(h.handleMessage)
}

// authenticate pulls the access token from the query string or the
// Authorization header.
func (h *WSHandler) authenticate(c *gin.Context) (string, error) {
	raw := c.Query("token")
	if raw == "" {
		raw = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	}
	if raw == "" {
		return "", token.ErrInvalidToken
	}

	claims, err := h.manager.ValidateAccess(raw)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

func (h *WSHandler) handleMessage(client *hub.Client, message []byte) {
	ctx := log.WithLogger(context.Background(), log.L().With().Str(log.FieldUserID, client.UserID).Logger())

	var base domain.BaseEvent
	if err := json.Unmarshal(message, &base); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("invalid event payload")
		return
	}

	switch base.Type {
	case domain.EventChatNew:
		var evt domain.NewMessageEvent
		if err := json.Unmarshal(message, &evt); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("invalid chat:new payload")
			return
		}
		if err := h.chatService.HandleNewMessage(ctx, client.UserID, &evt); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("chat:new failed")
		}

	case domain.EventChatTyping:
		var evt domain.TypingEvent
		if err := json.Unmarshal(message, &evt); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("invalid chat:typing payload")
			return
		}
		if err := h.chatService.HandleTyping(ctx, client.UserID, &evt); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("chat:typing failed")
		}

	default:
		log.Ctx(ctx).Warn().Str("type", base.Type).Msg("unknown event type")
	}
}
