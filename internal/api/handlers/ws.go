package handlers

import (
	"alo17-service/internal/relay"

	"github.com/gin-gonic/gin"
)

type WSHandler struct {
	hub  *relay.Hub
	auth relay.HandshakeFunc
}

func NewWSHandler(hub *relay.Hub, auth relay.HandshakeFunc) *WSHandler {
	return &WSHandler{
		hub:  hub,
		auth: auth,
	}
}

// HandleWebSocket upgrades the request and hands the connection to the
// relay. The handshake hook rejects unauthenticated upgrades before the
// connection is registered.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	relay.ServeWS(h.hub, c.Writer, c.Request, h.auth)
}
