package handlers

import (
	"log"
	"net/http"
	"strings"
	"time"

	"taskflow/internal/realtime"
	"taskflow/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// WSHandler upgrades realtime connections. The handshake carries the same
// bearer token as the HTTP API (?token= or Authorization header); on
// success the connection joins the user's room.
type WSHandler struct {
	auth          services.AuthService
	hub           *realtime.Hub
	allowedOrigin string
}

func NewWSHandler(auth services.AuthService, hub *realtime.Hub, allowedOrigin string) *WSHandler {
	return &WSHandler{auth: auth, hub: hub, allowedOrigin: allowedOrigin}
}

func (h *WSHandler) handshakeToken(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[len("bearer "):])
	}
	return ""
}

// GET /ws
func (h *WSHandler) Connect(c *gin.Context) {
	token := h.handshakeToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication error: No token provided"})
		return
	}
	userID, err := h.auth.VerifyToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication error: Invalid token"})
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || origin == h.allowedOrigin
		},
	}
	raw, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[ws][upgrade][err] user=%s: %v", userID, err)
		return
	}

	conn := realtime.NewWSConn(raw)
	h.hub.Register(userID, conn)
	log.Printf("[ws][connect] user=%s", userID)

	defer func() {
		h.hub.Unregister(userID, conn)
		log.Printf("[ws][disconnect] user=%s", userID)
	}()

	if err := raw.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	raw.SetPongHandler(func(string) error {
		return raw.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.Ping(); err != nil {
					return
				}
			}
		}
	}()

	// Server-to-client channel only; inbound frames are drained to keep
	// pong handling alive.
	for {
		if _, _, err := raw.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[ws][read][err] user=%s: %v", userID, err)
			}
			return
		}
	}
}
