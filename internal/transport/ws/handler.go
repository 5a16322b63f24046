package ws

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"boss-server-go/internal/domain/auth"
	"boss-server-go/internal/domain/notify"
	"boss-server-go/internal/platform/errors"
	"boss-server-go/internal/platform/logging"
)

const logTag = "WebSocket"

// Handler upgrades authenticated clients to a realtime connection and feeds
// their frames into the connection registry.
type Handler struct {
	authority *auth.Authority
	registry  *notify.Registry
	logger    *logging.Logger
	upgrader  websocket.Upgrader
}

func NewHandler(authority *auth.Authority, registry *notify.Registry, logger *logging.Logger) (*Handler, error) {
	if authority == nil {
		return nil, errors.New(errors.KindTransport, "ws.new", "authority is required")
	}
	if registry == nil {
		return nil, errors.New(errors.KindTransport, "ws.new", "registry is required")
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handler{
		authority: authority,
		registry:  registry,
		logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The browser websocket API cannot set Origin-restricted
			// headers; CORS enforcement happens on the HTTP API.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}, nil
}

// Register mounts the websocket endpoint on the engine.
func (h *Handler) Register(engine *gin.Engine, path string) {
	if path == "" {
		path = "/notification/connect"
	}
	engine.GET(path, h.handleConnect)
	h.logger.InfoTag(logTag, "realtime endpoint mounted at %s", path)
}

// handleConnect verifies the access token before the upgrade, then runs the
// read loop until the client goes away or the registry closes the socket.
func (h *Handler) handleConnect(c *gin.Context) {
	token := connectToken(c)
	if token == "" {
		c.String(http.StatusUnauthorized, "missing access token")
		return
	}

	p, err := h.authority.VerifyAccessToken(c.Request.Context(), token, auth.VerifyOptions{})
	if err != nil {
		h.logger.WarnTag(logTag, "connection rejected: %v", err)
		c.String(http.StatusUnauthorized, "invalid access token")
		return
	}
	p.RemoteAddr = c.ClientIP()

	socket, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WarnTag(logTag, "upgrade for user %d failed: %v", p.UserID, err)
		return
	}

	conn := NewConnection(socket)
	h.registry.Register(p.UserID, conn)

	for {
		data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		h.registry.HandleMessage(p.UserID, data)
	}

	h.registry.Unregister(p.UserID, conn)
	_ = conn.Close(notify.CloseNormal, "")
}

// connectToken pulls the access token from the Authorization header or,
// since browser websocket clients cannot set headers, the token query
// parameter.
func connectToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return c.Query("token")
}
