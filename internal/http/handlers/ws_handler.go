package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ignatzorin/catalog-backend/internal/http/handlers/common"
	"github.com/ignatzorin/catalog-backend/internal/http/response"
	"github.com/ignatzorin/catalog-backend/internal/ws"
)

// WSHandler отвечает за подписку на события каталога по WebSocket.
type WSHandler struct {
	hub      *ws.Hub
	catalogs CatalogUseCase
	upgrader websocket.Upgrader
}

// NewWSHandler создаёт новый хэндлер. allowedOrigins ограничивает Origin рукопожатия.
func NewWSHandler(hub *ws.Hub, catalogs CatalogUseCase, allowedOrigins []string) *WSHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return &WSHandler{
		hub:      hub,
		catalogs: catalogs,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

// Subscribe обслуживает GET /api/ws/catalogs/:id
func (h *WSHandler) Subscribe(c *gin.Context) {
	id, err := common.ParseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	// Подписаться можно только на каталог, который вызывающий может прочитать.
	if _, err := h.catalogs.Find(c.Request.Context(), id, nil); err != nil {
		response.Error(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade уже записал ответ с ошибкой.
		return
	}

	client := ws.NewClient(conn, h.hub, id)
	if err := h.hub.Register(client); err != nil {
		_ = conn.Close()
		return
	}
	client.Run(c.Request.Context())
}
