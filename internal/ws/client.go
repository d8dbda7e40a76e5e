package ws

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/catalog-backend/internal/goroutine"
	"github.com/ignatzorin/catalog-backend/internal/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

// Client представляет одно подключение WebSocket, подписанное на каталог.
type Client struct {
	id        uuid.UUID
	conn      *websocket.Conn
	hub       *Hub
	catalogID int64
	send      chan []byte
	closeOnce sync.Once
}

// NewClient создаёт нового клиента.
func NewClient(conn *websocket.Conn, hub *Hub, catalogID int64) *Client {
	return &Client{
		id:        uuid.New(),
		conn:      conn,
		hub:       hub,
		catalogID: catalogID,
		send:      make(chan []byte, 16),
	}
}

// Run запускает обработку входящих и исходящих сообщений.
func (c *Client) Run(ctx context.Context) {
	goroutine.SafeGo(c.writePump)
	goroutine.DefaultRecoveryHandler.Run(func() { c.readPump(ctx) })
	c.Close()
}

// Close закрывает соединение.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.hub.Unregister(c)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// readPump читает только служебные кадры: клиент лишь получает события.
func (c *Client) readPump(ctx context.Context) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if ctx.Err() != nil {
			return
		}
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Log.WithFields(logrus.Fields{
					"client_id":  c.id,
					"catalog_id": c.catalogID,
					"error":      err,
				}).Debug("ws: соединение закрыто")
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
