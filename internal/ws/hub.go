package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrHubClosed возвращается после остановки хаба.
var ErrHubClosed = errors.New("ws: хаб остановлен")

// Hub управляет подписками WebSocket клиентов на каталоги.
type Hub struct {
	mu         sync.RWMutex
	clients    map[int64]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	done       chan struct{}
}

type message struct {
	catalogID int64
	payload   []byte
}

// NewHub создаёт новый хаб.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 32),
		done:       make(chan struct{}),
	}
}

// Run запускает главный цикл хаба до отмены ctx.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case msg := <-h.broadcast:
			h.send(msg.catalogID, msg.payload)
		}
	}
}

// Register добавляет клиента.
func (h *Hub) Register(client *Client) error {
	select {
	case h.register <- client:
		return nil
	case <-h.done:
		return ErrHubClosed
	}
}

// Unregister удаляет клиента.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// BroadcastToCatalog отправляет событие всем подписчикам каталога.
func (h *Hub) BroadcastToCatalog(catalogID int64, event string, data any) error {
	// Поле "type" содержит имя события, "data" - полезную нагрузку.
	raw, err := json.Marshal(map[string]any{
		"type": event,
		"data": data,
	})
	if err != nil {
		return fmt.Errorf("ws: не удалось сериализовать сообщение: %w", err)
	}

	select {
	case h.broadcast <- message{catalogID: catalogID, payload: raw}:
		return nil
	case <-h.done:
		return ErrHubClosed
	}
}

// Subscribers возвращает число подписчиков каталога.
func (h *Hub) Subscribers(catalogID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[catalogID])
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.catalogID]; !ok {
		h.clients[client.catalogID] = make(map[*Client]struct{})
	}
	h.clients[client.catalogID][client] = struct{}{}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.catalogID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.clients, client.catalogID)
	}
}

func (h *Hub) send(catalogID int64, payload []byte) {
	var slow []*Client

	h.mu.RLock()
	for client := range h.clients[catalogID] {
		select {
		case client.send <- payload:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	// Медленные клиенты отключаются: закрытие send завершит их writePump.
	for _, client := range slow {
		h.removeClient(client)
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for catalogID, clients := range h.clients {
		for client := range clients {
			close(client.send)
		}
		delete(h.clients, catalogID)
	}
	close(h.done)
}
