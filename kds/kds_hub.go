package kds

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/table-reservation/notify"
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Conn is the part of *websocket.Conn the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Hub menampung semua client console (staff, admin) dan menyiarkan notifikasi.
type Hub struct {
	clients map[Conn]string // conn -> role
	mutex   sync.Mutex
	log     logrus.FieldLogger
}

func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		clients: make(map[Conn]string),
		log:     log,
	}
}

// RegisterClient -> menambahkan connection dengan role
func (h *Hub) RegisterClient(conn Conn, role string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.clients[conn] = role
}

// UnregisterClient -> melepaskan connection
func (h *Hub) UnregisterClient(conn Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
}

func (h *Hub) Clients() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// Notify broadcasts n to every connected console.
func (h *Hub) Notify(_ context.Context, n notify.Notification) error {
	return h.Broadcast(Message{Event: string(n.Kind), Data: n})
}

// Broadcast -> kirim pesan ke semua client; client yang gagal dilepas
func (h *Hub) Broadcast(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	for conn, role := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.WithError(err).WithField("role", role).Warn("websocket write failed, dropping client")
			delete(h.clients, conn)
			conn.Close()
		}
	}
	return nil
}
