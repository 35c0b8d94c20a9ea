package ws_room

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/lidiakram/bottlespin/internal/model"
	"github.com/lidiakram/bottlespin/internal/session"
)

type Client struct {
	ID      string
	Conn    *websocket.Conn
	Send    chan session.Event
	RoomKey model.RoomKey
}

// Hub keeps track of the set of clients within each room and delivers
// session events to them. It satisfies session.Broadcaster.
type Hub struct {
	mu sync.RWMutex

	rooms map[model.RoomKey]map[*Client]bool
	conns map[string]*Client

	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		rooms:  make(map[model.RoomKey]map[*Client]bool),
		conns:  make(map[string]*Client),
		logger: logger,
	}
}

// Register tracks a fresh connection before it joins any room.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.conns[client.ID] = client
}

// Attach joins a registered connection to a room broadcast group.
func (h *Hub) Attach(client *Client, key model.RoomKey) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.RoomKey = key
	if _, ok := h.rooms[key]; !ok {
		h.rooms[key] = make(map[*Client]bool)
	}
	h.rooms[key][client] = true

	h.logger.Info("client attached", "conn", client.ID, "room", string(key))
}

// Remove drops a closed connection entirely.
func (h *Hub) Remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[client.ID]; !ok {
		return
	}
	delete(h.conns, client.ID)
	close(client.Send)
	h.detachLocked(client)

	h.logger.Info("client removed", "conn", client.ID)
}

// Detach pulls a connection out of its room group but keeps the
// socket open; a kicked player still receives the kick notice.
func (h *Hub) Detach(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client, ok := h.conns[connID]; ok {
		h.detachLocked(client)
	}
}

func (h *Hub) detachLocked(client *Client) {
	if client.RoomKey == model.EmptyRoomKey {
		return
	}
	if room, ok := h.rooms[client.RoomKey]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, client.RoomKey)
		}
	}
	client.RoomKey = model.EmptyRoomKey
}

func (h *Hub) Broadcast(key model.RoomKey, ev session.Event) {
	// Full lock: dropping a slow consumer mutates the maps.
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.rooms[key]; ok {
		for client := range clients {
			select {
			case client.Send <- ev:
			default:
				// Slow consumer; drop it rather than stall the room.
				close(client.Send)
				delete(h.rooms[key], client)
				delete(h.conns, client.ID)
			}
		}
	}
}

func (h *Hub) Send(connID string, ev session.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.conns[connID]
	if !ok {
		return
	}
	select {
	case client.Send <- ev:
	default:
	}
}

// StartClientWriting drains the send channel onto the socket.
func (h *Hub) StartClientWriting(client *Client) {
	defer client.Conn.Close()

	for ev := range client.Send {
		if err := client.Conn.WriteJSON(ev); err != nil {
			break
		}
	}
}
