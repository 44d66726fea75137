package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/velocitygame/velocity-server/internal/logger"
	"github.com/velocitygame/velocity-server/internal/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // clients are mobile/web apps on arbitrary origins
	},
}

// Dispatcher receives inbound player actions. Implemented by the game
// service; defined here so the gateway has no dependency on game internals.
type Dispatcher interface {
	CreateRoom(playerID string, req models.CreateRoomRequest)
	JoinRoom(playerID string, req models.JoinRoomRequest)
	FindMatch(playerID string, req models.FindMatchRequest)
	StartRound(playerID, roomCode string)
	SignalTimeUp(playerID, roomCode string)
	SubmitWords(playerID, roomCode string, words map[string]string)
	SubmitVote(playerID, roomCode string, votes map[string]map[string]string)
	SendMessage(roomCode, sender, text string)
	SendReaction(roomCode, emoji string)
}

// Hub maintains the set of active clients and routes room-scoped traffic
type Hub struct {
	log        logger.Logger
	dispatcher Dispatcher
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	clients    map[string]*Client            // connection id -> client
	rooms      map[string]map[string]*Client // room code -> member clients
}

// Client is a middleman between one websocket connection and the hub. Its id
// is the player's connection id for the lifetime of the socket.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	id       string
	roomCode string
	send     chan models.WSMessage
}

// New creates a new Hub instance
func New(log logger.Logger) *Hub {
	return &Hub{
		log:        log,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
	}
}

// SetDispatcher wires the inbound action sink. Called once during app
// assembly, before Start.
func (h *Hub) SetDispatcher(d Dispatcher) {
	h.dispatcher = d
}

// Start begins the hub's main loop in a goroutine
func (h *Hub) Start() {
	go h.run()
}

// run handles client registration and unregistration
func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client.id] = client
			total := len(h.clients)
			h.mutex.Unlock()
			h.log.Debug("Client connected", "id", client.id, "total_clients", total)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				if client.roomCode != "" {
					if members, ok := h.rooms[client.roomCode]; ok {
						delete(members, client.id)
						if len(members) == 0 {
							delete(h.rooms, client.roomCode)
						}
					}
				}
				close(client.send)
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.log.Debug("Client disconnected", "id", client.id, "total_clients", total)
		}
	}
}

// BindRoom implements game.Broadcaster: it indexes a connection under a room
// code so room broadcasts reach it.
func (h *Hub) BindRoom(playerID, roomCode string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	client, ok := h.clients[playerID]
	if !ok {
		return // synthetic players have no connection
	}
	if client.roomCode != "" && client.roomCode != roomCode {
		// A rebind leaves the old room; its broadcasts must stop here.
		if members, ok := h.rooms[client.roomCode]; ok {
			delete(members, playerID)
			if len(members) == 0 {
				delete(h.rooms, client.roomCode)
			}
		}
	}
	client.roomCode = roomCode
	if h.rooms[roomCode] == nil {
		h.rooms[roomCode] = make(map[string]*Client)
	}
	h.rooms[roomCode][playerID] = client
}

// ToRoom sends an event to every connected member of a room
func (h *Hub) ToRoom(roomCode, msgType string, payload any) {
	msg := models.WSMessage{Type: msgType, Payload: payload}

	h.mutex.RLock()
	defer h.mutex.RUnlock()
	for _, client := range h.rooms[roomCode] {
		h.deliver(client, msg)
	}
}

// ToPlayer sends an event to one connection. Unknown ids (bots, players that
// already disconnected) are dropped silently.
func (h *Hub) ToPlayer(playerID, msgType string, payload any) {
	msg := models.WSMessage{Type: msgType, Payload: payload}

	h.mutex.RLock()
	defer h.mutex.RUnlock()
	if client, ok := h.clients[playerID]; ok {
		h.deliver(client, msg)
	}
}

// deliver pushes a message without blocking; a client with a full send
// buffer is scheduled for unregistration. Caller holds at least a read lock.
func (h *Hub) deliver(client *Client, msg models.WSMessage) {
	select {
	case client.send <- msg:
	default:
		go func(c *Client) {
			h.unregister <- c
		}(client)
	}
}

// readPump pumps inbound messages from the websocket to the dispatcher
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("WebSocket error", "error", err)
			}
			break
		}

		var msg models.ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.hub.log.Debug("Malformed client message", "id", c.id, "error", err)
			continue
		}
		c.hub.handleMessage(c, msg)
	}
}

// handleMessage decodes the payload per message type and forwards the action
func (h *Hub) handleMessage(c *Client, msg models.ClientMessage) {
	switch msg.Type {
	case "create_room":
		var req models.CreateRoomRequest
		if json.Unmarshal(msg.Payload, &req) == nil {
			h.dispatcher.CreateRoom(c.id, req)
		}
	case "join_room":
		var req models.JoinRoomRequest
		if json.Unmarshal(msg.Payload, &req) == nil {
			h.dispatcher.JoinRoom(c.id, req)
		}
	case "find_match":
		var req models.FindMatchRequest
		if json.Unmarshal(msg.Payload, &req) == nil {
			h.dispatcher.FindMatch(c.id, req)
		}
	case "start_round":
		var ref models.RoomRef
		if json.Unmarshal(msg.Payload, &ref) == nil {
			h.dispatcher.StartRound(c.id, ref.RoomCode)
		}
	case "signal_time_up":
		var ref models.RoomRef
		if json.Unmarshal(msg.Payload, &ref) == nil {
			h.dispatcher.SignalTimeUp(c.id, ref.RoomCode)
		}
	case "submit_words":
		var req models.SubmitWordsRequest
		if json.Unmarshal(msg.Payload, &req) == nil {
			h.dispatcher.SubmitWords(c.id, req.RoomCode, req.Words)
		}
	case "submit_vote":
		var req models.SubmitVoteRequest
		if json.Unmarshal(msg.Payload, &req) == nil {
			h.dispatcher.SubmitVote(c.id, req.RoomCode, req.Votes)
		}
	case "send_message":
		var req models.ChatMessage
		if json.Unmarshal(msg.Payload, &req) == nil {
			h.dispatcher.SendMessage(req.RoomCode, req.PlayerName, req.Text)
		}
	case "send_reaction":
		var req models.Reaction
		if json.Unmarshal(msg.Payload, &req) == nil {
			h.dispatcher.SendReaction(req.RoomCode, req.Emoji)
		}
	default:
		h.log.Debug("Unknown message type", "type", msg.Type, "id", c.id)
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}

			msgBytes, _ := json.Marshal(message)
			w.Write(msgBytes)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs upgrades an HTTP request and runs the client's pumps. The fresh
// uuid is the player's connection id.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("WebSocket upgrade error", "error", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		id:   uuid.NewString(),
		send: make(chan models.WSMessage, 256),
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}
