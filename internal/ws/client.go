package ws

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/playmatatu/clawmachine/internal/game"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	readLimit  = 65536
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origins are checked by middleware.WebSocketCORSCheck
	},
}

// Client is one WebSocket connection attached to a profile's machine.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	profileID int
	machine   *game.Machine
	send      chan []byte
}

// WSMessage is the envelope for client-to-server messages.
type WSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type commandData struct {
	Command string `json:"command"`
}

// HandleWebSocket attaches the caller to their machine, starting it if
// needed. The profile comes from the auth middleware.
func HandleWebSocket(mgr *game.Manager, hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		profileID := c.GetInt("profile_id")
		if profileID == 0 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		m, _, err := mgr.Start(c.Request.Context(), profileID)
		if err != nil {
			log.Printf("[WS] failed to start machine for profile %d: %v", profileID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start machine"})
			return
		}
		snap, err := m.Snapshot()
		if err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": "machine is stopping, retry"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[WS] Upgrade error: %v", err)
			return
		}

		client := &Client{
			hub:       hub,
			conn:      conn,
			profileID: profileID,
			machine:   m,
			send:      make(chan []byte, 256),
		}

		// Queued before registration so the first frame a client sees is
		// always the current state.
		if data, err := json.Marshal(game.Event{Type: game.EventSnapshot, ProfileID: profileID, Snapshot: &snap}); err == nil {
			client.send <- data
		}

		events, cancel := m.Subscribe()
		if !hub.join(client) {
			cancel()
			conn.Close()
			return
		}

		go client.writePump()
		go client.forward(events)
		go client.readPump(cancel)
	}
}

// forward relays machine events to the connection until the machine stops.
func (c *Client) forward(events <-chan game.Event) {
	for ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			log.Printf("[WS] error marshaling %s event: %v", ev.Type, err)
			continue
		}
		c.hub.deliver(c, data)
		if ev.Type == game.EventStopped {
			break
		}
	}
	// Give the writer a moment to flush the final event, then hang up.
	time.Sleep(100 * time.Millisecond)
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "machine stopped"),
		time.Now().Add(writeWait))
	c.conn.Close()
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WS] write error for profile %d: %v", c.profileID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump(unsubscribe func()) {
	defer func() {
		unsubscribe()
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(readLimit)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] unexpected close for profile %d: %v", c.profileID, err)
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.sendError("invalid message")
			continue
		}
		c.handleMessage(msg)
	}
}

func (c *Client) handleMessage(msg WSMessage) {
	switch msg.Type {
	case "command":
		var data commandData
		if err := json.Unmarshal(msg.Data, &data); err != nil || data.Command == "" {
			c.sendError("command required")
			return
		}
		// Apply broadcasts the resulting snapshot to every subscriber.
		if _, err := c.machine.Apply(game.Command(data.Command)); err != nil {
			if errors.Is(err, game.ErrMachineStopped) {
				c.sendError("machine stopped")
				return
			}
			c.sendJSON(gin.H{"type": "rejected", "command": data.Command, "error": err.Error()})
		}

	case "get_state":
		snap, err := c.machine.Snapshot()
		if err != nil {
			c.sendError("machine stopped")
			return
		}
		c.sendJSON(game.Event{Type: game.EventSnapshot, ProfileID: c.profileID, Snapshot: &snap})

	case "ping":
		c.sendJSON(gin.H{"type": "pong"})

	default:
		c.sendError("unknown message type")
	}
}

func (c *Client) sendJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.hub.deliver(c, data)
}

func (c *Client) sendError(message string) {
	c.sendJSON(gin.H{"type": "error", "message": message})
}
