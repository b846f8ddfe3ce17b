package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/playmatatu/clawmachine/internal/game"
	"github.com/playmatatu/clawmachine/internal/geometry"
	"github.com/playmatatu/clawmachine/internal/save"
)

// attach registers a connection-less client straight into the hub.
func attach(h *Hub, profileID int) *Client {
	c := &Client{hub: h, profileID: profileID, send: make(chan []byte, 4)}
	h.mu.Lock()
	if h.clients[profileID] == nil {
		h.clients[profileID] = make(map[*Client]bool)
	}
	h.clients[profileID][c] = true
	h.mu.Unlock()
	return c
}

func TestSendToProfileReachesEveryConnection(t *testing.T) {
	h := NewHub()
	a, b := attach(h, 1), attach(h, 1)
	other := attach(h, 2)

	if n := h.SendToProfile(1, gin.H{"type": "ping"}); n != 2 {
		t.Fatalf("delivered to %d clients, want 2", n)
	}
	if len(a.send) != 1 || len(b.send) != 1 || len(other.send) != 0 {
		t.Errorf("queue lengths a=%d b=%d other=%d", len(a.send), len(b.send), len(other.send))
	}
	if h.Connections(1) != 2 || h.Connections(3) != 0 {
		t.Errorf("connections = %d/%d", h.Connections(1), h.Connections(3))
	}
}

func TestRelaySkipsOwnOrigin(t *testing.T) {
	h := NewHub()
	c := attach(h, 7)

	own, _ := json.Marshal(game.Event{Type: game.EventPrizeWon, ProfileID: 7, Origin: "inst_a"})
	if relayEvent(h, "inst_a", string(own)) {
		t.Error("relayed an event this instance published")
	}
	foreign, _ := json.Marshal(game.Event{Type: game.EventPrizeWon, ProfileID: 7, Origin: "inst_b"})
	if !relayEvent(h, "inst_a", string(foreign)) {
		t.Fatal("foreign event not relayed")
	}
	if relayEvent(h, "inst_a", "{not json") {
		t.Error("relayed a malformed payload")
	}

	var got game.Event
	if err := json.Unmarshal(<-c.send, &got); err != nil {
		t.Fatal(err)
	}
	if got.Type != game.EventPrizeWon || got.Origin != "" {
		t.Errorf("relayed event = %+v", got)
	}
}

func TestUnregisterClosesSend(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	c := &Client{hub: h, profileID: 4, send: make(chan []byte, 1)}
	h.register <- c
	h.unregister <- c

	select {
	case _, ok := <-c.send:
		if ok {
			t.Error("unexpected message on send")
		}
	case <-time.After(time.Second):
		t.Fatal("send channel not closed after unregister")
	}
}

func TestWebSocketCommandRoundTrip(t *testing.T) {
	gin.SetMode(gin.TestMode)

	frames, err := geometry.ProceduralFrameTable(1)
	if err != nil {
		t.Fatal(err)
	}
	mgr := game.NewManager(save.NewFileStore(t.TempDir()), nil, game.Options{
		Tuning:        game.DefaultTuning(),
		Frames:        frames,
		Limits:        save.DefaultLimits(),
		SnapshotEvery: 2,
	})
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		mgr.Shutdown(ctx)
	}()

	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		id, _ := strconv.Atoi(c.Query("profile"))
		c.Set("profile_id", id)
	}, HandleWebSocket(mgr, hub))
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?profile=9"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	var first game.Event
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read first frame: %v", err)
	}
	if first.Type != game.EventSnapshot || first.Snapshot == nil || first.Snapshot.Coins != 20 {
		t.Fatalf("first frame = %+v", first)
	}

	if err := conn.WriteJSON(gin.H{"type": "command", "data": gin.H{"command": "drop"}}); err != nil {
		t.Fatal(err)
	}
	for {
		var ev game.Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("no snapshot after drop: %v", err)
		}
		if ev.Snapshot != nil && ev.Snapshot.Coins == 19 {
			if ev.Snapshot.Claw.State != game.ClawDescending {
				t.Errorf("claw state after drop = %s", ev.Snapshot.Claw.State)
			}
			break
		}
	}
}
