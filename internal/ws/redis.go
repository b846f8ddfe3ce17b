package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/playmatatu/clawmachine/internal/game"
	rediskeys "github.com/playmatatu/clawmachine/internal/redis"
	"github.com/redis/go-redis/v9"
)

// StartEventRelay forwards machine events published by other server
// instances to this instance's connected clients. Events carrying origin
// were published here and are skipped.
func StartEventRelay(ctx context.Context, rdb *redis.Client, hub *Hub, origin string) {
	if rdb == nil {
		log.Println("[WS] Redis client not set; event relay not started")
		return
	}

	pubsub := rdb.Subscribe(ctx, rediskeys.MachineEventsChannel)
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		log.Printf("[WS] %s relay started", rediskeys.MachineEventsChannel)
		for msg := range ch {
			relayEvent(hub, origin, msg.Payload)
		}
	}()
}

// relayEvent decodes one published event and hands it to the hub. It
// reports whether the event was forwarded.
func relayEvent(hub *Hub, origin, payload string) bool {
	var ev game.Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		log.Printf("[WS] invalid event payload: %v", err)
		return false
	}
	if ev.Origin == origin || ev.ProfileID == 0 {
		return false
	}
	ev.Origin = ""
	hub.SendToProfile(ev.ProfileID, ev)
	return true
}
