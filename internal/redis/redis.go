package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Connect establishes a connection to Redis
func Connect(redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)

	// Verify connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}

// MachineEventsChannel carries machine events between server instances.
const MachineEventsChannel = "machine_events"

// MachineStateKey is the cache key for a profile's last machine snapshot.
func MachineStateKey(profileID int) string {
	return fmt.Sprintf("machine:%d:state", profileID)
}
