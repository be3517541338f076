package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"appointment-scheduler/internal/model"
)

const DefaultChannelPrefix = "notifications:"

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisSink publishes each notification as JSON on a per-user channel so
// connected clients can be told without polling their inbox.
type RedisSink struct {
	client publisher
	prefix string
}

func NewRedisSink(client *redis.Client) *RedisSink {
	return &RedisSink{client: client, prefix: DefaultChannelPrefix}
}

// Channel names the pub/sub channel for userID.
func (r *RedisSink) Channel(userID string) string {
	return r.prefix + userID
}

func (r *RedisSink) Deliver(ctx context.Context, n *model.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.Channel(n.UserID), payload).Err()
}
