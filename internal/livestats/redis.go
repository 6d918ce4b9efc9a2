package livestats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"callcenter-api/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const DefaultChannel = "livestats:update"

type redisEnvelope struct {
	Origin   string   `json:"origin"`
	Snapshot Snapshot `json:"snapshot"`
}

// Observer takes snapshots produced by other instances.
type Observer interface {
	Observe(ctx context.Context, snap Snapshot)
}

// RedisBroadcaster publishes snapshots for other API instances and relays
// theirs to a local Observer. Each instance tags its messages with a random
// origin so it never relays its own. The counts themselves live on the
// shared board; this channel only tells instances that the board moved.
type RedisBroadcaster struct {
	rdb     *redis.Client
	channel string
	origin  string
}

func NewRedisBroadcaster(rdb *redis.Client, channel string) *RedisBroadcaster {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBroadcaster{rdb: rdb, channel: channel, origin: uuid.NewString()}
}

func (r *RedisBroadcaster) Broadcast(ctx context.Context, snap Snapshot) error {
	if r == nil || r.rdb == nil {
		return errors.New("livestats: redis not configured")
	}
	b, err := json.Marshal(redisEnvelope{Origin: r.origin, Snapshot: snap})
	if err != nil {
		return err
	}
	return r.rdb.Publish(ctx, r.channel, b).Err()
}

// Relay subscribes to the channel and hands snapshots from other instances
// to local. It blocks until ctx is done.
func (r *RedisBroadcaster) Relay(ctx context.Context, local Observer) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}

	log := logger.From(ctx)
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env redisEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Warn("live stats: bad relay payload", "err", err)
				continue
			}
			if env.Origin == r.origin {
				continue
			}
			local.Observe(ctx, env.Snapshot)
		}
	}
}
