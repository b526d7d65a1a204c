// bridge.go
//
// Auto loan origination service: applications, staff console and dealer portal
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of autofin.
// autofin is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// autofin is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with autofin.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultChannel is the Redis pub/sub channel carrying changes
const DefaultChannel = "autofin:changes"

// RedisBridge shares changes between instances. Publish sends to Redis;
// Run delivers every change received from Redis, including this
// instance's own, to the local hub.
type RedisBridge struct {
	client  *redis.Client
	channel string
	hub     *Hub
	logger  *zap.Logger
}

// NewRedisBridge creates a RedisBridge on channel
func NewRedisBridge(client *redis.Client, channel string, hub *Hub, logger *zap.Logger) *RedisBridge {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBridge{client: client, channel: channel, hub: hub, logger: logger}
}

// Publish implements Publisher
func (b *RedisBridge) Publish(ctx context.Context, c Change) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal change: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Subscribe attaches to the channel and returns once the subscription is
// confirmed. Run then consumes it.
func (b *RedisBridge) Subscribe(ctx context.Context) (*redis.PubSub, error) {
	ps := b.client.Subscribe(ctx, b.channel)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", b.channel, err)
	}
	return ps, nil
}

// Run forwards messages from ps to the hub until ctx is done
func (b *RedisBridge) Run(ctx context.Context, ps *redis.PubSub) {
	defer ps.Close()

	ch := ps.Channel()
	b.logger.Info("realtime bridge started", zap.String("channel", b.channel))
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("realtime bridge stopped")
			return
		case msg, ok := <-ch:
			if !ok {
				b.logger.Warn("realtime bridge channel closed")
				return
			}
			var c Change
			if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
				b.logger.Warn("ignoring malformed change", zap.Error(err))
				continue
			}
			_ = b.hub.Publish(ctx, c)
		}
	}
}
