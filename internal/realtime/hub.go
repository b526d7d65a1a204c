// hub.go
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
	"sync"
	"time"

	"github.com/localnerve/autofin/internal/metrics"
	"go.uber.org/zap"
)

// subscriberBuffer is the number of undelivered changes a slow subscriber
// may hold before further changes are dropped for it
const subscriberBuffer = 16

// Hub coalesces bursts of changes and delivers them to in-process
// subscribers. All changes to one table published within the window are
// merged into a single change.
type Hub struct {
	window time.Duration
	logger *zap.Logger

	mu      sync.Mutex
	nextID  uint64
	subs    map[uint64]*Subscription
	pending map[string]*Change
	order   []string
	timer   *time.Timer
	closed  bool
}

// Subscription receives changes visible to its audience
type Subscription struct {
	C        <-chan Change
	ch       chan Change
	id       uint64
	audience Audience
	hub      *Hub
	once     sync.Once
}

// NewHub creates a Hub. A non-positive window delivers each change alone.
func NewHub(window time.Duration, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		window:  window,
		logger:  logger,
		subs:    make(map[uint64]*Subscription),
		pending: make(map[string]*Change),
	}
}

// Subscribe registers a subscriber for audience
func (h *Hub) Subscribe(audience Audience) *Subscription {
	ch := make(chan Change, subscriberBuffer)
	sub := &Subscription{C: ch, ch: ch, audience: audience, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return sub
	}
	h.nextID++
	sub.id = h.nextID
	h.subs[sub.id] = sub
	metrics.RealtimeSubscribers.Inc()
	return sub
}

// Close unregisters the subscription and closes its channel
func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[s.id]; ok {
			delete(h.subs, s.id)
			close(s.ch)
			metrics.RealtimeSubscribers.Dec()
		}
	})
}

// Publish implements Publisher for in-process delivery
func (h *Hub) Publish(ctx context.Context, c Change) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}

	if h.window <= 0 {
		h.deliverLocked(c)
		return nil
	}

	if p, ok := h.pending[c.Table]; ok {
		merge(p, c)
	} else {
		cp := Change{Table: c.Table, Op: c.Op}
		merge(&cp, c)
		h.pending[c.Table] = &cp
		h.order = append(h.order, c.Table)
	}

	if h.timer == nil {
		h.timer = time.AfterFunc(h.window, h.flush)
	}
	return nil
}

func (h *Hub) flush() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.timer = nil
	for _, table := range h.order {
		if c, ok := h.pending[table]; ok {
			h.deliverLocked(*c)
		}
	}
	h.pending = make(map[string]*Change)
	h.order = nil
}

func (h *Hub) deliverLocked(c Change) {
	for _, sub := range h.subs {
		if !sub.audience.Sees(c) {
			continue
		}
		select {
		case sub.ch <- c:
		default:
			h.logger.Warn("dropping change for slow subscriber",
				zap.String("table", c.Table),
				zap.String("userID", sub.audience.UserID))
		}
	}
}

// Close drops pending changes and closes every subscription
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub.ch)
		metrics.RealtimeSubscribers.Dec()
	}
}
