// changes.go
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

package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/autofin/internal/auth"
	"github.com/localnerve/autofin/internal/realtime"
	"github.com/localnerve/autofin/internal/services"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// ChangesHandler streams data change events as server-sent events
type ChangesHandler struct {
	Hub       *realtime.Hub
	Dealers   *services.DealerService
	Heartbeat time.Duration
	Logger    *zap.Logger
}

// audience builds the subscriber identity of the caller
func (h *ChangesHandler) audience(c *fiber.Ctx, actor auth.Actor) realtime.Audience {
	a := realtime.Audience{Role: actor.Role, UserID: actor.UserID}
	if actor.Role == auth.RoleDealer && h.Dealers != nil {
		p, err := h.Dealers.GetByUser(c.UserContext(), actor.UserID)
		if err != nil {
			h.Logger.Warn("dealer without profile subscribed", zap.String("userID", actor.UserID), zap.Error(err))
		} else {
			a.DealerID = p.ID
		}
	}
	return a
}

// Stream handles GET /api/changes
// @Summary Change stream
// @Description Server-sent events naming the tables and rows that changed. Clients refetch what they show.
// @Tags Realtime
// @Produce text/event-stream
// @Success 200 {string} string "event stream"
// @Security CookieAuth
// @Router /changes [get]
func (h *ChangesHandler) Stream(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}

	sub := h.Hub.Subscribe(h.audience(c, actor))
	heartbeat := h.Heartbeat
	if heartbeat <= 0 {
		heartbeat = 25 * time.Second
	}
	logger := h.Logger.With(zap.String("userID", actor.UserID), zap.String("role", actor.Role.String()))

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer sub.Close()
		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()

		fmt.Fprint(w, "retry: 3000\n: connected\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case change, ok := <-sub.C:
				if !ok {
					return
				}
				data, err := json.Marshal(change)
				if err != nil {
					logger.Error("encode change", zap.Error(err))
					continue
				}
				fmt.Fprintf(w, "event: change\ndata: %s\n\n", data)
			case <-ticker.C:
				fmt.Fprint(w, ": ping\n\n")
			}
			if err := w.Flush(); err != nil {
				logger.Debug("change stream closed", zap.Error(err))
				return
			}
		}
	}))

	return nil
}
